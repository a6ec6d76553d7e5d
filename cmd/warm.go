package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/itiky/offline-bridge/connectivity"
	"github.com/itiky/offline-bridge/service/gateway"
	"github.com/itiky/offline-bridge/transport"
)

// GetWarmCmd returns the one-shot cache warmup command.
func GetWarmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Refresh the API response cache for the configured endpoints",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				log.Fatalf("config: %v", err)
			}

			store, err := openStorage(cfg)
			if err != nil {
				log.Fatalf("storage init: %v", err)
			}
			defer store.Close()

			network, err := transport.NewHTTPTransport(cfg.UpstreamURL, cfg.RequestTimeout.Std())
			if err != nil {
				log.Fatalf("transport init: %v", err)
			}

			gw, err := gateway.NewGateway(store, network, connectivity.NewTracker(true), cfg.APIPrefix, cfg.CacheTTL.Std())
			if err != nil {
				log.Fatalf("gateway init: %v", err)
			}

			report := gw.Warm(context.Background(), cfg.WarmEndpoints)
			log.Printf("%s", report.String())
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(GetWarmCmd())
}

package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/itiky/offline-bridge/connectivity"
	"github.com/itiky/offline-bridge/service/syncer"
	"github.com/itiky/offline-bridge/transport"
)

// GetSyncCmd returns the one-shot queue drain command.
func GetSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replay the pending action queue once and exit",
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

			sync, err := syncer.NewSyncer(store, network, connectivity.NewTracker(true))
			if err != nil {
				log.Fatalf("syncer init: %v", err)
			}

			report, err := sync.Drain(context.Background())
			if err != nil {
				log.Fatalf("drain: %v", err)
			}

			log.Printf("%s", report.String())
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(GetSyncCmd())
}

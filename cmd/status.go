package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/itiky/offline-bridge/connectivity"
)

// GetStatusCmd returns the bridge status command.
func GetStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the connectivity state and the pending action count",
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

			tracker := connectivity.NewTracker(false)
			probe, err := connectivity.NewProbe(tracker, cfg.ProbeURL, cfg.ProbePeriod.Std(), cfg.ProbeTimeout.Std())
			if err != nil {
				log.Fatalf("probe init: %v", err)
			}

			online := probe.ProbeOnce(context.Background())

			pending, err := store.PendingCount(context.Background())
			if err != nil {
				log.Fatalf("pending count: %v", err)
			}

			state := "offline"
			if online {
				state = "online"
			}
			log.Printf("upstream: %s (%s)", cfg.UpstreamURL, state)
			log.Printf("pending actions: %d", pending)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(GetStatusCmd())
}

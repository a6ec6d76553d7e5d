package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itiky/offline-bridge/connectivity"
	"github.com/itiky/offline-bridge/service/bridge"
	"github.com/itiky/offline-bridge/service/gateway"
	"github.com/itiky/offline-bridge/service/scheduler"
	"github.com/itiky/offline-bridge/service/syncer"
	"github.com/itiky/offline-bridge/transport"
)

// GetRunCmd returns the bridge start command.
func GetRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the offline bridge proxy",
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

			// Connectivity: HTTP probe always, websocket watcher when configured
			tracker := connectivity.NewTracker(false)
			probe, err := connectivity.NewProbe(tracker, cfg.ProbeURL, cfg.ProbePeriod.Std(), cfg.ProbeTimeout.Std())
			if err != nil {
				log.Fatalf("probe init: %v", err)
			}

			var watcher *connectivity.WSWatcher
			if cfg.WatchWSURL != "" {
				watcher, err = connectivity.NewWSWatcher(tracker, cfg.WatchWSURL, cfg.ProbePeriod.Std(), cfg.ProbeTimeout.Std())
				if err != nil {
					log.Fatalf("ws watcher init: %v", err)
				}
			}

			gw, err := gateway.NewGateway(store, network, tracker, cfg.APIPrefix, cfg.CacheTTL.Std())
			if err != nil {
				log.Fatalf("gateway init: %v", err)
			}

			sync, err := syncer.NewSyncer(store, network, tracker)
			if err != nil {
				log.Fatalf("syncer init: %v", err)
			}

			sched, err := scheduler.NewScheduler(tracker, gw, sync, cfg.SyncPeriod.Std(), cfg.WarmPeriod.Std(), cfg.WarmEndpoints)
			if err != nil {
				log.Fatalf("scheduler init: %v", err)
			}

			handler, err := bridge.NewBridge(gw, sync, tracker)
			if err != nil {
				log.Fatalf("bridge init: %v", err)
			}

			probe.Start()
			if watcher != nil {
				watcher.Start()
			}
			gw.Start()
			sync.Start()
			if err := sched.Start(); err != nil {
				log.Fatalf("scheduler start: %v", err)
			}

			server := &http.Server{
				Addr:    cfg.ListenAddr,
				Handler: handler,
			}
			go func() {
				log.Printf("bridge started: %s -> %s", cfg.ListenAddr, cfg.UpstreamURL)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("server: %v", err)
				}
			}()

			// Wait for signal
			signalCh := make(chan os.Signal, 1)
			signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
			<-signalCh

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)

			sched.Stop()
			sync.Stop()
			gw.Stop()
			if watcher != nil {
				watcher.Stop()
			}
			probe.Stop()
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(GetRunCmd())
}

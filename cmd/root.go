package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const FlagConfig = "config"

// rootCmd is a base command.
var rootCmd = &cobra.Command{
	Use:   "offline-bridge",
	Short: "Offline-first API bridge: request gateway, response cache and mutation replay queue",
}

func main() {
	// Optional .env next to the binary; settings stay env-overridable
	if err := godotenv.Load(); err == nil {
		log.Printf("loaded .env overrides")
	}

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("rootCmd.Execute: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().String(FlagConfig, "", "(optional) path to TOML config file")
}

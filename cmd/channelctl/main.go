// Command channelctl inspects platform channel payloads and runs bridge
// peers for testing embedders.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/platform-channels/channel"
	"github.com/wippyai/platform-channels/config"
	"github.com/wippyai/platform-channels/internal/logging"
	"github.com/wippyai/platform-channels/messenger"
	"github.com/wippyai/platform-channels/transport/wasmbridge"
	"github.com/wippyai/platform-channels/transport/wsbridge"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "channelctl",
	Short:         "Platform channel payload and bridge tool",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		log, err = logging.New(cfg.LoggingOptions())
		if err != nil {
			return err
		}
		messenger.SetLogger(log.Named("messenger"))
		channel.SetLogger(log.Named("channel"))
		wsbridge.SetLogger(log.Named("wsbridge"))
		wasmbridge.SetLogger(log.Named("wasmbridge"))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug|info|warn|error)")

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(callDecodeCmd)
	rootCmd.AddCommand(envelopeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(guestCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

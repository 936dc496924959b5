package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rvald/interactions/internal/config"
	"github.com/rvald/interactions/internal/logger"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	envFile   string
	stateDir  string
	logLevel  string
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Webhook interactions server and command registrar",
	Long: `interactions receives signed interaction webhooks, dispatches them to
registered command and component handlers, and manages the application's
command definitions and permissions through the REST API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if stateDir != "" {
			c.StateDir = stateDir
		}
		if logLevel != "" {
			c.LogLevel = logLevel
		}
		level, err := logger.ParseLevel(c.LogLevel)
		if err != nil {
			return err
		}
		logCloser = logger.Setup(c.StateDir, level)
		cfg = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load variables from this file instead of ./.env")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "State directory for logs and command ids (default $STATE_DIR or ~/.local/state/interactions)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default $LOG_LEVEL)")
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

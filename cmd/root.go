package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/facemark/facemark/internal/config"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "facemark",
	Short: "Face recognition attendance recorder",
	Long: `Facemark recognizes enrolled people from face embeddings produced by
an external recognition service and records their attendance exactly
once per cooldown window, to an attendance API, a CSV log or a local
SQLite database.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	logCfg := config.Load().Log
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	if err := config.InitLogger(logCfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

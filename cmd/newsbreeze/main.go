// Command newsbreeze serves the NewsBreeze API and web UI, and offers a
// terminal client for reading and listening to the news.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/newsbreeze/internal/config"
)

var version = "dev"

var (
	flagConfig  string
	flagEnvFile string
)

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "newsbreeze",
	Short:         "Top news with AI summaries and text-to-speech",
	Long:          "newsbreeze fetches the top headlines, summarizes each story, and reads the summaries aloud.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFiles()...); err != nil {
			return err
		}
		path := flagConfig
		if path == "" {
			path = config.DefaultPath()
		}
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = c
		slog.SetDefault(newLogger(cfg.Server.LogLevel))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// The version needs no configuration.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "newsbreeze %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to the YAML configuration file (default: ./config.yaml or $XDG_CONFIG_HOME/newsbreeze/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "load environment variables from this file (default: ./.env)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(speakCmd)
	rootCmd.AddCommand(listenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "newsbreeze: %v\n", err)
		os.Exit(1)
	}
}

func envFiles() []string {
	if flagEnvFile == "" {
		return nil
	}
	return []string{flagEnvFile}
}

func newLogger(level config.LogLevel) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level.Level()}))
}

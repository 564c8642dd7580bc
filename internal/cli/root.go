// Package cli implements the afzsim command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var (
	profileDir     string
	logLevel       string
	cleanupCeiling int
)

var rootCmd = &cobra.Command{
	Use:   "afzsim",
	Short: "afzsim - antifreeze reference host",
	Long: `afzsim runs a headless world of infected and survivors whose per-agent
updates are throttled by the antifreeze admission controller. It exposes
telemetry over HTTP and can persist it to SQLite.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(os.Stdout, logLevel)
	},
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileDir, "profile", ".", "profile directory holding antifreeze.json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&cleanupCeiling, "cleanup-ceiling", 300, "host maximum corpse lifetime in seconds")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version.
func GetVersion() string {
	return version
}

// setupLogging installs a text handler at the given level as the default logger.
func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func ceiling() int {
	return cleanupCeiling
}

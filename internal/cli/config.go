package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/antifreeze/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the antifreeze configuration document",
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write antifreeze.json with shipped defaults",
	Long: `Write antifreeze.json into the profile directory. An existing document
is left alone unless --force is given.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Load the document the way a running simulation would (defaults for missing
keys, AFZ_ environment overrides, normalization) and print the result.`,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration document path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), config.PathIn(profileDir))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing document")

	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.PathIn(profileDir)
	if configForce {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}

	store := config.NewStore(path, ceiling)
	store.Get()
	if !store.Loaded() {
		return fmt.Errorf("could not load or create %s", path)
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	store := config.NewStore(config.PathIn(profileDir), ceiling)
	cfg := store.Get()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if !store.Loaded() {
		return fmt.Errorf("document at %s failed to load; showing defaults", store.Path())
	}
	return nil
}

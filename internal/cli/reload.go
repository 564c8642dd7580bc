package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/antifreeze/internal/api"
	"github.com/talgya/antifreeze/internal/engine"
)

var (
	apiURL   string
	adminKey string
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Ask a running simulation to reload antifreeze.json",
	Long: `Post the afz-reload command to a running simulation. The simulation only
honors it when enableHotConfigReload is true in its current document.
The admin key comes from --admin-key or ` + api.AdminKeyEnv + `.`,
	RunE: runReload,
}

var sendCmd = &cobra.Command{
	Use:   "send <command> [value]",
	Short: "Queue an operator command on a running simulation",
	Long: `Queue one operator command in its text form, e.g.

  afzsim send afz-reload
  afzsim send speed 4
  afzsim send flush

The command is checked locally before it is posted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := engine.ParseCommand(strings.Join(args, " "))
		if err != nil {
			return err
		}
		return postCommand(cmd, c)
	},
}

func init() {
	for _, c := range []*cobra.Command{reloadCmd, sendCmd} {
		c.Flags().StringVar(&apiURL, "api-url", "http://localhost:8080", "base URL of the running simulation")
		c.Flags().StringVar(&adminKey, "admin-key", "", "admin bearer token (default $"+api.AdminKeyEnv+")")
		rootCmd.AddCommand(c)
	}
}

func runReload(cmd *cobra.Command, args []string) error {
	return postCommand(cmd, engine.Command{Name: engine.CommandReload})
}

func postCommand(cmd *cobra.Command, c engine.Command) error {
	key := adminKey
	if key == "" {
		key = os.Getenv(api.AdminKeyEnv)
	}
	if key == "" {
		return fmt.Errorf("admin key required (--admin-key or %s)", api.AdminKeyEnv)
	}

	res, err := api.NewClient(apiURL, key).Command(cmd.Context(), c)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s queued: %s\n", res.Queued, res.Message)
	return nil
}

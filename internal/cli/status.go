package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/antifreeze/internal/api"
	"github.com/talgya/antifreeze/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show throttling counters of a running simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := api.NewClient(apiURL, "").Stats(cmd.Context())
		if err != nil {
			return err
		}
		printStatus(cmd, st)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&apiURL, "api-url", "http://localhost:8080", "base URL of the running simulation")
	rootCmd.AddCommand(statusCmd)
}

func printStatus(cmd *cobra.Command, st *engine.Stats) {
	out := cmd.OutOrStdout()
	total := st.Decisions.Total()
	pct := func(n uint64) float64 {
		if total == 0 {
			return 0
		}
		return float64(n) / float64(total) * 100
	}

	fmt.Fprintf(out, "Frame:      %s (%.0fs simulated, speed %g)\n", humanize.Comma(int64(st.Frame)), st.SimTime, st.Speed)
	fmt.Fprintf(out, "Infected:   %d alive, %d corpses\n", st.InfectedAlive, st.Corpses)
	fmt.Fprintf(out, "Modes:      %d active, %d grace, %d frozen, %d opted out, %d tokens\n",
		st.Modes.Active, st.Modes.Grace, st.Modes.Frozen, st.Modes.OptedOut, st.Modes.TokensHeld)
	fmt.Fprintf(out, "Decisions:  %s forwarded (%.1f%%), %s capped (%.1f%%), %s suppressed (%.1f%%)\n",
		humanize.Comma(int64(st.Decisions.Forward)), pct(st.Decisions.Forward),
		humanize.Comma(int64(st.Decisions.Capped)), pct(st.Decisions.Capped),
		humanize.Comma(int64(st.Decisions.Suppressed)), pct(st.Decisions.Suppressed))
	fmt.Fprintf(out, "Native:     %s calls\n", humanize.Comma(int64(st.NativeCalls)))
	fmt.Fprintf(out, "Config:     loaded=%t, %d resets\n", st.ConfigLoaded, st.ConfigResets)
}

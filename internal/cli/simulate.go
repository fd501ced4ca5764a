package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/pitwall/internal/simulate"
)

func newSimulateCommand(a *app) *cobra.Command {
	cfg := simulate.Config{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a betting round against a running server and verify its scores.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.AdminToken == "" {
				cfg.AdminToken = a.cfg.AdminToken
			}
			stats, err := simulate.Run(cmd.Context(), cfg)
			rows := [][]string{
				{"race", stats.RaceID},
				{"bets placed", strconv.Itoa(stats.BetsSubmitted)},
				{"bets rejected", strconv.Itoa(stats.BetsFailed)},
				{"scored", strconv.Itoa(stats.Scored)},
				{"ranks checked", strconv.Itoa(stats.RanksRetrieved)},
				{"mismatches", strconv.Itoa(stats.Mismatches)},
				{"duration", stats.Duration.Round(time.Millisecond).String()},
			}
			if rerr := renderTable(a.out, []string{"Metric", "Value"}, rows); rerr != nil {
				return rerr
			}
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "server base URL")
	f.StringVar(&cfg.AdminToken, "token", "", "admin token (default from config)")
	f.IntVar(&cfg.Users, "users", 100, "simulated bettors")
	f.IntVar(&cfg.Positions, "positions", 10, "positions per prediction")
	f.IntVar(&cfg.Workers, "workers", 8, "concurrent requests")
	f.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "per-request timeout")
	f.IntVar(&cfg.Season, "season", 0, "season of the generated race (default: this year)")
	f.Uint64Var(&cfg.Seed, "seed", 0, "random seed (default: from the clock)")
	f.IntVar(&cfg.TopN, "top", 10, "leaderboard entries to check")
	return cmd
}

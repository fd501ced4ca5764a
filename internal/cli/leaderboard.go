package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/okian/pitwall/internal/adapters/repository"
	"github.com/okian/pitwall/internal/adapters/storage"
)

func newLeaderboardCommand(a *app) *cobra.Command {
	var season, limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the overall or a season leaderboard from the database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive")
			}
			ctx := cmd.Context()
			return a.withStore(ctx, func(st *storage.Store) error {
				totals, err := st.UserTotals(ctx, season)
				if err != nil {
					return err
				}
				name := repository.OverallBoard
				if season > 0 {
					name = repository.SeasonBoard(season)
				}
				board := repository.NewTreapStore(repository.WithName(name))
				for _, t := range totals {
					if err := board.Set(ctx, t.UserID, t.Total); err != nil {
						return err
					}
				}
				top, err := board.TopN(ctx, limit)
				if err != nil {
					return err
				}

				width := max(terminalWidth(a.out)-30, minNameWidth)
				rows := make([][]string, len(top))
				for i, e := range top {
					rows[i] = []string{rankLabel(e.Rank), truncate(e.UserID, width), strconv.Itoa(e.Score)}
				}
				if err := renderTable(a.out, []string{"Rank", "User", "Points"}, rows); err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.out, "%s: showing %d of %d users\n", name, len(top), board.Count(ctx))
				return err
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "season year (default: all seasons)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of users to show")
	return cmd
}

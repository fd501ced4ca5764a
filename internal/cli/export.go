package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/pitwall/internal/adapters/export"
	"github.com/okian/pitwall/internal/adapters/storage"
)

func newExportCommand(a *app) *cobra.Command {
	var out, format string
	var season int
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export scored bets to Parquet or CSV.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := export.FormatFromPath(out)
			if format != "" {
				parsed, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				f = parsed
			}
			ctx := cmd.Context()
			return a.withStore(ctx, func(st *storage.Store) error {
				rows, err := st.ScoredBets(ctx, season)
				if err != nil {
					return err
				}
				if err := export.WriteFile(out, f, rows); err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.out, "wrote %d scored bets to %s (%s)\n", len(rows), out, f)
				return err
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&out, "out", "o", "", "output file")
	fl.StringVar(&format, "format", "", "parquet or csv (default from the file extension)")
	fl.IntVar(&season, "season", 0, "season year (default: all seasons)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/pitwall/internal/adapters/storage"
	"github.com/okian/pitwall/internal/seed"
	"github.com/okian/pitwall/pkg/logger"
)

func newSeedCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load drivers and races.",
		Long:  "Seed the database from a YAML file, or with the built-in grid and calendar when --file is not given. Existing records are skipped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := seed.Default()
			if file != "" {
				loaded, err := seed.Load(file)
				if err != nil {
					return err
				}
				f = loaded
			}
			return a.withStore(cmd.Context(), func(st *storage.Store) error {
				sum, err := seed.Apply(cmd.Context(), st, f, a.now(), logger.Get().Named("seed"))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.out, "seeded %d drivers and %d races (%d already present)\n",
					sum.Drivers, sum.Races, sum.Skipped)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file")
	return cmd
}

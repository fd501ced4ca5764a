package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(a *app) *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations.",
		Long:  "Migrate to the latest schema, or to --version N. --version 0 rolls every migration back.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			v, err := st.Migrate(cmd.Context(), target)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "%s schema at version %d\n", st.Backend(), v)
			return err
		},
	}
	cmd.Flags().IntVar(&target, "version", -1, "target schema version (-1 for latest)")
	return cmd
}

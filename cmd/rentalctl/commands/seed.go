package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/segyhp/movie-rental/internal/storage"
)

func newSeedCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load movies, users, late fee rules and rentals from a JSON file",
		Long: `Seed inserts every record of the file whose ID is not in the store yet.
Existing records are left untouched, so seeding twice is harmless.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.grpcAddr != "" {
				return errors.New("seed writes to the configured store directly and cannot use --grpc-addr")
			}

			ds, err := storage.ReadSeedFile(file)
			if err != nil {
				return err
			}

			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Storage.Seed(ctx, ds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d records into the %s store\n", n, a.Config.Store.Backend)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the seed file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

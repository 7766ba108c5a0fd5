package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRentCmd(opts *options) *cobra.Command {
	var movieID, userID int64

	cmd := &cobra.Command{
		Use:   "rent",
		Short: "Rent one copy of a movie to a user",
		Example: `  rentalctl rent --movie 1 --user 2
  rentalctl rent --movie 1 --user 2 --grpc-addr localhost:9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()

			api, release, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer release()

			rental, err := api.Rent(ctx, movieID, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rental %d: movie %d rented to user %d, due %s\n",
				rental.ID, rental.MovieID, rental.UserID, rental.DueDate.Format(dateLayout))
			return nil
		},
	}

	cmd.Flags().Int64Var(&movieID, "movie", 0, "Movie ID")
	cmd.Flags().Int64Var(&userID, "user", 0, "User ID")
	_ = cmd.MarkFlagRequired("movie")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02 15:04"

func newReturnCmd(opts *options) *cobra.Command {
	var rentalID int64

	cmd := &cobra.Command{
		Use:   "return",
		Short: "Return a rented copy and settle its price",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()

			api, release, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer release()

			rental, err := api.Return(ctx, rentalID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rental %d returned %s\n", rental.ID, rental.ReturnDate.Format(dateLayout))
			if rental.LateFee != nil && rental.LateFee.IsPositive() {
				fmt.Fprintf(out, "late fee: %s\n", rental.LateFee.StringFixed(2))
			}
			if rental.TotalPrice != nil {
				fmt.Fprintf(out, "total: %s\n", rental.TotalPrice.StringFixed(2))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&rentalID, "rental", 0, "Rental ID")
	_ = cmd.MarkFlagRequired("rental")

	return cmd
}

package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newOverdueCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List active rentals past their due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.withTimeout(cmd)
			defer cancel()

			api, release, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer release()

			views, err := api.ListOverdue(ctx)
			if err != nil {
				return err
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no overdue rentals")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RENTAL\tMOVIE\tUSER\tDUE\tDAYS OVERDUE")
			for _, v := range views {
				fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%d\n", v.ID, v.MovieID, v.UserID, v.DueDate.Format(dateLayout), v.DaysOverdue)
			}
			return w.Flush()
		},
	}
}

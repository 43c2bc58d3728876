package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newNotificationsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "List the signed-in user's notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := e.runtime.Session.Start(ctx); err != nil {
				return err
			}
			if !e.runtime.Session.Authenticated() {
				return errors.New("not signed in; run login first")
			}
			items, err := e.runtime.Inbox.List(ctx)
			if err != nil {
				return userError(err)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notifications.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREAD\tDATE\tTITLE")
			for _, item := range items {
				date := "-"
				if item.CreatedAt != nil {
					date = item.CreatedAt.Local().Format(time.DateOnly)
				}
				fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", item.ID, item.Read, date, item.Title)
			}
			return w.Flush()
		},
	}
}

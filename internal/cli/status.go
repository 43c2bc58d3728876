package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the restored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess := e.runtime.Session
			if err := sess.Start(cmd.Context()); err != nil {
				return err
			}
			snapshot := sess.Snapshot()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "State:\t%s\n", snapshot.State)
			if identity := snapshot.Identity; identity != nil {
				fmt.Fprintf(w, "Login:\t%s\n", identity.Login)
				fmt.Fprintf(w, "Name:\t%s\n", identity.FullName)
				fmt.Fprintf(w, "User ID:\t%s\n", strconv.FormatInt(identity.ID, 10))
				fmt.Fprintf(w, "Institution:\t%s\n", strconv.FormatInt(identity.InstitutionID, 10))
				fmt.Fprintf(w, "Roles:\t%s\n", strings.Join(identity.RoleNames, ", "))
			}
			if claims, ok := sess.Claims(); ok && claims.ExpiresAt != nil {
				expiry := claims.ExpiresAt.Local().Format(time.RFC1123)
				if claims.Expired(time.Now()) {
					expiry += " (expired)"
				}
				fmt.Fprintf(w, "Expires:\t%s\n", expiry)
			}
			return w.Flush()
		},
	}
}

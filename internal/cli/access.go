package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/academia-portal/internal/guard"
)

func newAccessCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "access <path>",
		Short: "Show the route guard decision for a path",
		Example: `  academiactl access /finance
  academiactl access /library/loans`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			sess := e.runtime.Session
			if err := sess.Start(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			route, ok := e.runtime.Table.Match(path)
			if !ok {
				fmt.Fprintf(out, "%s\tpermit\t(not guarded)\n", path)
				return nil
			}
			decision := guard.Decide(sess.Snapshot(), route.Requirement, e.runtime.Routes)
			switch decision.Outcome {
			case guard.Permit:
				fmt.Fprintf(out, "%s\t%s\t%s\n", path, decision.Outcome, route.Title)
			default:
				fmt.Fprintf(out, "%s\t%s\t%s\n", path, decision.Outcome, decision.Redirect)
			}
			return nil
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

func newLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess := e.runtime.Session
			if err := sess.Start(ctx); err != nil {
				return err
			}
			if err := sess.SignOut(ctx); err != nil {
				if apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
					return nil
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

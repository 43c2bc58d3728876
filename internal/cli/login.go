package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/spec-kit/academia-portal/internal/exchange"
	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

func newLoginCommand(e *env) *cobra.Command {
	var (
		login         string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Long: `Exchanges login and password for a session token at the backend login
endpoint and stores it in the configured token store. Later commands restore
the session from that store.

Without --password-stdin the password is read from the terminal with echo off.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess := e.runtime.Session
			if err := sess.Start(ctx); err != nil {
				return err
			}
			if identity := sess.Identity(); identity != nil {
				return fmt.Errorf("already signed in as %s; run logout first", identity.Login)
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			if login == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Login: ")
				line, err := reader.ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read login: %w", err)
				}
				login = strings.TrimSpace(line)
			}
			if login == "" {
				return apperrors.NewValidationError("login is required", nil)
			}

			password, err := readPassword(cmd, reader, passwordStdin)
			if err != nil {
				return err
			}

			identity, err := sess.SignIn(ctx, exchange.Credentials{Login: login, Password: password})
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signed in as %s (%s)\n", identity.FullName, identity.Login)
			fmt.Fprintf(out, "Roles: %s\n", strings.Join(identity.RoleNames, ", "))
			fmt.Fprintf(out, "Landing: %s\n", e.runtime.History.Current())
			return nil
		},
	}
	cmd.Flags().StringVarP(&login, "login", "l", "", "login name (prompted when omitted)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func readPassword(cmd *cobra.Command, reader *bufio.Reader, fromStdin bool) (string, error) {
	if fromStdin {
		raw, err := io.ReadAll(reader)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(string(raw), "\r\n")
		if password == "" {
			return "", apperrors.NewValidationError("password is required", nil)
		}
		return password, nil
	}

	file, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return "", apperrors.NewValidationError("no terminal available for the password prompt (use --password-stdin)", nil)
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	raw, err := term.ReadPassword(int(file.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(raw) == 0 {
		return "", apperrors.NewValidationError("password is required", nil)
	}
	return string(raw), nil
}

// userError reduces session errors to the message a person should read.
func userError(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == apperrors.CodeAuthenticationFailed {
		return errors.New(domainErr.Message)
	}
	return err
}

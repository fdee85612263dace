// ABOUTME: Account commands: login, logout, whoami, signup and backend status
// ABOUTME: Prompts for passwords without echo when stdin is a terminal
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/harperreed/leadlab/models"
)

// prompt reads one line of stdin after printing label to stderr. The
// reader is kept so a second prompt sees what the first one buffered.
func (rt *runtime) prompt(cmd *cobra.Command, label string) (string, error) {
	if rt.stdin == nil {
		rt.stdin = bufio.NewReader(cmd.InOrStdin())
	}
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := rt.stdin.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword hides input on a terminal and falls back to one line of stdin.
func (rt *runtime) readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}
	return rt.prompt(cmd, "Password: ")
}

func newLoginCommand(rt *runtime) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				var err error
				if email, err = rt.prompt(cmd, "Email: "); err != nil {
					return err
				}
			}
			password, err := rt.readPassword(cmd)
			if err != nil {
				return err
			}
			if strings.TrimSpace(email) == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}
			if err := rt.app.Auth.Login(cmd.Context(), email, password); err != nil {
				return &userError{msg: rt.app.Auth.Snapshot().Error, err: err}
			}
			user := rt.app.Auth.Snapshot().User
			return rt.emit(cmd, user, func(w io.Writer) {
				done(w, fmt.Sprintf("Signed in as %s", user.Email))
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted when omitted)")
	return cmd
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt.app.Auth.Logout()
			done(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.session(cmd.Context())
			if err != nil {
				return err
			}
			user := a.Auth.Snapshot().User
			return rt.emit(cmd, user, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "%s <%s>\n", dash(user.Name), user.Email)
				role := "member"
				if user.IsAdmin {
					role = "admin"
				}
				_, _ = fmt.Fprintf(w, "  Role: %s\n", role)
				if user.OrganizationID != nil {
					_, _ = fmt.Fprintf(w, "  Organization: %s\n", user.OrganizationID)
				}
			})
		},
	}
}

func newSignupCommand(rt *runtime) *cobra.Command {
	var form models.SignupForm
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if form.Password == "" {
				pw, err := rt.readPassword(cmd)
				if err != nil {
					return err
				}
				form.Password = pw
			}
			ctx := cmd.Context()
			user, err := rt.app.Services.Auth.Signup(ctx, form)
			if err != nil {
				return failure(err, "create your account")
			}
			if err := rt.app.Auth.Login(ctx, form.Email, form.Password); err != nil {
				return fmt.Errorf("account created but sign in failed: %s", rt.app.Auth.Snapshot().Error)
			}
			return rt.emit(cmd, user, func(w io.Writer) {
				done(w, fmt.Sprintf("Account created: %s", user.Email))
				if form.OrganizationName != "" {
					_, _ = fmt.Fprintf(w, "  Organization: %s\n", form.OrganizationName)
				}
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Name, "name", "", "Full name (required)")
	f.StringVar(&form.Email, "email", "", "Email (required)")
	f.StringVar(&form.OrganizationName, "org", "", "Organization name")
	return cmd
}

func newStatusCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.status(cmd.Context(), cmd)
		},
	}
}

func (rt *runtime) status(ctx context.Context, cmd *cobra.Command) error {
	health, err := rt.app.Services.Health.Check(ctx)
	if err != nil {
		return failure(err, "reach the backend")
	}
	return rt.emit(cmd, health, func(w io.Writer) {
		if health.Healthy() {
			done(w, fmt.Sprintf("Backend %s is healthy", rt.app.Config.APIURL))
		} else {
			warn(w, "Backend %s reports %q", rt.app.Config.APIURL, health.Status)
		}
		if health.Version != "" {
			_, _ = fmt.Fprintf(w, "  Version: %s\n", health.Version)
		}
	})
}

// ABOUTME: Calendly integration commands
// ABOUTME: Runs the OAuth authorization-code flow through a local callback listener
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/harperreed/leadlab/app"
	"github.com/harperreed/leadlab/calendly"
	"github.com/harperreed/leadlab/models"
)

func newCalendlyCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendly",
		Short: "Connect or disconnect Calendly",
	}
	cmd.AddCommand(
		newCalendlyStatusCommand(rt),
		newCalendlyConnectCommand(rt),
		newCalendlyCompleteCommand(rt),
		newCalendlyDisconnectCommand(rt),
	)
	return cmd
}

func calendlyFlow(a *app.App) (*calendly.Flow, error) {
	flow, err := calendly.NewFlow(a.Config.CalendlyClientID, a.Config.CalendlyRedirectURI, a.Services.Calendly, a.Logger)
	if errors.Is(err, calendly.ErrNotConfigured) {
		return nil, fmt.Errorf("calendly is not configured: set LEADLAB_CALENDLY_CLIENT_ID")
	}
	return flow, err
}

func connected(w io.Writer, st *models.CalendlyStatus) {
	if st == nil || !st.Connected {
		_, _ = fmt.Fprintln(w, "Calendly is not connected")
		return
	}
	details := []string{}
	if st.Email != "" {
		details = append(details, "Account: "+st.Email)
	}
	if !st.ConnectedAt.IsZero() {
		details = append(details, "Since: "+st.ConnectedAt.Local().Format("2006-01-02 15:04"))
	}
	done(w, "Calendly connected", details...)
}

func newCalendlyStatusCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether Calendly is connected",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			if !a.Config.CalendlyEnabled() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Calendly integration is not configured")
				return nil
			}
			st, err := a.Services.Calendly.Status(ctx)
			if err != nil {
				return failure(err, "load calendly status")
			}
			return rt.emit(cmd, st, func(w io.Writer) { connected(w, st) })
		},
	}
}

func newCalendlyConnectCommand(rt *runtime) *cobra.Command {
	var (
		noBrowser bool
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Authorize Calendly in the browser and wait for the redirect",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.session(cmd.Context())
			if err != nil {
				return err
			}
			flow, err := calendlyFlow(a)
			if err != nil {
				return err
			}
			out := cmd.ErrOrStderr()
			_, _ = fmt.Fprintf(out, "Open this URL to authorize LeadLab:\n\n  %s\n\n", flow.AuthURL())
			if !noBrowser {
				if err := calendly.OpenBrowser(flow.AuthURL()); err != nil {
					a.Logger.Debug("could not open browser", "err", err)
				}
			}
			_, _ = fmt.Fprintf(out, "Waiting for the redirect to %s ...\n", flow.RedirectURI())

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			st, err := flow.Listen(ctx)
			if err != nil {
				return calendlyError(err)
			}
			return rt.emit(cmd, st, func(w io.Writer) { connected(w, st) })
		},
	}
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Only print the authorization URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the redirect")
	return cmd
}

func newCalendlyCompleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "complete CALLBACK_URL",
		Short: "Finish a connection from a pasted redirect URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			flow, err := calendlyFlow(a)
			if err != nil {
				return err
			}
			cb, err := calendly.ParseCallbackURL(args[0])
			if err != nil {
				return err
			}
			// The pasted URL came from an earlier connect, so its state
			// cannot match this process.
			cb.State = ""
			st, err := flow.Complete(ctx, cb)
			if err != nil {
				return calendlyError(err)
			}
			return rt.emit(cmd, st, func(w io.Writer) { connected(w, st) })
		},
	}
}

func newCalendlyDisconnectCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Remove the stored Calendly token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			if err := a.Services.Calendly.Disconnect(ctx); err != nil {
				return failure(err, "disconnect calendly")
			}
			done(cmd.OutOrStdout(), "Calendly disconnected")
			return nil
		},
	}
}

// calendlyError keeps the provider's own wording for denied authorizations.
func calendlyError(err error) error {
	var denied *calendly.DeniedError
	switch {
	case errors.As(err, &denied):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("timed out waiting for the Calendly redirect")
	case errors.Is(err, calendly.ErrNoCode), errors.Is(err, calendly.ErrStateMismatch):
		return err
	}
	return failure(err, "connect calendly")
}

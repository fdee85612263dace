// ABOUTME: Email CLI commands
// ABOUTME: Account management, folder listings, sending, and syncing one or all accounts
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
)

func newEmailCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Email accounts and messages",
	}
	accounts := &cobra.Command{
		Use:   "accounts",
		Short: "Manage connected email accounts",
	}
	accounts.AddCommand(
		newEmailAccountsListCommand(rt),
		newEmailAccountsAddCommand(rt),
		newEmailAccountsRemoveCommand(rt),
	)
	cmd.AddCommand(
		accounts,
		newEmailSyncCommand(rt),
		newEmailMessagesCommand(rt),
		newEmailSendCommand(rt),
		newEmailFlagCommand(rt),
	)
	return cmd
}

func newEmailAccountsListCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List email accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			accounts, err := a.Services.Email.Accounts(ctx)
			if err != nil {
				return failure(err, "load email accounts")
			}
			return rt.emit(cmd, accounts, func(w io.Writer) {
				if len(accounts) == 0 {
					empty(w, "email accounts")
					return
				}
				rows := make([][]string, 0, len(accounts))
				for _, acct := range accounts {
					synced := "never"
					if !acct.LastSyncedAt.IsZero() {
						synced = acct.LastSyncedAt.Local().Format("2006-01-02 15:04")
					}
					rows = append(rows, []string{acct.Email, dash(acct.Provider), synced, acct.ID.String()})
				}
				table(w, []string{"EMAIL", "PROVIDER", "LAST SYNC", "ID"}, rows)
			})
		},
	}
}

func newEmailAccountsAddCommand(rt *runtime) *cobra.Command {
	var form models.EmailAccountForm
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Connect an IMAP/SMTP account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			if form.Password == "" {
				if form.Password, err = rt.readPassword(cmd); err != nil {
					return err
				}
			}
			acct, err := a.Services.Email.AddAccount(ctx, form)
			if err != nil {
				return failure(err, "add the email account")
			}
			return rt.emit(cmd, acct, func(w io.Writer) {
				done(w, fmt.Sprintf("Email account added: %s (ID: %s)", acct.Email, acct.ID))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Email, "email", "", "Address (required)")
	f.StringVar(&form.DisplayName, "name", "", "Display name")
	f.StringVar(&form.Provider, "provider", "", "Provider label such as gmail or imap")
	f.StringVar(&form.IMAPHost, "imap-host", "", "IMAP host")
	f.StringVar(&form.IMAPPort, "imap-port", "993", "IMAP port")
	f.StringVar(&form.SMTPHost, "smtp-host", "", "SMTP host")
	f.StringVar(&form.SMTPPort, "smtp-port", "587", "SMTP port")
	f.StringVar(&form.Username, "username", "", "Login name, defaults to the address on most servers")
	return cmd
}

func newEmailAccountsRemoveCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Disconnect an email account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.remove(cmd, "email account", args[0], func(ctx context.Context, svc *services.Services, id uuid.UUID) error {
				return svc.Email.RemoveAccount(ctx, id)
			})
		},
	}
}

type syncJSON struct {
	AccountID   uuid.UUID `json:"account_id"`
	Email       string    `json:"email"`
	NewMessages int       `json:"new_messages"`
	Error       string    `json:"error,omitempty"`
}

func newEmailSyncCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [ACCOUNT_ID]",
		Short: "Sync one account, or every account concurrently",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			accounts, err := a.Services.Email.Accounts(ctx)
			if err != nil {
				return failure(err, "load email accounts")
			}
			if len(args) == 1 {
				id, err := parseID("email account", args[0])
				if err != nil {
					return err
				}
				var picked []models.EmailAccount
				for _, acct := range accounts {
					if acct.ID == id {
						picked = append(picked, acct)
					}
				}
				if len(picked) == 0 {
					return fmt.Errorf("no email account with id %s", id)
				}
				accounts = picked
			}
			if len(accounts) == 0 {
				empty(cmd.OutOrStdout(), "email accounts")
				return nil
			}

			outcomes := a.Services.Email.SyncAll(ctx, accounts)
			report := make([]syncJSON, len(outcomes))
			failed := 0
			for i, o := range outcomes {
				report[i] = syncJSON{AccountID: o.Account.ID, Email: o.Account.Email}
				if o.Err != nil {
					failed++
					report[i].Error = failure(o.Err, "sync "+o.Account.Email).Error()
					continue
				}
				report[i].NewMessages = o.Result.NewMessages
			}
			if err := rt.emit(cmd, report, func(w io.Writer) {
				for _, r := range report {
					if r.Error != "" {
						warn(w, "✗ %s: %s", r.Email, r.Error)
						continue
					}
					done(w, fmt.Sprintf("Synced %s: %d new", r.Email, r.NewMessages))
				}
			}); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d accounts failed to sync", failed, len(outcomes))
			}
			return nil
		},
	}
}

func newEmailMessagesCommand(rt *runtime) *cobra.Command {
	var (
		folder string
		unread bool
	)
	cmd := &cobra.Command{
		Use:   "messages ACCOUNT_ID",
		Short: "List messages in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			id, err := parseID("email account", args[0])
			if err != nil {
				return err
			}
			f, err := parseFolder(folder)
			if err != nil {
				return err
			}
			msgs, err := a.Services.Email.Messages(ctx, id, f)
			if err != nil {
				return failure(err, "load messages")
			}
			if unread {
				kept := msgs[:0]
				for _, m := range msgs {
					if !m.IsRead {
						kept = append(kept, m)
					}
				}
				msgs = kept
			}
			return rt.emit(cmd, msgs, func(w io.Writer) {
				if len(msgs) == 0 {
					empty(w, "messages")
					return
				}
				rows := make([][]string, 0, len(msgs))
				for _, m := range msgs {
					flags := ""
					if !m.IsRead {
						flags += "●"
					}
					if m.IsStarred {
						flags += "★"
					}
					rows = append(rows, []string{dash(flags), m.From, m.Subject, dateOrDash(m.ReceivedAt), m.ID.String()})
				}
				table(w, []string{"", "FROM", "SUBJECT", "RECEIVED", "ID"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&folder, "folder", string(models.FolderInbox), "inbox, sent, drafts, archive or trash")
	cmd.Flags().BoolVar(&unread, "unread", false, "Only unread messages")
	return cmd
}

func parseFolder(s string) (models.EmailFolder, error) {
	for _, f := range models.EmailFolders {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown folder %q", s)
}

func newEmailSendCommand(rt *runtime) *cobra.Command {
	var form models.ComposeForm
	cmd := &cobra.Command{
		Use:   "send ACCOUNT_ID",
		Short: "Send a message from an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			id, err := parseID("email account", args[0])
			if err != nil {
				return err
			}
			if form.Body == "-" {
				body, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read body: %w", err)
				}
				form.Body = string(body)
			}
			msg, err := a.Services.Email.Send(ctx, id, form)
			if err != nil {
				return failure(err, "send the message")
			}
			return rt.emit(cmd, msg, func(w io.Writer) {
				done(w, fmt.Sprintf("Sent to %s", strings.Join(msg.To, ", ")))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.To, "to", "", "Comma separated recipients (required)")
	f.StringVar(&form.Subject, "subject", "", "Subject")
	f.StringVar(&form.Body, "body", "", "Body text, or - to read stdin")
	return cmd
}

func newEmailFlagCommand(rt *runtime) *cobra.Command {
	var (
		read, unread, star, unstar bool
		move                       string
	)
	cmd := &cobra.Command{
		Use:   "flag MESSAGE_ID",
		Short: "Mark a message read, starred or move it to a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			id, err := parseID("message", args[0])
			if err != nil {
				return err
			}
			var patch models.MessagePatch
			if read || unread {
				v := read
				patch.IsRead = &v
			}
			if star || unstar {
				v := star
				patch.IsStarred = &v
			}
			if move != "" {
				f, err := parseFolder(move)
				if err != nil {
					return err
				}
				patch.Folder = &f
			}
			if patch.IsRead == nil && patch.IsStarred == nil && patch.Folder == nil {
				return fmt.Errorf("nothing to change: pass --read, --unread, --star, --unstar or --move")
			}
			msg, err := a.Services.Email.UpdateMessage(ctx, id, patch)
			if err != nil {
				return failure(err, "update the message")
			}
			return rt.emit(cmd, msg, func(w io.Writer) {
				done(w, fmt.Sprintf("Updated %q", msg.Subject))
			})
		},
	}
	f := cmd.Flags()
	f.BoolVar(&read, "read", false, "Mark read")
	f.BoolVar(&unread, "unread", false, "Mark unread")
	f.BoolVar(&star, "star", false, "Star")
	f.BoolVar(&unstar, "unstar", false, "Remove the star")
	f.StringVar(&move, "move", "", "Move to folder")
	cmd.MarkFlagsMutuallyExclusive("read", "unread")
	cmd.MarkFlagsMutuallyExclusive("star", "unstar")
	return cmd
}

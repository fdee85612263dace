// ABOUTME: Notification CLI commands
// ABOUTME: Lists notifications, shows the unread count and marks them read
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newNotificationsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notifs"},
		Short:   "Read and clear notifications",
	}
	var unread bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			items, err := a.Services.Notifications.List(ctx, unread)
			if err != nil {
				return failure(err, "load notifications")
			}
			return rt.emit(cmd, items, func(w io.Writer) {
				if len(items) == 0 {
					empty(w, "notifications")
					return
				}
				for _, n := range items {
					marker := " "
					if !n.IsRead {
						marker = checkStyle.Render("●")
					}
					_, _ = fmt.Fprintf(w, "%s %s  %s\n", marker, n.Title, faint(dateOrDash(n.CreatedAt)))
					if n.Message != "" {
						_, _ = fmt.Fprintf(w, "    %s\n", n.Message)
					}
					_, _ = fmt.Fprintf(w, "    %s\n", faint(n.ID.String()))
				}
			})
		},
	}
	list.Flags().BoolVar(&unread, "unread", false, "Only unread notifications")

	count := &cobra.Command{
		Use:   "count",
		Short: "Print the unread count",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			n, err := a.Services.Notifications.UnreadCount(ctx)
			if err != nil {
				return failure(err, "load the unread count")
			}
			return rt.emit(cmd, map[string]int{"unread": n}, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, n)
			})
		},
	}

	var all bool
	read := &cobra.Command{
		Use:   "read [ID]",
		Short: "Mark one notification, or all of them, as read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			switch {
			case all:
				if err := a.Services.Notifications.MarkAllRead(ctx); err != nil {
					return failure(err, "mark notifications read")
				}
				done(cmd.OutOrStdout(), "All notifications marked read")
				return nil
			case len(args) == 1:
				id, err := parseID("notification", args[0])
				if err != nil {
					return err
				}
				if err := a.Services.Notifications.MarkRead(ctx, id); err != nil {
					return failure(err, "mark the notification read")
				}
				done(cmd.OutOrStdout(), "Notification marked read")
				return nil
			}
			return fmt.Errorf("pass a notification id or --all")
		},
	}
	read.Flags().BoolVar(&all, "all", false, "Mark every notification read")

	cmd.AddCommand(list, count, read)
	return cmd
}

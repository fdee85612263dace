// ABOUTME: Admin CLI commands for users, pipeline stages and the organization
// ABOUTME: Every command here requires an admin session
package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
)

func newUsersCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage organization users (admin)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List users",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				a, err := rt.admin(ctx)
				if err != nil {
					return err
				}
				users, err := a.Services.Users.List(ctx)
				if err != nil {
					return failure(err, "load users")
				}
				return rt.emit(cmd, users, func(w io.Writer) {
					if len(users) == 0 {
						empty(w, "users")
						return
					}
					rows := make([][]string, 0, len(users))
					for _, u := range users {
						role := "member"
						if u.IsAdmin {
							role = "admin"
						}
						rows = append(rows, []string{dash(u.Name), u.Email, role, strconv.FormatBool(u.IsActive), u.ID.String()})
					}
					table(w, []string{"NAME", "EMAIL", "ROLE", "ACTIVE", "ID"}, rows)
				})
			},
		},
		newUsersAddCommand(rt),
		newUsersRoleCommand(rt),
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := rt.admin(cmd.Context()); err != nil {
					return err
				}
				return rt.remove(cmd, "user", args[0], func(ctx context.Context, svc *services.Services, id uuid.UUID) error {
					if id == rt.app.Auth.Snapshot().User.ID {
						return fmt.Errorf("you cannot delete your own account")
					}
					return svc.Users.Remove(ctx, id)
				})
			},
		},
	)
	return cmd
}

func newUsersAddCommand(rt *runtime) *cobra.Command {
	var form models.UserForm
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Invite a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.admin(ctx)
			if err != nil {
				return err
			}
			if form.Password == "" {
				if form.Password, err = rt.readPassword(cmd); err != nil {
					return err
				}
			}
			u, err := a.Services.Users.Create(ctx, form)
			if err != nil {
				return failure(err, "create the user")
			}
			return rt.emit(cmd, u, func(w io.Writer) {
				done(w, fmt.Sprintf("User created: %s (ID: %s)", u.Email, u.ID))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Name, "name", "", "Full name")
	f.StringVar(&form.Email, "email", "", "Email (required)")
	f.BoolVar(&form.IsAdmin, "admin", false, "Grant admin access")
	return cmd
}

func newUsersRoleCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:       "role ID admin|member",
		Short:     "Grant or revoke admin access",
		Args:      cobra.MatchAll(cobra.ExactArgs(2), cobra.OnlyValidArgs),
		ValidArgs: []string{"admin", "member"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.admin(ctx)
			if err != nil {
				return err
			}
			id, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			if args[1] != "admin" && args[1] != "member" {
				return fmt.Errorf("role must be admin or member")
			}
			if id == a.Auth.Snapshot().User.ID {
				return fmt.Errorf("you cannot change your own role")
			}
			users, err := a.Services.Users.List(ctx)
			if err != nil {
				return failure(err, "load users")
			}
			for _, u := range users {
				if u.ID != id {
					continue
				}
				updated, err := a.Services.Users.Update(ctx, id, models.UserForm{Name: u.Name, Email: u.Email, IsAdmin: args[1] == "admin"})
				if err != nil {
					return failure(err, "update the user")
				}
				return rt.emit(cmd, updated, func(w io.Writer) {
					done(w, fmt.Sprintf("%s is now %s", updated.Email, args[1]))
				})
			}
			return fmt.Errorf("no user with id %s", id)
		},
	}
}

func newStagesCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Manage lead pipeline stages (admin)",
	}
	var form models.StageForm
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.admin(ctx)
			if err != nil {
				return err
			}
			st, err := a.Services.Stages.Create(ctx, form)
			if err != nil {
				return failure(err, "create the stage")
			}
			return rt.emit(cmd, st, func(w io.Writer) {
				done(w, fmt.Sprintf("Stage created: %s at position %d (ID: %s)", st.Name, st.Position, st.ID))
			})
		},
	}
	f := add.Flags()
	f.StringVar(&form.Name, "name", "", "Stage name (required)")
	f.StringVar(&form.Color, "color", "", "Column color such as #4f46e5")
	f.StringVar(&form.Position, "position", "", "Column position, left to right")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stages in board order",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				a, err := rt.session(ctx)
				if err != nil {
					return err
				}
				stages, err := a.Services.Stages.List(ctx)
				if err != nil {
					return failure(err, "load stages")
				}
				sort.SliceStable(stages, func(i, j int) bool { return stages[i].Position < stages[j].Position })
				return rt.emit(cmd, stages, func(w io.Writer) {
					if len(stages) == 0 {
						empty(w, "stages")
						return
					}
					rows := make([][]string, 0, len(stages))
					for _, st := range stages {
						rows = append(rows, []string{strconv.Itoa(st.Position), st.Name, dash(st.Color), st.ID.String()})
					}
					table(w, []string{"POS", "NAME", "COLOR", "ID"}, rows)
				})
			},
		},
		add,
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a stage",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := rt.admin(cmd.Context()); err != nil {
					return err
				}
				return rt.remove(cmd, "stage", args[0], func(ctx context.Context, svc *services.Services, id uuid.UUID) error {
					return svc.Stages.Remove(ctx, id)
				})
			},
		},
	)
	return cmd
}

func newOrgCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Show or rename the organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			org, err := a.Services.Organization.Get(ctx)
			if err != nil {
				return failure(err, "load the organization")
			}
			return rt.emit(cmd, org, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "%s\n", org.Name)
				_, _ = fmt.Fprintf(w, "  ID: %s\n", org.ID)
				_, _ = fmt.Fprintf(w, "  Created: %s\n", dateOrDash(org.CreatedAt))
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rename NAME",
		Short: "Rename the organization (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.admin(ctx)
			if err != nil {
				return err
			}
			org, err := a.Services.Organization.Rename(ctx, args[0])
			if err != nil {
				return failure(err, "rename the organization")
			}
			return rt.emit(cmd, org, func(w io.Writer) {
				done(w, "Organization renamed to "+org.Name)
			})
		},
	})
	return cmd
}

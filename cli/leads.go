// ABOUTME: Lead CLI commands
// ABOUTME: List, search, show, add, move between stages, note, tag and delete leads
package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
)

func newLeadsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "leads",
		Aliases: []string{"lead"},
		Short:   "Manage leads",
	}
	cmd.AddCommand(
		newLeadsListCommand(rt),
		newLeadsSearchCommand(rt),
		newLeadsShowCommand(rt),
		newLeadsAddCommand(rt),
		newLeadsMoveCommand(rt),
		newLeadsNoteCommand(rt),
		newLeadsTagCommand(rt),
		newLeadsDeleteCommand(rt),
	)
	return cmd
}

// resolveStage accepts a stage id or a case-insensitive stage name.
func resolveStage(ctx context.Context, svc *services.Services, arg string) (*models.Stage, error) {
	stages, err := svc.Stages.List(ctx)
	if err != nil {
		return nil, failure(err, "load stages")
	}
	arg = strings.TrimSpace(arg)
	for i, st := range stages {
		if st.ID.String() == arg || strings.EqualFold(st.Name, arg) {
			return &stages[i], nil
		}
	}
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Name
	}
	return nil, fmt.Errorf("unknown stage %q (stages: %s)", arg, strings.Join(names, ", "))
}

func stageNames(stages []models.Stage) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(stages))
	for _, st := range stages {
		names[st.ID] = st.Name
	}
	return names
}

func leadRows(leads []models.Lead, stages map[uuid.UUID]string) [][]string {
	rows := make([][]string, 0, len(leads))
	for _, l := range leads {
		stage := "-"
		if l.StageID != nil {
			stage = dash(stages[*l.StageID])
		}
		rows = append(rows, []string{l.FullName(), dash(l.Company), dash(l.Email), stage, money(l.Value, ""), l.ID.String()})
	}
	return rows
}

var leadHeader = []string{"NAME", "COMPANY", "EMAIL", "STAGE", "VALUE", "ID"}

func newLeadsListCommand(rt *runtime) *cobra.Command {
	var (
		search, stage string
		limit         int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			filter := services.LeadFilter{Search: search, Paging: services.Paging{Limit: limit}}
			if stage != "" {
				st, err := resolveStage(ctx, a.Services, stage)
				if err != nil {
					return err
				}
				filter.StageID = &st.ID
			}
			page, err := a.Services.Leads.List(ctx, filter)
			if err != nil {
				return failure(err, "load leads")
			}
			stages, err := a.Services.Stages.List(ctx)
			if err != nil {
				return failure(err, "load stages")
			}
			return rt.emit(cmd, page, func(w io.Writer) {
				if len(page.Items) == 0 {
					empty(w, "leads")
					return
				}
				table(w, leadHeader, leadRows(page.Items, stageNames(stages)))
				if page.Total > len(page.Items) {
					_, _ = fmt.Fprintln(w, faint(fmt.Sprintf("Showing %d of %d leads", len(page.Items), page.Total)))
				}
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&search, "search", "", "Server-side search over name, email and company")
	f.StringVar(&stage, "stage", "", "Only leads in this stage (name or id)")
	f.IntVar(&limit, "limit", 100, "Maximum results")
	return cmd
}

func newLeadsSearchCommand(rt *runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "Find leads the way the lead picker does",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			leads, err := a.Services.Leads.Search(ctx, strings.Join(args, " "), limit)
			if err != nil {
				return failure(err, "search leads")
			}
			return rt.emit(cmd, leads, func(w io.Writer) {
				if len(leads) == 0 {
					empty(w, "leads")
					return
				}
				for _, l := range leads {
					_, _ = fmt.Fprintf(w, "%s  %s %s\n", shortID(l.ID), l.FullName(), faint(dash(l.Company)))
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results")
	return cmd
}

type leadDetail struct {
	Lead         *models.Lead         `json:"lead"`
	Notes        []models.Note        `json:"notes"`
	InfoRequests []models.InfoRequest `json:"info_requests"`
}

func newLeadsShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a lead with its notes and info requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			id, err := parseID("lead", args[0])
			if err != nil {
				return err
			}
			lead, err := a.Services.Leads.Get(ctx, id)
			if err != nil {
				return failure(err, "load the lead")
			}
			notes, err := a.Services.Leads.Notes(ctx, id)
			if err != nil {
				return failure(err, "load notes")
			}
			requests, err := a.Services.Leads.InfoRequests(ctx, id)
			if err != nil {
				return failure(err, "load info requests")
			}
			sort.Slice(notes, func(i, j int) bool { return notes[i].CreatedAt.After(notes[j].CreatedAt.Time) })

			detail := leadDetail{Lead: lead, Notes: notes, InfoRequests: requests}
			return rt.emit(cmd, detail, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "%s\n", lead.FullName())
				_, _ = fmt.Fprintf(w, "  Company: %s\n", dash(lead.Company))
				_, _ = fmt.Fprintf(w, "  Title: %s\n", dash(lead.JobTitle))
				_, _ = fmt.Fprintf(w, "  Email: %s\n", dash(lead.Email))
				_, _ = fmt.Fprintf(w, "  Phone: %s\n", dash(lead.Phone))
				_, _ = fmt.Fprintf(w, "  Source: %s\n", dash(lead.Source))
				_, _ = fmt.Fprintf(w, "  Value: %s\n", money(lead.Value, ""))
				if len(lead.Tags) > 0 {
					names := make([]string, len(lead.Tags))
					for i, t := range lead.Tags {
						names[i] = t.Name
					}
					_, _ = fmt.Fprintf(w, "  Tags: %s\n", strings.Join(names, ", "))
				}
				_, _ = fmt.Fprintf(w, "\nNotes (%d)\n", len(notes))
				for _, n := range notes {
					_, _ = fmt.Fprintf(w, "  %s  %s\n", faint(dateOrDash(n.CreatedAt)), n.Content)
				}
				_, _ = fmt.Fprintf(w, "\nInfo requests (%d)\n", len(requests))
				for _, r := range requests {
					_, _ = fmt.Fprintf(w, "  %s  %s [%s]\n", faint(dateOrDash(r.CreatedAt)), r.Subject, dash(r.Status))
				}
			})
		},
	}
}

func newLeadsAddCommand(rt *runtime) *cobra.Command {
	var (
		form  models.LeadForm
		stage string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			if stage != "" {
				st, err := resolveStage(ctx, a.Services, stage)
				if err != nil {
					return err
				}
				form.StageID = st.ID.String()
			}
			lead, err := a.Services.Leads.Create(ctx, form)
			if err != nil {
				return failure(err, "create the lead")
			}
			return rt.emit(cmd, lead, func(w io.Writer) {
				done(w, fmt.Sprintf("Lead created: %s (ID: %s)", lead.FullName(), lead.ID),
					"Company: "+dash(lead.Company),
					"Value: "+money(lead.Value, ""))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.FirstName, "first", "", "First name (required)")
	f.StringVar(&form.LastName, "last", "", "Last name")
	f.StringVar(&form.Email, "email", "", "Email")
	f.StringVar(&form.Phone, "phone", "", "Phone")
	f.StringVar(&form.Company, "company", "", "Company")
	f.StringVar(&form.JobTitle, "title", "", "Job title")
	f.StringVar(&form.Source, "source", "", "Where the lead came from")
	f.StringVar(&form.Value, "value", "", "Estimated value")
	f.StringVar(&stage, "stage", "", "Stage name or id")
	return cmd
}

func newLeadsMoveCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID STAGE",
		Short: "Move a lead to another stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			id, err := parseID("lead", args[0])
			if err != nil {
				return err
			}
			st, err := resolveStage(ctx, a.Services, args[1])
			if err != nil {
				return err
			}
			lead, err := a.Services.Leads.MoveStage(ctx, id, st.ID)
			if err != nil {
				return failure(err, "move the lead")
			}
			return rt.emit(cmd, lead, func(w io.Writer) {
				done(w, fmt.Sprintf("Lead %s moved to %s", lead.FullName(), st.Name))
			})
		},
	}
}

func newLeadsNoteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "note ID TEXT...",
		Short: "Add a note to a lead",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			id, err := parseID("lead", args[0])
			if err != nil {
				return err
			}
			note, err := a.Services.Leads.AddNote(ctx, id, strings.Join(args[1:], " "))
			if err != nil {
				return failure(err, "add the note")
			}
			return rt.emit(cmd, note, func(w io.Writer) {
				done(w, "Note added")
			})
		},
	}
}

func newLeadsTagCommand(rt *runtime) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "tag ID NAME",
		Short: "Tag a lead, creating the tag when it does not exist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			id, err := parseID("lead", args[0])
			if err != nil {
				return err
			}
			tags, err := a.Services.Tags.List(ctx)
			if err != nil {
				return failure(err, "load tags")
			}
			if remove {
				for _, t := range tags {
					if strings.EqualFold(t.Name, args[1]) {
						if err := a.Services.Leads.DetachTag(ctx, id, t.ID); err != nil {
							return failure(err, "remove the tag")
						}
						done(cmd.OutOrStdout(), fmt.Sprintf("Tag %s removed", t.Name))
						return nil
					}
				}
				return fmt.Errorf("unknown tag %q", args[1])
			}
			tag, err := a.Services.Tags.Ensure(ctx, tags, args[1])
			if err != nil {
				return failure(err, "create the tag")
			}
			if err := a.Services.Leads.AttachTag(ctx, id, tag.ID); err != nil {
				return failure(err, "tag the lead")
			}
			return rt.emit(cmd, tag, func(w io.Writer) {
				done(w, fmt.Sprintf("Tagged %s", tag.Name))
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the tag instead")
	return cmd
}

func newLeadsDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.remove(cmd, "lead", args[0], func(ctx context.Context, svc *services.Services, id uuid.UUID) error {
				return svc.Leads.Remove(ctx, id)
			})
		},
	}
}

// remove runs a delete after a y/N confirmation unless --yes was given.
func (rt *runtime) remove(cmd *cobra.Command, what, arg string, fn func(context.Context, *services.Services, uuid.UUID) error) error {
	ctx := cmd.Context()
	a, err := rt.session(ctx)
	if err != nil {
		return err
	}
	id, err := parseID(what, arg)
	if err != nil {
		return err
	}
	if !rt.yes {
		answer, err := rt.prompt(cmd, fmt.Sprintf("Delete %s %s? [y/N] ", what, shortID(id)))
		if err != nil {
			return err
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}
	}
	if err := fn(ctx, a.Services, id); err != nil {
		return failure(err, "delete the "+what)
	}
	done(cmd.OutOrStdout(), fmt.Sprintf("Deleted %s %s", what, id))
	return nil
}

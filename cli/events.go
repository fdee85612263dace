// ABOUTME: Calendar CLI commands
// ABOUTME: Lists events in a date range, adds and deletes events, and imports .ics files
package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/leadlab/ics"
	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
)

func newEventsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"calendar"},
		Short:   "Manage calendar events",
	}
	cmd.AddCommand(
		newEventsListCommand(rt),
		newEventsAddCommand(rt),
		newEventsImportCommand(rt),
		newEventsDeleteCommand(rt),
	)
	return cmd
}

// eventRange defaults to the calendar month containing now.
func eventRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0)
	if from != "" {
		t, err := models.ParseTime(from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		start = t.Time
		if to == "" {
			end = start.AddDate(0, 1, 0)
		}
	}
	if to != "" {
		t, err := models.ParseTime(to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		end = t.Time
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must be after --from")
	}
	return start, end, nil
}

func newEventsListCommand(rt *runtime) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events, this month by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			start, end, err := eventRange(from, to, time.Now())
			if err != nil {
				return err
			}
			events, err := a.Services.Events.List(ctx, start, end)
			if err != nil {
				return failure(err, "load events")
			}
			sort.SliceStable(events, func(i, j int) bool { return events[i].StartDate.Before(events[j].StartDate.Time) })
			return rt.emit(cmd, events, func(w io.Writer) {
				if len(events) == 0 {
					empty(w, "events")
					return
				}
				rows := make([][]string, 0, len(events))
				for _, e := range events {
					rows = append(rows, []string{
						e.StartDate.Local().Format("Mon Jan 2 15:04"),
						e.Title,
						e.EventType.Label(),
						dash(e.Location),
						e.ID.String(),
					})
				}
				table(w, []string{"WHEN", "TITLE", "TYPE", "LOCATION", "ID"}, rows)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&from, "from", "", "Start date like 2024-06-01")
	f.StringVar(&to, "to", "", "End date, exclusive")
	return cmd
}

func newEventsAddCommand(rt *runtime) *cobra.Command {
	var form models.EventForm
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			ev, err := a.Services.Events.Create(ctx, form)
			if err != nil {
				return failure(err, "create the event")
			}
			return rt.emit(cmd, ev, func(w io.Writer) {
				done(w, fmt.Sprintf("Event created: %s (ID: %s)", ev.Title, ev.ID),
					"Starts: "+ev.StartDate.Local().Format("Mon Jan 2 2006 15:04"))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Title, "title", "", "Title (required)")
	f.StringVar(&form.StartDate, "start", "", "Start like \"2024-06-25 14:00\" (required)")
	f.StringVar(&form.EndDate, "end", "", "End")
	f.StringVar(&form.Location, "location", "", "Location")
	f.StringVar(&form.Description, "description", "", "Description")
	f.StringVar(&form.Timezone, "timezone", "", "IANA timezone name")
	f.StringVar(&form.EventType, "type", string(models.EventMeeting), "meeting, call, task, reminder or other")
	return cmd
}

func newEventsImportCommand(rt *runtime) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "import FILE.ics",
		Short: "Import every event in an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]
			if err := ics.CheckName(path); err != nil {
				return err
			}
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			out := cmd.ErrOrStderr()
			progress := func(n, total int, ev ics.Event, err error) {
				if quiet {
					return
				}
				if err != nil {
					warn(out, "[%d/%d] %s: %s", n, total, ev.Summary, failure(err, "import the event"))
					return
				}
				_, _ = fmt.Fprintf(out, "[%d/%d] %s\n", n, total, ev.Summary)
			}
			res, err := ics.ImportFile(ctx, path, a.Services.Events, progress)
			if err != nil && res.Imported == 0 && res.Failed == 0 {
				return err
			}
			summary := res.Summary()
			if jerr := rt.emit(cmd, importReport(res), func(w io.Writer) {
				done(w, summary)
			}); jerr != nil {
				return jerr
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary")
	return cmd
}

type importJSON struct {
	Imported int            `json:"imported"`
	Failed   int            `json:"failed"`
	Skipped  map[string]int `json:"skipped"`
	Failures []string       `json:"failures,omitempty"`
	Summary  string         `json:"summary"`
}

func importReport(res ics.Result) importJSON {
	out := importJSON{Imported: res.Imported, Failed: res.Failed, Skipped: res.Skipped, Summary: res.Summary()}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, fmt.Sprintf("line %d %s: %v", f.Event.Line, f.Event.Summary, f.Err))
	}
	return out
}

func newEventsDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.remove(cmd, "event", args[0], func(ctx context.Context, svc *services.Services, id uuid.UUID) error {
				return svc.Events.Remove(ctx, id)
			})
		},
	}
}

// ABOUTME: Imports parsed ICS events one create request at a time
// ABOUTME: Counts imported, failed and skipped events without aborting on failures
package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harperreed/leadlab/models"
)

var ErrNotICS = errors.New("only .ics files can be imported")

// Creator submits one event. The event service satisfies it.
type Creator interface {
	CreatePayload(ctx context.Context, payload models.EventPayload) (*models.Event, error)
}

// Progress is told about every event after its create call returns.
type Progress func(done, total int, ev Event, err error)

type Result struct {
	Imported int
	Failed   int
	Skipped  map[string]int
	Failures []Failure
}

type Failure struct {
	Event Event
	Err   error
}

// SkippedTotal sums skipped events across reasons.
func (r Result) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// Summary is a one-line report for toasts and CLI output.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported %d event%s", r.Imported, pluralize(r.Imported))
	if r.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", r.Failed)
	}
	if skipped := r.SkippedTotal(); skipped > 0 {
		reasons := make([]string, 0, len(r.Skipped))
		for reason, count := range r.Skipped {
			reasons = append(reasons, fmt.Sprintf("%d %s", count, reason))
		}
		sort.Strings(reasons)
		fmt.Fprintf(&b, ", skipped %d (%s)", skipped, strings.Join(reasons, ", "))
	}
	return b.String()
}

// CheckName accepts only .ics file names.
func CheckName(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".ics") {
		return fmt.Errorf("%w: %s", ErrNotICS, filepath.Base(path))
	}
	return nil
}

// ImportFile checks the extension and imports the file at path.
func ImportFile(ctx context.Context, path string, c Creator, progress Progress) (Result, error) {
	if err := CheckName(path); err != nil {
		return Result{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open calendar file: %w", err)
	}
	defer f.Close()
	return Import(ctx, f, c, progress)
}

// Import creates every parsed event in order. A failed create is counted
// and the import moves on. Cancelling ctx stops before the next event and
// returns the partial result.
func Import(ctx context.Context, r io.Reader, c Creator, progress Progress) (Result, error) {
	parsed, err := Parse(r)
	if err != nil {
		return Result{}, err
	}
	res := Result{Skipped: map[string]int{}}
	for _, s := range parsed.Skipped {
		res.Skipped[s.Reason]++
	}

	total := len(parsed.Events)
	for i, ev := range parsed.Events {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		_, err := c.CreatePayload(ctx, Payload(ev))
		if err != nil {
			res.Failed++
			res.Failures = append(res.Failures, Failure{Event: ev, Err: err})
		} else {
			res.Imported++
		}
		if progress != nil {
			progress(i+1, total, ev, err)
		}
	}
	return res, nil
}

// Payload maps a parsed event onto the create-event request.
func Payload(ev Event) models.EventPayload {
	return models.EventPayload{
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		StartDate:   ev.Start,
		EndDate:     ev.End,
		EventType:   models.EventMeeting,
		Status:      models.EventScheduled,
	}
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}

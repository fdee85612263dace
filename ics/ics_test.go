// ABOUTME: Tests for the ICS parser and importer
// ABOUTME: Covers date conversion, skipped blocks, nested components and partial failures
package ics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadlab/models"
)

type fakeCreator struct {
	calls  []models.EventPayload
	failOn map[string]bool
}

func (f *fakeCreator) CreatePayload(_ context.Context, p models.EventPayload) (*models.Event, error) {
	f.calls = append(f.calls, p)
	if f.failOn[p.Title] {
		return nil, errors.New("boom")
	}
	return &models.Event{Title: p.Title}, nil
}

func block(summary, start, end string) string {
	var b strings.Builder
	b.WriteString("BEGIN:VEVENT\r\n")
	if summary != "" {
		b.WriteString("SUMMARY:" + summary + "\r\n")
	}
	if start != "" {
		b.WriteString("DTSTART:" + start + "\r\n")
	}
	if end != "" {
		b.WriteString("DTEND:" + end + "\r\n")
	}
	b.WriteString("END:VEVENT\r\n")
	return b.String()
}

func calendar(blocks ...string) string {
	return "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n" + strings.Join(blocks, "") + "END:VCALENDAR\r\n"
}

func TestImportSingleEvent(t *testing.T) {
	c := &fakeCreator{}
	res, err := Import(context.Background(), strings.NewReader(calendar(block("Team Sync", "20240625T140000Z", "20240625T150000Z"))), c, nil)
	require.NoError(t, err)

	require.Len(t, c.calls, 1)
	assert.Equal(t, "Team Sync", c.calls[0].Title)
	assert.Equal(t, "2024-06-25T14:00:00Z", c.calls[0].StartDate)
	assert.Equal(t, "2024-06-25T15:00:00Z", c.calls[0].EndDate)
	assert.Equal(t, models.EventMeeting, c.calls[0].EventType)
	assert.Equal(t, 1, res.Imported)
	assert.Zero(t, res.Failed)
}

func TestImportContinuesPastFailure(t *testing.T) {
	c := &fakeCreator{failOn: map[string]bool{"Two": true}}
	input := calendar(
		block("One", "20240101T090000Z", "20240101T100000Z"),
		block("Two", "20240102T090000Z", "20240102T100000Z"),
		block("Three", "20240103T090000Z", "20240103T100000Z"),
	)

	var seen []int
	res, err := Import(context.Background(), strings.NewReader(input), c, func(done, total int, _ Event, _ error) {
		assert.Equal(t, 3, total)
		seen = append(seen, done)
	})
	require.NoError(t, err)

	assert.Len(t, c.calls, 3)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "Two", res.Failures[0].Event.Summary)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, "Imported 2 events, 1 failed", res.Summary())
}

func TestParseSkipsIncompleteBlocks(t *testing.T) {
	input := calendar(
		block("", "20240101T090000Z", ""),
		block("No start", "", ""),
		block("Bad start", "20241301T090000Z", ""),
		block("Bad end", "20240101T090000Z", "tomorrow"),
		block("Good", "20240101", ""),
	)
	parsed, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, parsed.Events, 1)
	assert.Equal(t, "2024-01-01T00:00:00Z", parsed.Events[0].Start)
	assert.Equal(t, parsed.Events[0].Start, parsed.Events[0].End)

	var reasons []string
	for _, s := range parsed.Skipped {
		reasons = append(reasons, s.Reason)
	}
	assert.Equal(t, []string{ReasonNoSummary, ReasonNoStart, ReasonBadStart, ReasonBadEnd}, reasons)
}

func TestParseIgnoresParamsAndNestedComponents(t *testing.T) {
	input := "BEGIN:VCALENDAR\n" +
		"BEGIN:VEVENT\n" +
		"SUMMARY;LANGUAGE=en:Board review\n" +
		"DTSTART;TZID=Europe/Berlin:20240625T140000\n" +
		"DESCRIPTION:Quarterly numbers\n" +
		"LOCATION:Room 4\n" +
		"BEGIN:VALARM\n" +
		"DESCRIPTION:Reminder\n" +
		"END:VALARM\n" +
		"END:VEVENT\n" +
		"BEGIN:VEVENT\n" +
		"SUMMARY:Dangling\n"

	parsed, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, parsed.Events, 1)
	ev := parsed.Events[0]
	assert.Equal(t, "Board review", ev.Summary)
	assert.Equal(t, "2024-06-25T14:00:00", ev.Start)
	assert.Equal(t, "Quarterly numbers", ev.Description)
	assert.Equal(t, "Room 4", ev.Location)
	require.Len(t, parsed.Skipped, 1)
	assert.Equal(t, ReasonUnfinished, parsed.Skipped[0].Reason)
}

func TestParseReportsEventLeftOpenByNextEvent(t *testing.T) {
	input := "BEGIN:VCALENDAR\n" +
		"BEGIN:VEVENT\n" +
		"SUMMARY:Never closed\n" +
		"DTSTART:20240601T090000Z\n" +
		"BEGIN:VEVENT\n" +
		"SUMMARY:Standup\n" +
		"DTSTART:20240602T090000Z\n" +
		"END:VEVENT\n" +
		"END:VCALENDAR\n"

	parsed, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, parsed.Events, 1)
	assert.Equal(t, "Standup", parsed.Events[0].Summary)
	require.Len(t, parsed.Skipped, 1)
	assert.Equal(t, Skip{Line: 2, Reason: ReasonUnfinished}, parsed.Skipped[0])
}

func TestImportSummaryListsSkipReasons(t *testing.T) {
	c := &fakeCreator{}
	input := calendar(block("Solo", "20240101T090000Z", ""), block("", "20240101T090000Z", ""), block("", "", ""))
	res, err := Import(context.Background(), strings.NewReader(input), c, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.SkippedTotal())
	assert.Equal(t, "Imported 1 event, skipped 2 (2 missing SUMMARY)", res.Summary())
}

func TestImportStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &fakeCreator{}
	input := calendar(block("A", "20240101", ""), block("B", "20240102", ""))

	res, err := Import(ctx, strings.NewReader(input), c, func(int, int, Event, error) { cancel() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Imported)
	assert.Len(t, c.calls, 1)
}

func TestImportFileChecksExtension(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "events.txt")
	require.NoError(t, os.WriteFile(bad, []byte(calendar()), 0o600))

	_, err := ImportFile(context.Background(), bad, &fakeCreator{}, nil)
	assert.ErrorIs(t, err, ErrNotICS)

	good := filepath.Join(dir, "Events.ICS")
	require.NoError(t, os.WriteFile(good, []byte(calendar(block("Call", "20240301T120000Z", ""))), 0o600))
	res, err := ImportFile(context.Background(), good, &fakeCreator{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
}

func TestFormatDate(t *testing.T) {
	got, err := FormatDate("20240229T235959Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29T23:59:59Z", got)

	_, err = FormatDate("20230229")
	assert.Error(t, err)
	_, err = FormatDate("2024-06-25")
	assert.Error(t, err)
}

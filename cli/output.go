// ABOUTME: Shared output helpers for CLI commands
// ABOUTME: JSON encoding, tab-aligned tables, styled confirmations and id parsing
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

var (
	checkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	faintStyle = lipgloss.NewStyle().Faint(true)
)

// emit prints v as indented JSON under --json, otherwise calls human.
func (rt *runtime) emit(cmd *cobra.Command, v any, human func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if rt.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(out)
	return nil
}

// done prints a "✓ ..." confirmation line followed by indented details.
func done(w io.Writer, headline string, details ...string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", checkStyle.Render("✓"), headline)
	for _, d := range details {
		_, _ = fmt.Fprintf(w, "  %s\n", d)
	}
}

func warn(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf(format, args...)))
}

// table writes a header, a dashed rule and the rows, tab aligned.
func table(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rule := make([]string, len(header))
	for i, h := range header {
		rule[i] = strings.Repeat("-", len(h))
	}
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	_, _ = fmt.Fprintln(tw, strings.Join(rule, "\t"))
	for _, r := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

// empty prints the "No X found" line used by every list command.
func empty(w io.Writer, what string) {
	_, _ = fmt.Fprintf(w, "No %s found\n", what)
}

func parseID(what, arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(arg))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}

// userError shows the toast wording while keeping the cause for errors.Is.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

// failure turns a service error into the message a screen would toast.
func failure(err error, action string) error {
	if err == nil {
		return nil
	}
	return &userError{msg: api.UserMessage(err, action), err: err}
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func dateOrDash(t models.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

func money(amount float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func faint(s string) string {
	return faintStyle.Render(s)
}

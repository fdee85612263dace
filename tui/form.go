// ABOUTME: Generic modal form used by every create and edit flow
// ABOUTME: Text, password, select and toggle fields with tab navigation and inline errors
package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldPassword
	fieldSelect
	fieldToggle
)

type option struct {
	label string
	value string
}

type field struct {
	key     string
	label   string
	kind    fieldKind
	input   textinput.Model
	options []option
	choice  int
	on      bool
}

func textField(key, label, value string) field {
	in := textinput.New()
	in.Placeholder = label
	in.CharLimit = 500
	in.SetValue(value)
	return field{key: key, label: label, kind: fieldText, input: in}
}

func passwordField(key, label string) field {
	f := textField(key, label, "")
	f.kind = fieldPassword
	f.input.EchoMode = textinput.EchoPassword
	f.input.EchoCharacter = '•'
	return f
}

func selectField(key, label string, opts []option, value string) field {
	f := field{key: key, label: label, kind: fieldSelect, options: opts}
	for i, o := range opts {
		if o.value == value {
			f.choice = i
		}
	}
	return f
}

func toggleField(key, label string, on bool) field {
	return field{key: key, label: label, kind: fieldToggle, on: on}
}

type formAction int

const (
	formNone formAction = iota
	formSubmit
	formCancel
)

// form is embedded by screens while a create or edit dialog is open.
type form struct {
	title      string
	fields     []field
	focus      int
	err        string
	submitting bool
	// target is the record being edited, if any.
	target string
	// base is the record's form before editing. Values the form has no field
	// for are submitted from it unchanged.
	base any
}

func newForm(title string, fields ...field) *form {
	f := &form{title: title, fields: fields}
	f.updateFocus()
	return f
}

func (f *form) value(key string) string {
	for _, fl := range f.fields {
		if fl.key != key {
			continue
		}
		switch fl.kind {
		case fieldSelect:
			if fl.choice < len(fl.options) {
				return fl.options[fl.choice].value
			}
			return ""
		case fieldToggle:
			if fl.on {
				return "true"
			}
			return "false"
		}
		return strings.TrimSpace(fl.input.Value())
	}
	return ""
}

func (f *form) on(key string) bool { return f.value(key) == "true" }

// set replaces a text field's value, used by pickers.
func (f *form) set(key, value string) {
	for i := range f.fields {
		if f.fields[i].key == key {
			f.fields[i].input.SetValue(value)
		}
	}
}

// fail shows err on the form. Validation errors focus their field.
func (f *form) fail(err error) {
	f.submitting = false
	var v *models.ValidationError
	if errors.As(err, &v) {
		for i, fl := range f.fields {
			if fl.key == v.Field {
				f.focus = i
				f.updateFocus()
			}
		}
		f.err = capitalize(v.Error())
		return
	}
	f.err = api.UserMessage(err, "save")
}

func (f *form) update(msg tea.KeyMsg) (formAction, tea.Cmd) {
	if f.submitting {
		return formNone, nil
	}
	switch msg.String() {
	case "esc":
		return formCancel, nil
	case "tab", "down":
		f.focus = (f.focus + 1) % len(f.fields)
		f.updateFocus()
		return formNone, nil
	case "shift+tab", "up":
		f.focus = (f.focus - 1 + len(f.fields)) % len(f.fields)
		f.updateFocus()
		return formNone, nil
	case "enter", "ctrl+s":
		f.err = ""
		f.submitting = true
		return formSubmit, nil
	}

	fl := &f.fields[f.focus]
	switch fl.kind {
	case fieldSelect:
		switch msg.String() {
		case "left", "h":
			fl.choice = (fl.choice - 1 + len(fl.options)) % len(fl.options)
		case "right", "l", " ":
			fl.choice = (fl.choice + 1) % len(fl.options)
		}
		return formNone, nil
	case fieldToggle:
		if msg.String() == " " || msg.String() == "left" || msg.String() == "right" {
			fl.on = !fl.on
		}
		return formNone, nil
	}

	var cmd tea.Cmd
	fl.input, cmd = fl.input.Update(msg)
	return formNone, cmd
}

func (f *form) updateFocus() {
	for i := range f.fields {
		if f.fields[i].kind != fieldText && f.fields[i].kind != fieldPassword {
			continue
		}
		if i == f.focus {
			f.fields[i].input.Focus()
		} else {
			f.fields[i].input.Blur()
		}
	}
}

func (f *form) view() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(strings.ToUpper(f.title)))
	s.WriteString("\n")

	for i, fl := range f.fields {
		if i == f.focus {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(mutedStyle.Render(padRight(fl.label, 16)))
		switch fl.kind {
		case fieldSelect:
			label := ""
			if fl.choice < len(fl.options) {
				label = fl.options[fl.choice].label
			}
			s.WriteString("‹ " + label + " ›")
		case fieldToggle:
			if fl.on {
				s.WriteString("[x]")
			} else {
				s.WriteString("[ ]")
			}
		default:
			s.WriteString(fl.input.View())
		}
		s.WriteString("\n")
	}

	if f.err != "" {
		s.WriteString("\n" + errorStyle.Render(f.err) + "\n")
	}
	if f.submitting {
		s.WriteString("\n" + mutedStyle.Render("Saving...") + "\n")
	}

	help := []string{"Tab: Next field", "←/→: Change choice", "Enter: Save", "Esc: Cancel"}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return cardStyle.Render(s.String())
}

func padRight(s string, n int) string {
	if w := len([]rune(s)); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func dealStatusOptions() []option {
	opts := make([]option, 0, len(models.DealStatuses))
	for _, s := range models.DealStatuses {
		opts = append(opts, option{label: s.Label(), value: string(s)})
	}
	return opts
}

func taskStatusOptions() []option {
	opts := make([]option, 0, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		opts = append(opts, option{label: s.Label(), value: string(s)})
	}
	return opts
}

func taskPriorityOptions() []option {
	opts := make([]option, 0, len(models.TaskPriorities))
	for _, p := range models.TaskPriorities {
		opts = append(opts, option{label: p.Label(), value: string(p)})
	}
	return opts
}

func eventTypeOptions() []option {
	opts := make([]option, 0, len(models.EventTypes))
	for _, t := range models.EventTypes {
		opts = append(opts, option{label: t.Label(), value: string(t)})
	}
	return opts
}

func stageOptions(stages []models.Stage) []option {
	opts := []option{{label: "None", value: ""}}
	for _, s := range stages {
		opts = append(opts, option{label: s.Name, value: s.ID.String()})
	}
	return opts
}

func leadOptions(leads []models.Lead) []option {
	opts := []option{{label: "None", value: ""}}
	for _, l := range leads {
		opts = append(opts, option{label: l.FullName(), value: l.ID.String()})
	}
	return opts
}

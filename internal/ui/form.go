package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// field is one labelled input of a [form].
type field struct {
	label string
	input textinput.Model
}

// form is a column of text inputs with an optional trailing textarea. Focus moves with tab and shift+tab.
type form struct {
	fields []field
	area   *textarea.Model
	label  string // textarea label
	focus  int
	errs   map[int]string
}

func newField(label, placeholder string, limit int) field {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "› "
	ti.CharLimit = limit
	ti.Cursor.SetMode(cursor.CursorStatic)
	return field{label: label, input: ti}
}

func newSecretField(label, placeholder string) field {
	f := newField(label, placeholder, 128)
	f.input.EchoMode = textinput.EchoPassword
	f.input.EchoCharacter = '•'
	return f
}

func newForm(fields ...field) *form {
	f := &form{fields: fields, errs: map[int]string{}}
	f.focusOn(0)
	return f
}

// withArea appends a multi-line input after the text fields.
func (f *form) withArea(label, placeholder string, width int) *form {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.SetWidth(width)
	ta.SetHeight(4)
	ta.Cursor.SetMode(cursor.CursorStatic)
	ta.Blur()
	f.area = &ta
	f.label = label
	return f
}

func (f *form) size() int {
	if f.area != nil {
		return len(f.fields) + 1
	}
	return len(f.fields)
}

func (f *form) onArea() bool {
	return f.area != nil && f.focus == len(f.fields)
}

func (f *form) focusOn(i int) {
	if f.size() == 0 {
		return
	}
	f.focus = (i%f.size() + f.size()) % f.size()
	for j := range f.fields {
		if j == f.focus {
			f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
	if f.area != nil {
		if f.onArea() {
			f.area.Focus()
		} else {
			f.area.Blur()
		}
	}
}

func (f *form) next() { f.focusOn(f.focus + 1) }
func (f *form) prev() { f.focusOn(f.focus - 1) }

// value returns the trimmed content of field i, or of the textarea when i is past the fields.
func (f *form) value(i int) string {
	if i < len(f.fields) {
		return strings.TrimSpace(f.fields[i].input.Value())
	}
	if f.area != nil {
		return strings.TrimSpace(f.area.Value())
	}
	return ""
}

func (f *form) setValue(i int, v string) {
	if i < len(f.fields) {
		f.fields[i].input.SetValue(v)
		return
	}
	if f.area != nil {
		f.area.SetValue(v)
	}
}

// update routes msg to the focused input.
func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.onArea() {
		*f.area, cmd = f.area.Update(msg)
		return cmd
	}
	if f.focus < len(f.fields) {
		f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	}
	return cmd
}

func (f *form) clearErrors() {
	f.errs = map[int]string{}
}

func (f *form) view() string {
	var b strings.Builder
	for i, fl := range f.fields {
		b.WriteString(styles.label.Render(fl.label))
		b.WriteString("\n")
		b.WriteString(fl.input.View())
		b.WriteString("\n")
		if msg, ok := f.errs[i]; ok {
			b.WriteString(styles.err.Render(msg))
			b.WriteString("\n")
		}
	}
	if f.area != nil {
		b.WriteString(styles.label.Render(f.label))
		b.WriteString("\n")
		b.WriteString(f.area.View())
		b.WriteString("\n")
		if msg, ok := f.errs[len(f.fields)]; ok {
			b.WriteString(styles.err.Render(msg))
			b.WriteString("\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// fieldNote renders a dim annotation under a form.
func fieldNote(format string, args ...any) string {
	return styles.help.Render(fmt.Sprintf(format, args...))
}

// Package tui provides an interactive picker that writes an operation
// selection file.
package tui

import (
	"fmt"

	"github.com/brizzai/searchkit/internal/openapi"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	toggle key.Binding
	edit   key.Binding
	save   key.Binding
	quit   key.Binding
}

func newKeyMap() *keyMap {
	return &keyMap{
		toggle: key.NewBinding(
			key.WithKeys("x", " "),
			key.WithHelp("x", "keep/remove"),
		),
		edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit description"),
		),
		save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// Picker lists catalog operations and lets the user drop operations and
// rewrite descriptions before saving a selection file.
type Picker struct {
	list    list.Model
	keys    *keyMap
	editor  textarea.Model
	editing bool
	width   int
	out     string
	saved   bool
	err     error
}

// NewPicker starts from sel so an existing selection file can be refined.
func NewPicker(ops []*openapi.Operation, sel *openapi.Selection, out string) Picker {
	items := make([]list.Item, len(ops))
	for i, op := range ops {
		item := operationItem{op: op, removed: !sel.Includes(op.Path, op.Method)}
		if d := sel.Describe(op.Path, op.Method, ""); d != "" {
			item.description = d
		}
		items[i] = item
	}

	keys := newKeyMap()
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Search API operations"
	l.Styles.Title = titleStyle
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.toggle, keys.edit, keys.save, keys.quit}
	}

	return Picker{list: l, keys: keys, out: out}
}

func (m Picker) Init() tea.Cmd {
	return nil
}

func (m Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		h, v := docStyle.GetFrameSize()
		m.width = size.Width - h
		m.list.SetSize(m.width, size.Height-v)
		if m.editing {
			m.editor.SetWidth(m.width)
		}
		return m, nil
	}
	if m.editing {
		return m.updateEditor(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.toggle):
		item, ok := m.list.SelectedItem().(operationItem)
		if !ok {
			return m, nil
		}
		item.removed = !item.removed
		cmd := m.list.SetItem(m.list.Index(), item)
		verb := "Kept "
		if item.removed {
			verb = "Removed "
		}
		return m, tea.Batch(cmd, m.list.NewStatusMessage(statusMessageStyle(verb+item.Title())))
	case key.Matches(keyMsg, m.keys.edit):
		item, ok := m.list.SelectedItem().(operationItem)
		if !ok || item.removed {
			return m, nil
		}
		m.editor = textarea.New()
		if m.width > 0 {
			m.editor.SetWidth(m.width)
		}
		m.editor.SetValue(item.Description())
		m.editing = true
		return m, m.editor.Focus()
	case key.Matches(keyMsg, m.keys.save):
		if err := m.save(); err != nil {
			m.err = err
			return m, m.list.NewStatusMessage(statusMessageStyle(err.Error()))
		}
		m.saved = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Picker) updateEditor(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.save):
			item, _ := m.list.SelectedItem().(operationItem)
			if v := m.editor.Value(); v != item.op.Description {
				item.description = v
			} else {
				item.description = ""
			}
			m.editing = false
			return m, m.list.SetItem(m.list.Index(), item)
		case keyMsg.Type == tea.KeyEsc:
			m.editing = false
			return m, nil
		case key.Matches(keyMsg, m.keys.quit):
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Picker) View() string {
	if m.editing {
		item, _ := m.list.SelectedItem().(operationItem)
		return docStyle.Render(fmt.Sprintf("%s\n\n%s\n\n%s",
			editHeaderStyle.Render(item.Title()),
			m.editor.View(),
			"(ctrl+s to keep, esc to cancel)",
		))
	}
	return docStyle.Render(m.list.View())
}

// Selection builds the selection from the current state of every item,
// including those hidden by a filter.
func (m Picker) Selection() *openapi.Selection {
	items := m.list.Items()
	choices := make([]openapi.Choice, 0, len(items))
	for _, it := range items {
		if item, ok := it.(operationItem); ok {
			choices = append(choices, item.choice())
		}
	}
	return openapi.NewSelection(choices)
}

func (m Picker) save() error {
	sel := m.Selection()
	if len(sel.Routes) == 0 {
		return fmt.Errorf("nothing selected, keep at least one operation")
	}
	return sel.Save(m.out)
}

// Saved reports whether the selection was written before the picker quit.
func (m Picker) Saved() bool {
	return m.saved
}

// Err returns the last save error.
func (m Picker) Err() error {
	return m.err
}

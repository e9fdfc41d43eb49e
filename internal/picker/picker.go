// Package picker is a terminal search-and-select field for employees. It
// drives the same Combobox the console uses, so a failed directory still
// leaves manual entry available.
package picker

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/phillip-england/hrconsole/internal/directory"
	"github.com/phillip-england/hrconsole/internal/fieldsync"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF6B6B")).
			Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5B8DEF"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

type resolvedMsg struct {
	state directory.State
}

type Model struct {
	ctx      context.Context
	title    string
	resolver *directory.Resolver
	box      *fieldsync.Combobox
	input    textinput.Model

	done     bool
	canceled bool
}

func New(ctx context.Context, title string, resolver *directory.Resolver, box *fieldsync.Combobox) Model {
	input := textinput.New()
	input.Placeholder = "Search by name or employee ID"
	input.Prompt = "› "
	input.SetValue(box.Binding().SearchTerm)
	input.Focus()
	return Model{
		ctx:      ctx,
		title:    title,
		resolver: resolver,
		box:      box,
		input:    input,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.resolve(false))
}

func (m Model) resolve(retry bool) tea.Cmd {
	return func() tea.Msg {
		if retry {
			return resolvedMsg{state: m.resolver.Retry(m.ctx)}
		}
		return resolvedMsg{state: m.resolver.Resolve(m.ctx)}
	}
}

// Binding is the field group's value when the picker exits.
func (m Model) Binding() fieldsync.Binding {
	return m.box.Binding()
}

func (m Model) Done() bool {
	return m.done
}

func (m Model) Canceled() bool {
	return m.canceled
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resolvedMsg:
		m.box.SetDirectory(msg.state)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.canceled = true
			return m, tea.Quit
		case "up":
			m.box.Move(-1)
			return m, nil
		case "down", "tab":
			m.box.Move(1)
			return m, nil
		case "enter":
			if m.box.Confirm() {
				m.input.SetValue(m.box.Binding().SearchTerm)
			}
			// Without a highlighted suggestion the typed text stands as a
			// manual entry.
			m.done = true
			return m, tea.Quit
		case "esc":
			if m.box.Open() {
				m.box.Dismiss()
				return m, nil
			}
			m.canceled = true
			return m, tea.Quit
		case "ctrl+u":
			m.box.Clear()
			m.input.SetValue("")
			return m, nil
		case "ctrl+r":
			if m.box.Directory().Phase == directory.Failed {
				m.box.SetDirectory(directory.State{Phase: directory.Loading})
				return m, m.resolve(true)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != m.box.Binding().SearchTerm {
		m.box.Type(value)
	}
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	state := m.box.Directory()
	switch state.Phase {
	case directory.Idle, directory.Loading:
		b.WriteString(dimStyle.Render("Loading employee directory..."))
		b.WriteString("\n")
	case directory.Failed:
		b.WriteString(bannerStyle.Render(fmt.Sprintf(
			"Employee directory unavailable: %s\nPress ctrl+r to retry. You can still type a name manually.", state.Reason)))
		b.WriteString("\n")
	case directory.Ready:
		if state.Source == directory.SourceSecondary {
			b.WriteString(dimStyle.Render("Showing names only; employee IDs are temporary and will not be saved."))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")

	highlighted := m.box.Highlighted()
	for i, identity := range m.box.Suggestions() {
		line := fmt.Sprintf("%s  %s", identity.DisplayName, dimStyle.Render(identity.Identifier))
		if i == highlighted {
			line = highlightStyle.Render(identity.DisplayName + "  " + identity.Identifier)
		}
		b.WriteString("  " + line + "\n")
	}

	if m.box.Selected() {
		binding := m.box.Binding()
		b.WriteString(dimStyle.Render(fmt.Sprintf("Selected: %s (%s)", binding.DisplayName, binding.Identifier)))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("↑/↓ move · enter select · esc close · ctrl+u clear · ctrl+r retry"))
	return b.String()
}

package picker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/phillip-england/hrconsole/internal/directory"
	"github.com/phillip-england/hrconsole/internal/fieldsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	down atomic.Bool
}

func (s *stubSource) Identities(context.Context) ([]directory.EmployeeIdentity, error) {
	if s.down.Load() {
		return nil, errors.New("primary down")
	}
	return []directory.EmployeeIdentity{
		{Identifier: "E1", DisplayName: "Alice Smith"},
		{Identifier: "E2", DisplayName: "Alan Turing"},
		{Identifier: "E3", DisplayName: "Bob Jones"},
	}, nil
}

func (s *stubSource) Names(context.Context) ([]string, error) {
	if s.down.Load() {
		return nil, errors.New("names down")
	}
	return nil, nil
}

func newModel(t *testing.T, src *stubSource) Model {
	t.Helper()
	resolver := directory.NewResolver(src)
	t.Cleanup(resolver.Close)
	m := New(context.Background(), "Employee", resolver, fieldsync.NewCombobox(fieldsync.Binding{}, 5))
	return apply(t, m, m.resolve(false)())
}

func apply(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model
}

func typeText(t *testing.T, m Model, text string) Model {
	return apply(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestPickSuggestionWithKeyboard(t *testing.T) {
	m := newModel(t, &stubSource{})
	m = typeText(t, m, "al")
	require.Len(t, m.box.Suggestions(), 2)
	assert.Contains(t, m.View(), "Alan Turing")

	m = apply(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = apply(t, m, tea.KeyMsg{Type: tea.KeyDown})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	require.NotNil(t, cmd)
	assert.True(t, m.Done())
	assert.Equal(t, fieldsync.Binding{SearchTerm: "Alan Turing", Identifier: "E2", DisplayName: "Alan Turing"}, m.Binding())
	assert.Contains(t, m.View(), "Selected: Alan Turing (E2)")
}

func TestEscClosesListThenCancels(t *testing.T) {
	m := newModel(t, &stubSource{})
	m = typeText(t, m, "bob")
	require.True(t, m.box.Open())

	m = apply(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.box.Open())
	assert.False(t, m.Canceled())

	m = apply(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.Canceled())
}

func TestFailedDirectoryKeepsManualEntryAndRetries(t *testing.T) {
	src := &stubSource{}
	src.down.Store(true)
	m := newModel(t, src)

	assert.Contains(t, m.View(), "ctrl+r to retry")
	m = typeText(t, m, "New Hire")
	assert.Empty(t, m.box.Suggestions())
	assert.Equal(t, "New Hire", m.Binding().DisplayName)

	src.down.Store(false)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m = next.(Model)
	require.NotNil(t, cmd)
	m = apply(t, m, cmd())
	assert.Equal(t, directory.Ready, m.box.Directory().Phase)
	assert.NotContains(t, m.View(), "ctrl+r to retry")

	m = apply(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.Done())
	assert.Equal(t, fieldsync.Binding{SearchTerm: "New Hire", DisplayName: "New Hire"}, m.Binding())
	assert.NotContains(t, m.View(), "Selected:", "manual entry is not a selection")
}

func TestClearResetsField(t *testing.T) {
	m := newModel(t, &stubSource{})
	m = typeText(t, m, "ali")
	m = apply(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = apply(t, m, tea.KeyMsg{Type: tea.KeyCtrlU})

	assert.True(t, m.Binding().Empty())
	assert.Equal(t, "", m.input.Value())
}

package fieldsync

import (
	"testing"

	"github.com/phillip-england/hrconsole/internal/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = directory.EmployeeIdentity{Identifier: "E1", DisplayName: "Alice Smith"}
	alan  = directory.EmployeeIdentity{Identifier: "E2", DisplayName: "Alan Turing"}
	bob   = directory.EmployeeIdentity{Identifier: "E3", DisplayName: "Bob Jones"}
)

func TestTypingWithoutSelectionUpdatesDisplayName(t *testing.T) {
	c := NewController(Binding{})
	c.OnTypedSearch("Manual Person")

	assert.Equal(t, Binding{SearchTerm: "Manual Person", DisplayName: "Manual Person"}, c.Binding())
	assert.True(t, c.Open())

	c.OnTypedSearch("  ")
	assert.False(t, c.Open())
}

func TestSelectCommitsAllFieldsAndCloses(t *testing.T) {
	c := NewController(Binding{})
	c.OnTypedSearch("ali")
	c.OnSelect(alice)

	b := c.Binding()
	assert.Equal(t, alice.Identifier, b.Identifier)
	assert.Equal(t, alice.DisplayName, b.DisplayName)
	assert.Equal(t, alice.DisplayName, b.SearchTerm)
	assert.False(t, c.Open())
}

func TestTypingAfterSelectionKeepsIdentity(t *testing.T) {
	c := NewController(Binding{})
	c.OnSelect(alice)
	c.OnTypedSearch("bo")

	b := c.Binding()
	assert.Equal(t, "bo", b.SearchTerm)
	assert.Equal(t, alice.Identifier, b.Identifier)
	assert.Equal(t, alice.DisplayName, b.DisplayName)
}

func TestPrepopulatedBindingCountsAsSelected(t *testing.T) {
	c := NewController(Binding{SearchTerm: "Bob Jones", Identifier: "E3", DisplayName: "Bob Jones"})
	assert.True(t, c.Selected())
	c.OnTypedSearch("x")
	assert.Equal(t, "Bob Jones", c.Binding().DisplayName)
}

func TestClearEmptiesEverything(t *testing.T) {
	c := NewController(Binding{})
	c.OnSelect(bob)
	c.OnTypedSearch("al")
	c.OnClear()

	assert.True(t, c.Binding().Empty())
	assert.False(t, c.Open())
	assert.False(t, c.Selected())

	c.OnTypedSearch("free text")
	assert.Equal(t, "free text", c.Binding().DisplayName, "manual entry resumes after clear")
}

func readyCombobox() *Combobox {
	box := NewCombobox(Binding{}, 0)
	box.SetDirectory(directory.State{Phase: directory.Ready, Identities: []directory.EmployeeIdentity{alice, alan, bob}})
	return box
}

func TestComboboxSuggestionsAndKeyboard(t *testing.T) {
	box := readyCombobox()
	var picked []directory.EmployeeIdentity
	box.OnSelect = func(identity directory.EmployeeIdentity) { picked = append(picked, identity) }

	box.Type("al")
	require.Equal(t, []directory.EmployeeIdentity{alice, alan}, box.Suggestions())
	assert.Equal(t, -1, box.Highlighted())
	assert.False(t, box.Confirm(), "nothing highlighted yet")

	box.Move(1)
	assert.Equal(t, 0, box.Highlighted())
	box.Move(1)
	assert.Equal(t, 1, box.Highlighted())
	box.Move(1)
	assert.Equal(t, 0, box.Highlighted(), "wraps forward")
	box.Move(-1)
	assert.Equal(t, 1, box.Highlighted(), "wraps backward")

	require.True(t, box.Confirm())
	assert.Equal(t, []directory.EmployeeIdentity{alan}, picked)
	assert.Equal(t, Binding{SearchTerm: "Alan Turing", Identifier: "E2", DisplayName: "Alan Turing"}, box.Binding())
	assert.False(t, box.Open())
	assert.Nil(t, box.Suggestions())
}

func TestComboboxDismissKeepsTypedText(t *testing.T) {
	box := readyCombobox()
	dismissed := 0
	box.OnDismiss = func() { dismissed++ }

	box.Type("bo")
	box.Move(1)
	box.Dismiss()

	assert.Equal(t, 1, dismissed)
	assert.False(t, box.Open())
	assert.Equal(t, "bo", box.Binding().SearchTerm)
	assert.Equal(t, -1, box.Highlighted())

	box.Dismiss()
	assert.Equal(t, 1, dismissed, "dismissing a closed list is silent")
}

func TestComboboxFailedDirectoryAllowsManualEntry(t *testing.T) {
	box := NewCombobox(Binding{}, 0)
	box.SetDirectory(directory.State{Phase: directory.Failed, Reason: "both endpoints down"})

	box.Type("Someone New")
	assert.Empty(t, box.Suggestions())
	assert.Equal(t, Binding{SearchTerm: "Someone New", DisplayName: "Someone New"}, box.Binding())
	assert.Equal(t, directory.Failed, box.Directory().Phase)
}

func TestComboboxLimitAndClear(t *testing.T) {
	box := NewCombobox(Binding{}, 1)
	box.SetDirectory(directory.State{Phase: directory.Ready, Identities: []directory.EmployeeIdentity{alice, alan, bob}})

	box.Type("a")
	assert.Equal(t, []directory.EmployeeIdentity{alice}, box.Suggestions())

	box.Pick(bob)
	box.Clear()
	assert.True(t, box.Binding().Empty())
	assert.Nil(t, box.Suggestions())
}

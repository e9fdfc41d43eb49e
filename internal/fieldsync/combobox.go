package fieldsync

import (
	"github.com/phillip-england/hrconsole/internal/directory"
	"github.com/phillip-england/hrconsole/internal/typeahead"
)

// Combobox owns one field's suggestion list: open/closed state, the
// highlighted row, and the callbacks the hosting form listens on.
type Combobox struct {
	*Controller

	OnSelect  func(directory.EmployeeIdentity)
	OnDismiss func()

	index       *typeahead.Index
	state       directory.State
	suggestions []directory.EmployeeIdentity
	highlight   int
}

func NewCombobox(initial Binding, limit int) *Combobox {
	return &Combobox{
		Controller: NewController(initial),
		index:      typeahead.NewIndex(nil, limit),
		highlight:  -1,
	}
}

// SetDirectory feeds a resolver state into the suggestion index. Anything
// other than Ready leaves the list empty but typing still works.
func (c *Combobox) SetDirectory(state directory.State) {
	c.state = state
	c.index = typeahead.FromState(state, c.index.Limit)
	c.refresh()
}

func (c *Combobox) Directory() directory.State {
	return c.state
}

func (c *Combobox) Type(text string) {
	c.OnTypedSearch(text)
	c.highlight = -1
	c.refresh()
}

func (c *Combobox) Suggestions() []directory.EmployeeIdentity {
	if !c.Open() {
		return nil
	}
	return c.suggestions
}

// Highlighted returns the index of the highlighted suggestion, or -1.
func (c *Combobox) Highlighted() int {
	if !c.Open() {
		return -1
	}
	return c.highlight
}

// Move shifts the highlight by delta, wrapping at both ends.
func (c *Combobox) Move(delta int) {
	n := len(c.Suggestions())
	if n == 0 {
		c.highlight = -1
		return
	}
	if c.highlight < 0 {
		if delta < 0 {
			c.highlight = n - 1
		} else {
			c.highlight = 0
		}
		return
	}
	c.highlight = ((c.highlight+delta)%n + n) % n
}

// Confirm selects the highlighted suggestion. It reports false when the
// list is closed or nothing is highlighted.
func (c *Combobox) Confirm() bool {
	suggestions := c.Suggestions()
	if c.highlight < 0 || c.highlight >= len(suggestions) {
		return false
	}
	c.Pick(suggestions[c.highlight])
	return true
}

// Pick commits identity as the selection.
func (c *Combobox) Pick(identity directory.EmployeeIdentity) {
	c.Controller.OnSelect(identity)
	c.refresh()
	if c.OnSelect != nil {
		c.OnSelect(identity)
	}
}

// Dismiss closes the list and keeps whatever was typed.
func (c *Combobox) Dismiss() {
	wasOpen := c.Open()
	c.Close()
	c.highlight = -1
	if wasOpen && c.OnDismiss != nil {
		c.OnDismiss()
	}
}

func (c *Combobox) Clear() {
	c.OnClear()
	c.refresh()
}

func (c *Combobox) refresh() {
	c.suggestions = c.index.Suggest(c.Binding().SearchTerm)
	if c.highlight >= len(c.suggestions) {
		c.highlight = -1
	}
}

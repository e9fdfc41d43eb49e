// Package fieldsync keeps a search-and-select field group consistent: the
// typed search term plus the identifier and display name it resolves to.
package fieldsync

import (
	"strings"

	"github.com/phillip-england/hrconsole/internal/directory"
)

// Binding is what a form field group presents. Identifier and DisplayName
// only commit together through a selection; typing alone may leave them
// disagreeing, and an empty Identifier is a legal manual entry.
type Binding struct {
	SearchTerm  string `json:"searchTerm"`
	Identifier  string `json:"identifier"`
	DisplayName string `json:"displayName"`
}

func (b Binding) Empty() bool {
	return b.SearchTerm == "" && b.Identifier == "" && b.DisplayName == ""
}

// Controller is owned by a single form instance and is not safe for
// concurrent use.
type Controller struct {
	binding  Binding
	selected bool
	open     bool
}

// NewController starts from initial, e.g. a record being edited. A binding
// that already carries an identifier counts as a committed selection.
func NewController(initial Binding) *Controller {
	return &Controller{binding: initial, selected: initial.Identifier != ""}
}

func (c *Controller) Binding() Binding {
	return c.binding
}

// Open reports whether the suggestion list should be shown.
func (c *Controller) Open() bool {
	return c.open
}

// Selected reports whether the current identifier came from a selection.
func (c *Controller) Selected() bool {
	return c.selected
}

func (c *Controller) OnTypedSearch(text string) {
	c.binding.SearchTerm = text
	if !c.selected {
		c.binding.DisplayName = text
	}
	c.open = strings.TrimSpace(text) != ""
}

func (c *Controller) OnSelect(identity directory.EmployeeIdentity) {
	c.binding = Binding{
		SearchTerm:  identity.DisplayName,
		Identifier:  identity.Identifier,
		DisplayName: identity.DisplayName,
	}
	c.selected = true
	c.open = false
}

func (c *Controller) OnClear() {
	c.binding = Binding{}
	c.selected = false
	c.open = false
}

// Close hides the suggestion list without touching the binding.
func (c *Controller) Close() {
	c.open = false
}

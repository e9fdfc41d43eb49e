package typeahead

import (
	"strings"

	"github.com/phillip-england/hrconsole/internal/directory"
	"golang.org/x/text/cases"
)

// Filter returns the identities whose identifier or display name contains
// query, ignoring case, in their original order. A blank query hides the
// suggestion list and returns nil rather than matching everything.
func Filter(query string, identities []directory.EmployeeIdentity) []directory.EmployeeIdentity {
	needle := fold(query)
	if strings.TrimSpace(needle) == "" {
		return nil
	}
	var out []directory.EmployeeIdentity
	for _, identity := range identities {
		if strings.Contains(fold(identity.Identifier), needle) || strings.Contains(fold(identity.DisplayName), needle) {
			out = append(out, identity)
		}
	}
	return out
}

func fold(value string) string {
	// cases.Caser is stateful; a fresh one per call keeps Filter safe for
	// concurrent use.
	return cases.Fold().String(value)
}

// Index is a filterable snapshot of a resolved directory.
type Index struct {
	identities []directory.EmployeeIdentity
	// Limit caps the number of suggestions; zero means no cap.
	Limit int
}

func NewIndex(identities []directory.EmployeeIdentity, limit int) *Index {
	return &Index{identities: identities, Limit: limit}
}

// FromState indexes a Ready state; any other phase yields an empty index.
func FromState(state directory.State, limit int) *Index {
	if state.Phase != directory.Ready {
		return NewIndex(nil, limit)
	}
	return NewIndex(state.Identities, limit)
}

func (i *Index) Len() int {
	return len(i.identities)
}

func (i *Index) Suggest(query string) []directory.EmployeeIdentity {
	matches := Filter(query, i.identities)
	if i.Limit > 0 && len(matches) > i.Limit {
		return matches[:i.Limit]
	}
	return matches
}

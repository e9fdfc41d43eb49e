package directory

import (
	"fmt"
	"regexp"
	"strings"
)

const syntheticStatus = "Active"

var syntheticPattern = regexp.MustCompile(`^TEMP-[0-9]{3,}$`)

// EmployeeIdentity is one selectable employee. Synthetic identities were built
// from a bare name list; their Identifier only means something for the
// current session and must not be persisted.
type EmployeeIdentity struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Status      string `json:"status"`
	Synthetic   bool   `json:"synthetic,omitempty"`
}

// primaryIdentity is the wire shape served by the all-ids endpoint.
type primaryIdentity struct {
	EmployeeID   string `json:"employeeId"`
	FullName     string `json:"fullName"`
	EmployeeName string `json:"employeeName"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Status       string `json:"status"`
}

func (p primaryIdentity) displayName() string {
	for _, candidate := range []string{p.FullName, p.EmployeeName, p.Name} {
		if name := strings.TrimSpace(candidate); name != "" {
			return name
		}
	}
	return ""
}

// fromPrimary drops entries without an identifier or a name and keeps the
// first of any duplicated identifier.
func fromPrimary(rows []primaryIdentity) []EmployeeIdentity {
	out := make([]EmployeeIdentity, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		id := strings.TrimSpace(row.EmployeeID)
		name := row.displayName()
		if id == "" || name == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, EmployeeIdentity{
			Identifier:  id,
			DisplayName: name,
			Email:       strings.TrimSpace(row.Email),
			Status:      strings.TrimSpace(row.Status),
		})
	}
	return out
}

// SyntheticIdentifier is the placeholder for the name at 0-based position.
func SyntheticIdentifier(position int) string {
	return fmt.Sprintf("TEMP-%03d", position+1)
}

// IsSyntheticIdentifier reports whether id was produced by
// SyntheticIdentifier. Such identifiers must never be submitted.
func IsSyntheticIdentifier(id string) bool {
	return syntheticPattern.MatchString(strings.TrimSpace(id))
}

// fromNames keeps the original position in the identifier so a given list
// always yields the same identifiers, even when blank names are skipped.
func fromNames(names []string) []EmployeeIdentity {
	out := make([]EmployeeIdentity, 0, len(names))
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		out = append(out, EmployeeIdentity{
			Identifier:  SyntheticIdentifier(i),
			DisplayName: name,
			Status:      syntheticStatus,
			Synthetic:   true,
		})
	}
	return out
}

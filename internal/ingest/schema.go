package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

type Kind string

const (
	KindText   Kind = "text"
	KindDate   Kind = "date"
	KindBool   Kind = "bool"
	KindNumber Kind = "number"
)

// Field is one canonical target field and the header spellings accepted for
// it, in priority order. The first alias is the spelling Template writes.
type Field struct {
	Name    string   `yaml:"name" json:"name"`
	Kind    Kind     `yaml:"kind" json:"kind"`
	Aliases []string `yaml:"aliases" json:"aliases"`
}

type Schema struct {
	Entity string  `yaml:"entity" json:"entity"`
	Fields []Field `yaml:"fields" json:"fields"`
}

func (s Schema) Validate() error {
	if strings.TrimSpace(s.Entity) == "" {
		return fmt.Errorf("schema entity is required")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s has no fields", s.Entity)
	}
	seen := map[string]struct{}{}
	for _, field := range s.Fields {
		if strings.TrimSpace(field.Name) == "" {
			return fmt.Errorf("schema %s has a field without a name", s.Entity)
		}
		if _, dup := seen[field.Name]; dup {
			return fmt.Errorf("schema %s declares field %s twice", s.Entity, field.Name)
		}
		seen[field.Name] = struct{}{}
		switch field.Kind {
		case "", KindText, KindDate, KindBool, KindNumber:
		default:
			return fmt.Errorf("schema %s field %s has unknown kind %q", s.Entity, field.Name, field.Kind)
		}
	}
	return nil
}

// Headers returns the header row a template for s carries.
func (s Schema) Headers() []string {
	headers := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		headers = append(headers, field.header())
	}
	return headers
}

func (f Field) header() string {
	if len(f.Aliases) > 0 {
		return f.Aliases[0]
	}
	return f.Name
}

// Row is one data row of the first sheet keyed by the header row. Headers
// keep sheet order so resolution is deterministic when spellings collide.
type Row struct {
	Number  int
	Headers []string
	Cells   []string
}

func (r Row) cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[i])
}

func (r Row) blank() bool {
	for i := range r.Cells {
		if r.cell(i) != "" {
			return false
		}
	}
	return true
}

// Resolve returns the value for f from row. Aliases are tried verbatim in
// order first; if none carries a value, headers are compared again after
// normalization so unlisted spellings still match. A missing field is "".
func (f Field) Resolve(row Row) string {
	for _, alias := range f.Aliases {
		for i, header := range row.Headers {
			if strings.TrimSpace(header) == alias {
				if value := row.cell(i); value != "" {
					return value
				}
			}
		}
	}

	normalized := make([]string, len(row.Headers))
	for i, header := range row.Headers {
		normalized[i] = normalizeHeader(header)
	}
	for _, alias := range append(append([]string(nil), f.Aliases...), f.Name) {
		want := normalizeHeader(alias)
		for i, key := range normalized {
			if key == want && key != "" {
				if value := row.cell(i); value != "" {
					return value
				}
			}
		}
	}
	return ""
}

// normalizeHeader folds case, strips diacritics and drops spaces, underscores
// and hyphens, so "Date of Birth", "date_of_birth" and "DATE-OF-BIRTH" agree.
func normalizeHeader(header string) string {
	decomposed := norm.NFD.String(strings.ToLower(strings.TrimSpace(header)))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
		case unicode.IsSpace(r), r == '_', r == '-', r == '.':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

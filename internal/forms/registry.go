package forms

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/phillip-england/hrconsole/internal/ingest"
	"github.com/phillip-england/hrconsole/internal/validation"
	"gopkg.in/yaml.v3"
)

//go:embed forms.yaml
var builtinDefinitions []byte

var ErrUnknownEntity = errors.New("unknown form entity")

// IdentityFields names the record fields a search-and-select field group
// writes into.
type IdentityFields struct {
	Identifier  string `yaml:"identifier" json:"identifier"`
	DisplayName string `yaml:"displayName" json:"displayName"`
}

// Definition describes one creation form: where it submits, which fields
// carry the selected employee, how spreadsheet headers map onto it, and
// which rules gate submission.
type Definition struct {
	Entity   string
	Title    string
	Endpoint string
	Identity IdentityFields
	Schema   ingest.Schema
	Rules    []validation.Spec

	ruleset validation.Ruleset
}

func (d Definition) Ruleset() validation.Ruleset {
	return d.ruleset
}

type definitionFile struct {
	Entities []struct {
		Entity   string            `yaml:"entity"`
		Title    string            `yaml:"title"`
		Endpoint string            `yaml:"endpoint"`
		Identity IdentityFields    `yaml:"identity"`
		Fields   []ingest.Field    `yaml:"fields"`
		Rules    []validation.Spec `yaml:"rules"`
	} `yaml:"entities"`
}

// Parse decodes a forms YAML document.
func Parse(data []byte) ([]Definition, error) {
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode forms: %w", err)
	}
	defs := make([]Definition, 0, len(file.Entities))
	for _, entry := range file.Entities {
		def := Definition{
			Entity:   strings.TrimSpace(entry.Entity),
			Title:    strings.TrimSpace(entry.Title),
			Endpoint: strings.TrimSpace(entry.Endpoint),
			Identity: entry.Identity,
			Schema:   ingest.Schema{Entity: strings.TrimSpace(entry.Entity), Fields: entry.Fields},
			Rules:    entry.Rules,
		}
		if err := def.compile(); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (d *Definition) compile() error {
	if err := d.Schema.Validate(); err != nil {
		return err
	}
	if d.Endpoint == "" || !strings.HasPrefix(d.Endpoint, "/") {
		return fmt.Errorf("form %s: endpoint must start with /", d.Entity)
	}
	if d.Title == "" {
		d.Title = d.Entity
	}
	known := map[string]bool{}
	for _, field := range d.Schema.Fields {
		known[field.Name] = true
	}
	for _, name := range []string{d.Identity.Identifier, d.Identity.DisplayName} {
		if name != "" && !known[name] {
			return fmt.Errorf("form %s: identity field %s is not declared", d.Entity, name)
		}
	}
	for _, spec := range d.Rules {
		if !known[spec.Field] {
			return fmt.Errorf("form %s: rule %s references undeclared field %s", d.Entity, spec.Check, spec.Field)
		}
	}
	ruleset, err := validation.BuildRuleset(d.Rules)
	if err != nil {
		return fmt.Errorf("form %s: %w", d.Entity, err)
	}
	d.ruleset = ruleset
	return nil
}

type Registry struct {
	defs map[string]Definition
}

// LoadRegistry returns the built-in forms, extended or overridden by the
// entities in extraPath when it is set.
func LoadRegistry(extraPath string) (*Registry, error) {
	defs, err := Parse(builtinDefinitions)
	if err != nil {
		return nil, fmt.Errorf("builtin forms: %w", err)
	}
	registry, err := NewRegistry(defs...)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(extraPath) == "" {
		return registry, nil
	}
	data, err := os.ReadFile(extraPath)
	if err != nil {
		return nil, fmt.Errorf("read forms file: %w", err)
	}
	extra, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", extraPath, err)
	}
	for _, def := range extra {
		registry.defs[def.Entity] = def
	}
	return registry, nil
}

func NewRegistry(defs ...Definition) (*Registry, error) {
	registry := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if err := def.compile(); err != nil {
			return nil, err
		}
		registry.defs[def.Entity] = def
	}
	return registry, nil
}

func (r *Registry) Get(entity string) (Definition, error) {
	def, ok := r.defs[entity]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	return def, nil
}

// All returns every definition sorted by entity.
func (r *Registry) All() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}

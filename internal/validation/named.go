package validation

import (
	"fmt"
	"strings"
)

// Spec names a rule declaratively, as entity definitions spell them.
type Spec struct {
	Check string `yaml:"check"`
	Field string `yaml:"field"`
	// Other is the comparison field for "after".
	Other string `yaml:"other,omitempty"`
}

// Build turns a Spec into a Rule.
func Build(spec Spec) (Rule, error) {
	field := strings.TrimSpace(spec.Field)
	if field == "" {
		return nil, fmt.Errorf("validation: rule %q has no field", spec.Check)
	}
	switch strings.ToLower(strings.TrimSpace(spec.Check)) {
	case "required":
		return Required(field), nil
	case "email":
		return Email(field), nil
	case "phone":
		return Phone(field), nil
	case "emergency_contact":
		return EmergencyContact(field), nil
	case "pincode":
		return Pincode(field), nil
	case "pan":
		return PAN(field), nil
	case "numeric":
		return Numeric(field), nil
	case "not_future":
		return NotFuture(field), nil
	case "after":
		other := strings.TrimSpace(spec.Other)
		if other == "" {
			return nil, fmt.Errorf("validation: rule after on %q needs other", field)
		}
		return After(field, other), nil
	default:
		return nil, fmt.Errorf("validation: unknown check %q", spec.Check)
	}
}

func BuildRuleset(specs []Spec) (Ruleset, error) {
	rules := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		rule, err := Build(spec)
		if err != nil {
			return Ruleset{}, err
		}
		rules = append(rules, rule)
	}
	return Ruleset{Rules: rules}, nil
}

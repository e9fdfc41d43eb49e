// Package validation holds the field-level rules applied to a record before
// it may be submitted. Rules are stateless; a Ruleset evaluates every rule and
// collects every violation instead of stopping at the first one.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrValidationFailure is matched by any non-empty Errors value.
var ErrValidationFailure = errors.New("validation failed")

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	panPattern    = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]{1}$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
)

// Values is the string view of a record that rules read from.
type Values map[string]string

func (v Values) get(field string) string {
	return strings.TrimSpace(v[field])
}

// Errors maps a field name to every message raised against it.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Empty() bool {
	return len(e) == 0
}

// Fields returns the offending field names in sorted order.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range e.Fields() {
		parts = append(parts, field+": "+strings.Join(e[field], "; "))
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailure, strings.Join(parts, ", "))
}

func (e Errors) Is(target error) bool {
	return target == ErrValidationFailure && !e.Empty()
}

// Err returns e as an error, or nil when there are no violations.
func (e Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Rule inspects values and records violations into errs.
type Rule interface {
	Apply(values Values, now time.Time, errs Errors)
}

type RuleFunc func(values Values, now time.Time, errs Errors)

func (f RuleFunc) Apply(values Values, now time.Time, errs Errors) {
	f(values, now, errs)
}

type Ruleset struct {
	Rules []Rule
	// Now defaults to time.Now.
	Now func() time.Time
}

func (r Ruleset) Validate(values Values) Errors {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	errs := Errors{}
	for _, rule := range r.Rules {
		rule.Apply(values, now, errs)
	}
	return errs
}

// Required rejects blank values for each field.
func Required(fields ...string) Rule {
	return RuleFunc(func(values Values, _ time.Time, errs Errors) {
		for _, field := range fields {
			if values.get(field) == "" {
				errs.Add(field, "is required")
			}
		}
	})
}

// Email checks the address shape of field when it is present.
func Email(field string) Rule {
	return RuleFunc(func(values Values, _ time.Time, errs Errors) {
		value := values.get(field)
		if value == "" {
			return
		}
		if !emailPattern.MatchString(value) {
			errs.Add(field, "must be a valid email address")
		}
	})
}

// Digits requires field to be exactly n digits when present.
func Digits(field string, n int, label string) Rule {
	return RuleFunc(func(values Values, _ time.Time, errs Errors) {
		value := values.get(field)
		if value == "" {
			return
		}
		if len(value) != n || !digitsPattern.MatchString(value) {
			errs.Add(field, fmt.Sprintf("%s must be %d digits", label, n))
		}
	})
}

func Phone(field string) Rule {
	return Digits(field, 10, "phone number")
}

func EmergencyContact(field string) Rule {
	return Digits(field, 10, "emergency contact")
}

func Pincode(field string) Rule {
	return Digits(field, 6, "pincode")
}

// ValidPAN reports whether value is a PAN in canonical upper case.
func ValidPAN(value string) bool {
	return panPattern.MatchString(value)
}

func NormalizePAN(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// PAN accepts any casing; the value is upper-cased before it is checked.
func PAN(field string) Rule {
	return RuleFunc(func(values Values, _ time.Time, errs Errors) {
		value := values.get(field)
		if value == "" {
			return
		}
		if !ValidPAN(NormalizePAN(value)) {
			errs.Add(field, "PAN must look like ABCDE1234F")
		}
	})
}

// Numeric requires field to parse as a number when present.
func Numeric(field string) Rule {
	return RuleFunc(func(values Values, _ time.Time, errs Errors) {
		value := values.get(field)
		if value == "" {
			return
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			errs.Add(field, "must be a number")
		}
	})
}

// NotFuture rejects dates after today.
func NotFuture(field string) Rule {
	return RuleFunc(func(values Values, now time.Time, errs Errors) {
		raw := values.get(field)
		if raw == "" {
			return
		}
		date, ok := ParseDate(raw)
		if !ok {
			errs.Add(field, "must be a date (YYYY-MM-DD)")
			return
		}
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if date.After(today) {
			errs.Add(field, "cannot be in the future")
		}
	})
}

// After requires field to be strictly later than other. It stays silent when
// either date is missing or unparsable; other rules report those cases.
func After(field, other string) Rule {
	return RuleFunc(func(values Values, _ time.Time, errs Errors) {
		later, ok := ParseDate(values.get(field))
		if !ok {
			return
		}
		earlier, ok := ParseDate(values.get(other))
		if !ok {
			return
		}
		if !later.After(earlier) {
			errs.Add(field, "must be after "+other)
		}
	})
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
}

// ParseDate parses the calendar date formats records carry, in UTC.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

package ingest

import (
	"encoding/json"
	"strconv"
)

// Record is a canonical record: every schema field is present, text and
// date fields as string, bool fields as bool, number fields as float64.
// A number field that did not parse keeps its raw string.
type Record struct {
	Entity string
	// Row is the 1-based sheet row the record came from; 0 for records not
	// read from a sheet.
	Row    int
	Fields map[string]any
}

func NewRecord(entity string) Record {
	return Record{Entity: entity, Fields: map[string]any{}}
}

func (r Record) Set(name string, value any) {
	r.Fields[name] = value
}

// String renders any field as text; a missing field is "".
func (r Record) String(name string) string {
	switch v := r.Fields[name].(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// Values flattens the record for validation.
func (r Record) Values() map[string]string {
	out := make(map[string]string, len(r.Fields))
	for name := range r.Fields {
		out[name] = r.String(name)
	}
	return out
}

func (r Record) Clone() Record {
	out := Record{Entity: r.Entity, Row: r.Row, Fields: make(map[string]any, len(r.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Fields)
}

// FromValues builds a record from submitted form text, coercing each field
// the same way a sheet cell would be.
func FromValues(schema Schema, values map[string]string) Record {
	record := NewRecord(schema.Entity)
	for _, field := range schema.Fields {
		record.Set(field.Name, coerce(field.Kind, values[field.Name]))
	}
	return record
}

func coerce(kind Kind, raw string) any {
	switch kind {
	case KindDate:
		return coerceDate(raw)
	case KindBool:
		return coerceBool(raw)
	case KindNumber:
		if n, ok := coerceNumber(raw); ok {
			return n
		}
		return raw
	default:
		return raw
	}
}

// Package ingest turns an uploaded spreadsheet into canonical records for a
// form entity. It is a pure transform: nothing is submitted or logged here.
package ingest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Upload is a file as received from a browser or read from disk.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result holds either a single record, which populates an edit form, or a
// batch for bulk submission. Exactly one of Single and Batch is set.
type Result struct {
	BatchID string
	Format  Format
	Single  *Record
	Batch   []Record
}

func (r Result) Records() []Record {
	if r.Single != nil {
		return []Record{*r.Single}
	}
	return r.Batch
}

func (r Result) IsBatch() bool {
	return r.Single == nil
}

// Ingest parses the first sheet of upload and maps every data row onto
// schema. Fully blank rows are skipped.
func Ingest(upload Upload, schema Schema) (Result, error) {
	format, err := DetectFormat(upload.Name, upload.ContentType)
	if err != nil {
		return Result{}, err
	}
	rows, err := readRows(format, upload.Data)
	if err != nil {
		return Result{}, err
	}
	records, err := mapRows(rows, schema)
	if err != nil {
		return Result{}, err
	}

	result := Result{BatchID: uuid.NewString(), Format: format}
	if len(records) == 1 {
		result.Single = &records[0]
	} else {
		result.Batch = records
	}
	return result, nil
}

func mapRows(rows [][]string, schema Schema) ([]Record, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	var records []Record
	for i, cells := range rows[1:] {
		row := Row{Number: i + 2, Headers: headers, Cells: cells}
		if row.blank() {
			continue
		}
		records = append(records, mapRow(row, schema))
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: only a header row was found", ErrEmptySheet)
	}
	return records, nil
}

func mapRow(row Row, schema Schema) Record {
	record := NewRecord(schema.Entity)
	record.Row = row.Number
	for _, field := range schema.Fields {
		record.Set(field.Name, coerce(field.Kind, field.Resolve(row)))
	}
	return record
}

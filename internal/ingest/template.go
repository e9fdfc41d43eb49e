package ingest

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	templateSheet  = "Template"
	minColumnWidth = 12
	maxColumnWidth = 48
)

// TemplateName is the download file name for an entity's template.
func TemplateName(schema Schema) string {
	return schema.Entity + "-template.xlsx"
}

// Template builds an empty workbook whose header row carries the exact
// spelling Ingest matches first for each field.
func Template(schema Schema) ([]byte, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), templateSheet); err != nil {
		return nil, fmt.Errorf("name template sheet: %w", err)
	}
	headers := schema.Headers()
	cells := make([]any, len(headers))
	for i, header := range headers {
		cells[i] = header
	}
	if err := file.SetSheetRow(templateSheet, "A1", &cells); err != nil {
		return nil, fmt.Errorf("write template header: %w", err)
	}

	bold, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return nil, err
	}
	if err := file.SetCellStyle(templateSheet, "A1", last, bold); err != nil {
		return nil, fmt.Errorf("style template header: %w", err)
	}
	for i, header := range headers {
		column, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		width := float64(utf8.RuneCountInString(header) + 4)
		width = max(minColumnWidth, min(width, maxColumnWidth))
		if err := file.SetColWidth(templateSheet, column, column, width); err != nil {
			return nil, fmt.Errorf("size template column %s: %w", column, err)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}

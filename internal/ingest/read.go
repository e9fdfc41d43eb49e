package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrEmptySheet        = errors.New("spreadsheet has no data rows")
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

var mimeFormats = map[string]Format{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FormatXLSX,
	"application/vnd.ms-excel":                                          FormatXLS,
	"text/csv":                                                          FormatCSV,
	"application/csv":                                                   FormatCSV,
}

// DetectFormat picks a reader from the file extension, falling back to the
// MIME type when the name has no extension.
func DetectFormat(name, contentType string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	case ".csv":
		return FormatCSV, nil
	case "":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		if format, ok := mimeFormats[mediaType]; ok {
			return format, nil
		}
	}
	return "", fmt.Errorf("%w: %q has no recognised extension or content type", ErrUnsupportedFormat, name)
}

func readRows(format Format, data []byte) ([][]string, error) {
	switch format {
	case FormatXLSX:
		return readXLSX(data)
	case FormatXLS:
		return readXLS(data)
	case FormatCSV:
		return readCSV(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// readXLSX keeps raw cell values so date cells arrive as serials. Boolean
// cells are stored as 1/0 and are mapped back to TRUE/FALSE.
func readXLSX(data []byte) ([][]string, error) {
	raw := excelize.Options{RawCellValue: true}
	file, err := excelize.OpenReader(bytes.NewReader(data), raw)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrEmptySheet
	}
	rows, err := file.GetRows(sheetName, raw)
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	for r, row := range rows {
		for c, value := range row {
			if value != "0" && value != "1" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			if kind, err := file.GetCellType(sheetName, cell); err == nil && kind == excelize.CellTypeBool {
				if value == "1" {
					row[c] = "TRUE"
				} else {
					row[c] = "FALSE"
				}
			}
		}
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrEmptySheet
	}
	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptySheet
	}
	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// readCSV honours a UTF-8 or UTF-16 byte order mark and treats input that
// is not valid UTF-8 as Latin-1, which is what older Excel exports produce.
func readCSV(data []byte) ([][]string, error) {
	var decoded io.Reader
	switch {
	case hasBOM(data):
		decoded = transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	case utf8.Valid(data):
		decoded = bytes.NewReader(data)
	default:
		decoded = transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder())
	}

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}

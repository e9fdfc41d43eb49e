package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// excelEpochOffset is the number of days between the spreadsheet epoch
	// (1899-12-30) and the Unix epoch.
	excelEpochOffset = 25569
	secondsPerDay    = 86400
	// maxSerial is 9999-12-31, the last date a workbook can hold.
	maxSerial = 2958465

	DateLayout = "2006-01-02"
)

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01/02/06",
	"1-2-2006",
	"01-02-2006",
	"1-2-06",
	"01-02-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006/01/02",
	"1/2/2006 3:04 PM",
	"01/02/2006 03:04 PM",
	"1/2/2006 3:04:05 PM",
	"01/02/2006 03:04:05 PM",
	"1/2/2006 15:04",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var trueValues = map[string]struct{}{
	"Yes":  {},
	"yes":  {},
	"TRUE": {},
	"true": {},
}

// SerialToDate converts a spreadsheet date serial to a UTC calendar date.
// The fractional time of day is dropped.
func SerialToDate(serial float64) time.Time {
	days := int64(math.Floor(serial)) - excelEpochOffset
	return time.Unix(days*secondsPerDay, 0).UTC()
}

// coerceDate returns value as YYYY-MM-DD when it is a date serial or a
// recognised textual date; anything else is returned trimmed and unchanged
// so the validators can report it.
func coerceDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial >= 1 && serial <= maxSerial {
			return SerialToDate(serial).Format(DateLayout)
		}
		return value
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format(DateLayout)
		}
	}
	return value
}

func coerceBool(value string) bool {
	_, ok := trueValues[strings.TrimSpace(value)]
	return ok
}

// coerceNumber accepts thousands separators. ok is false for anything else,
// in which case the raw text should be kept.
func coerceNumber(value string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

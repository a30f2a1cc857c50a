// Package ingest loads the public Border Crossing Entry dataset from CSV
// into store entries, normalizing column names, numeric types, and dates.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hed1ad/crossguard/pkg/store"
)

// sourceDateLayout is the date format used by the published CSV ("Mar 2024").
const sourceDateLayout = "Jan 2006"

// storedDateLayout is the canonical form entries carry.
const storedDateLayout = "2006-01-02"

// columns maps CSV headers to store fields. All of them are required.
var columns = []string{
	"Port Name",
	"State",
	"Port Code",
	"Border",
	"Date",
	"Measure",
	"Value",
	"Latitude",
	"Longitude",
	"Point",
}

// Result summarizes one load.
type Result struct {
	Entries []store.Entry
	// Skipped counts records dropped for having the wrong field count.
	Skipped int
}

// LoadFile reads and converts the CSV at path.
func LoadFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load reads and converts CSV data from r. The first record must be the
// header row; missing required columns are an error. Unconvertible numeric
// or date cells become NULLs rather than errors, matching the forgiving
// coercion the dataset needs (blank values are common).
func Load(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range columns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("CSV is missing required columns: %s", strings.Join(missing, ", "))
	}

	res := &Result{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		if len(record) < len(header) {
			res.Skipped++
			continue
		}

		cell := func(name string) string {
			return strings.TrimSpace(record[index[name]])
		}

		entry := store.Entry{
			PortName:  cell("Port Name"),
			State:     cell("State"),
			PortCode:  parseInt(cell("Port Code")),
			Border:    cell("Border"),
			Date:      normalizeDate(cell("Date")),
			Measure:   cell("Measure"),
			Value:     parseInt(cell("Value")),
			Latitude:  parseFloat(cell("Latitude")),
			Longitude: parseFloat(cell("Longitude")),
			Point:     cell("Point"),
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

// parseInt coerces a cell to an integer, accepting float spellings of whole
// numbers like "1234.0". Blank, unconvertible, or fractional cells become
// nil; a fractional count is a data error, not something to round.
func parseInt(s string) *int64 {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	n := int64(f)
	return &n
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return nil
	}
	return &f
}

// normalizeDate converts "Mmm YYYY" to "YYYY-MM-DD"; anything else becomes
// empty (stored as NULL).
func normalizeDate(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse(sourceDateLayout, s)
	if err != nil {
		return ""
	}
	return t.Format(storedDateLayout)
}

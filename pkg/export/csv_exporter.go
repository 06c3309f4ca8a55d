package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content. For timetable grids the first header
// is the row label column (the day) and the rest are periods.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Caption is printed under the title of paged formats.
	Caption string
}

// CSVExporter writes a timetable grid as one CSV line per day.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes the header line followed by one line per row. Every row must
// carry its label, and a cell keyed by a column the grid does not have is an
// error rather than a silently dropped class.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	columns := make(map[string]int, len(data.Headers))
	for i, header := range data.Headers {
		if _, dup := columns[header]; dup {
			return nil, fmt.Errorf("duplicate grid column %q", header)
		}
		columns[header] = i
	}
	label := data.Headers[0]

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for n, row := range data.Rows {
		if row[label] == "" {
			return nil, fmt.Errorf("grid row %d has no %s", n+1, label)
		}
		record := make([]string, len(data.Headers))
		for key, value := range row {
			i, ok := columns[key]
			if !ok {
				return nil, fmt.Errorf("grid row %s: unknown column %q", row[label], key)
			}
			record[i] = value
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

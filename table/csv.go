package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Column is one exported CSV column.
type Column[T any] struct {
	Header string
	Value  func(row T) string
}

// WriteCSV writes a header line and one record per row.
func WriteCSV[T any](w io.Writer, columns []Column[T], rows []T) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Header
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	return writeRows(cw, columns, rows)
}

// WriteCSVRows appends records without a header, for exports written one
// page at a time.
func WriteCSVRows[T any](w io.Writer, columns []Column[T], rows []T) error {
	return writeRows(csv.NewWriter(w), columns, rows)
}

func writeRows[T any](cw *csv.Writer, columns []Column[T], rows []T) error {
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			record[i] = c.Value(row)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

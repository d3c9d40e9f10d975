package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// TableExt is the file extension of persisted feature tables
const TableExt = ".csv"

// WriteTable writes m as a header-less CSV: one row per coefficient, one column
// per frame, values in shortest float32 form.
func WriteTable(w io.Writer, m Matrix) error {
	cw := csv.NewWriter(w)
	record := make([]string, m.Cols())
	for i, row := range m {
		if len(row) != len(record) {
			return fmt.Errorf("row %d has %d columns, want %d", i, len(row), len(record))
		}
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 32)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable loads a table written by WriteTable. Every row must have the same
// number of columns.
func ReadTable(r io.Reader) (Matrix, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	var m Matrix
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read feature table: %w", err)
		}
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", len(m), j, err)
			}
			row[j] = v
		}
		m = append(m, row)
	}
	return m, nil
}

package core

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteFailedRows writes the failed rows of result as CSV: a header of
// _line, _error and the original columns, then one record per row.
func WriteFailedRows(w io.Writer, result *ImportResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"_line", "_error"}, result.Header...)); err != nil {
		return err
	}
	for _, row := range result.FailedRows {
		record := append([]string{strconv.Itoa(row.LineNumber), row.Reason}, row.Data...)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

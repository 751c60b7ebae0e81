// Package export renders ledger tables as CSV and reads account exports back.
//
// Every field is double-quoted with inner quotes doubled, fields follow the
// table's column order and there is no header row.
package export

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"ledger/internal/errors"
)

// Encode writes rows to w, one line per row.
func Encode(w io.Writer, rows [][]string) error {
	bw := bufio.NewWriter(w)
	for _, row := range rows {
		if _, err := bw.WriteString(encodeRow(row)); err != nil {
			return errors.Internal("failed to write csv", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Internal("failed to write csv", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Internal("failed to write csv", err)
	}
	return nil
}

func encodeRow(row []string) string {
	var b strings.Builder
	for _, field := range row {
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteString(`",`)
	}
	return strings.TrimSuffix(b.String(), ",")
}

// Decode reads rows written by Encode. Every row must have the same number of
// fields as the first.
func Decode(r io.Reader) ([][]string, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.ErrInvalidInput.WithDetails("malformed csv: " + err.Error())
	}
	return rows, nil
}

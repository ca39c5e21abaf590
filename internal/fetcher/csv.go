package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	SkipRows   int
}

// ReadCSV reads every row from r. Fields are trimmed and blank rows are
// skipped; rows may have varying field counts.
func ReadCSV(r io.Reader, opts CSVOptions) ([][]string, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	var rows [][]string
	for line := 0; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		if line < opts.SkipRows {
			continue
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		if blank(record) {
			continue
		}
		rows = append(rows, record)
	}
}

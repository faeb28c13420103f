package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyInput is returned when a CSV source has no header row.
var ErrEmptyInput = errors.New("csv input is empty")

// ReadCSV parses a header-first CSV stream into a Dataset. Header names are
// trimmed and lower-cased; short rows leave missing cells empty. Quoting is
// read leniently, and a record that still fails to parse is kept in
// Dataset.RowErrors so the remaining rows can be processed. Only an
// unreadable header row fails the whole read.
func ReadCSV(r io.Reader) (Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Dataset{}, ErrEmptyInput
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("read csv header: %w", err)
	}
	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, "\ufeff")
		}
		headers[i] = strings.ToLower(strings.TrimSpace(header))
	}

	data := Dataset{Headers: headers}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			if data.RowErrors == nil {
				data.RowErrors = make(map[int]error)
			}
			data.RowErrors[len(data.Rows)] = fmt.Errorf("malformed csv record: %w", parseErr.Err)
			data.Rows = append(data.Rows, map[string]string{})
			continue
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("read csv line %d: %w", len(data.Rows)+2, err)
		}
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = strings.TrimSpace(record[i])
			}
		}
		data.Rows = append(data.Rows, row)
	}
	return data, nil
}

// MissingColumns lists required headers absent from the dataset, in the order given.
func (d Dataset) MissingColumns(required ...string) []string {
	present := make(map[string]struct{}, len(d.Headers))
	for _, header := range d.Headers {
		present[header] = struct{}{}
	}
	var missing []string
	for _, column := range required {
		if _, ok := present[column]; !ok {
			missing = append(missing, column)
		}
	}
	return missing
}

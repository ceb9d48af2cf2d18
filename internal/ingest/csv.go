package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/sitewright/sitewright/internal/interfaces"
)

// CSVSource is a RowSource over a delimited file. The first row supplies the
// headers. Each Rows call reopens the file, so iteration is restartable.
type CSVSource struct {
	path    string
	comma   rune
	headers []string
}

// NewCSVSource opens the file once to read headers and validates the shape
func NewCSVSource(path string, comma rune) (*CSVSource, error) {
	if comma == 0 {
		comma = ','
	}

	src := &CSVSource{path: path, comma: comma}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = comma
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row from %s: %w", path, err)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("no header columns in %s", path)
	}

	src.headers = headers
	return src, nil
}

// Headers returns the column headers in file order
func (s *CSVSource) Headers() []string {
	return s.headers
}

// Rows starts a fresh iteration from the first data row
func (s *CSVSource) Rows() (interfaces.RowIterator, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}

	reader := csv.NewReader(f)
	reader.Comma = s.comma
	reader.FieldsPerRecord = -1

	// Skip the header row
	if _, err := reader.Read(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to skip header row of %s: %w", s.path, err)
	}

	return &csvIterator{
		file:    f,
		reader:  reader,
		headers: s.headers,
	}, nil
}

type csvIterator struct {
	file    *os.File
	reader  *csv.Reader
	headers []string
	row     int
}

func (it *csvIterator) Next() (*interfaces.Row, error) {
	record, err := it.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	it.row++
	fields := make(map[string]string, len(it.headers))
	for i, header := range it.headers {
		if i < len(record) {
			fields[header] = record[i]
		}
	}

	return &interfaces.Row{
		Number: it.row,
		Fields: fields,
	}, nil
}

func (it *csvIterator) Close() error {
	return it.file.Close()
}

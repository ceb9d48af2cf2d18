package interfaces

// Row is one source row: an ordered field→value mapping plus its 1-based
// position in the file
type Row struct {
	Number int
	Fields map[string]string
}

// RowIterator yields rows in file order. Next returns io.EOF when the
// source is exhausted.
type RowIterator interface {
	Next() (*Row, error)
	Close() error
}

// RowSource abstracts row extraction from a tabular format. Implementations
// must be restartable: each Rows call starts a fresh iteration from the
// first data row.
type RowSource interface {
	Headers() []string
	Rows() (RowIterator, error)
}

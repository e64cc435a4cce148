package core

// ResultKind tags which half of a Result is populated.
type ResultKind int

const (
	// ResultRows is produced by read statements.
	ResultRows ResultKind = iota + 1
	// ResultWrite is produced by every other statement.
	ResultWrite
)

func (k ResultKind) String() string {
	if k == ResultRows {
		return "rows"
	}
	return "write"
}

// Row maps column names to values. Text values are always returned as string,
// never as []byte, so callers see the same shape from every engine.
type Row map[string]any

// Result is the normalized outcome of a successful statement.
//
// For Kind == ResultRows, Columns and Rows are set and Rows keeps the order the
// engine produced them in. For Kind == ResultWrite, RowsAffected and InsertedID
// are set; InsertedID is nil when the engine reports no generated identifier.
type Result struct {
	Kind         ResultKind
	Columns      []string
	Rows         []Row
	RowsAffected int64
	InsertedID   *int64
}

// NewRowsResult builds a read result. A nil rows slice is normalized to empty.
func NewRowsResult(columns []string, rows []Row) *Result {
	if rows == nil {
		rows = []Row{}
	}
	return &Result{Kind: ResultRows, Columns: columns, Rows: rows}
}

// NewWriteResult builds a write result.
func NewWriteResult(affected int64, insertedID *int64) *Result {
	return &Result{Kind: ResultWrite, RowsAffected: affected, InsertedID: insertedID}
}

// IsRead reports whether the result carries rows.
func (r *Result) IsRead() bool { return r != nil && r.Kind == ResultRows }

// Len returns the number of rows in a read result and zero otherwise.
func (r *Result) Len() int {
	if !r.IsRead() {
		return 0
	}
	return len(r.Rows)
}

// Column returns the values of one column across all rows, in row order.
func (r *Result) Column(name string) []any {
	if !r.IsRead() {
		return nil
	}
	out := make([]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, row[name])
	}
	return out
}

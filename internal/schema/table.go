// Package schema provides the tabular data model and column canonicalization
// for security-event batches arriving in arbitrary vendor formats.
package schema

// Canonical column names the pipeline understands. Anything else passes
// through untouched.
const (
	ColTimestamp     = "timestamp"
	ColSourceIP      = "source_ip"
	ColDestinationIP = "destination_ip"
	ColEventType     = "event_type"
	ColUsername      = "username"
	ColStatus        = "status"
)

// CanonicalColumns lists the fixed vocabulary in its conventional order.
var CanonicalColumns = []string{
	ColTimestamp,
	ColSourceIP,
	ColDestinationIP,
	ColEventType,
	ColUsername,
	ColStatus,
}

// Record is one event row: column name to value. Values are strings or
// numbers as decoded from the input; absent columns are absent keys.
type Record map[string]any

// Table is an ordered collection of records. Columns carries the column
// order; Rows may reference a subset of Columns (absent cell = absent key).
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Empty reports whether the table has no rows or no columns.
func (t Table) Empty() bool {
	return len(t.Rows) == 0 || len(t.Columns) == 0
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Truncate returns a table limited to the first n rows. A non-positive or
// oversized n returns the table unchanged.
func (t Table) Truncate(n int) Table {
	if n <= 0 || n >= len(t.Rows) {
		return t
	}
	return Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// String returns the value of col as a string, or "" when the cell is
// absent or not string-typed. Numeric cells are not stringified; the
// canonical fields the pipeline consumes as strings arrive as strings.
func (r Record) String(col string) string {
	v, ok := r[col]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Has reports whether the record carries a value for col.
func (r Record) Has(col string) bool {
	_, ok := r[col]
	return ok
}

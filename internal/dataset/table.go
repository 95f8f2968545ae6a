package dataset

import (
	"iter"
	"maps"
	"slices"
)

// Table names used in diagnostics and logs.
const (
	TableTransactions = "transactions"
	TableCaptures     = "captures"
	TablePedestrians  = "pedestrians"
	TablePlayers      = "players"
)

// Table is an immutable, normalized view of one source file.
type Table[T any] struct {
	name string
	rows []T
	caps Capability
	diag Diagnostics
}

func newTable[T any](name string, rows []T, caps Capability, diag Diagnostics) *Table[T] {
	return &Table[T]{name: name, rows: rows, caps: caps, diag: diag}
}

// NewTable builds a table from already normalized rows. It is meant for
// fixtures; loaded tables come from the Build functions.
func NewTable[T any](name string, rows []T, caps Capability) *Table[T] {
	diag := Diagnostics{
		Table:     name,
		RowsRead:  len(rows),
		RowsKept:  len(rows),
		Coercions: map[string]int{},
	}
	return newTable(name, slices.Clone(rows), caps, diag)
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.name
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// At returns a copy of row i.
func (t *Table[T]) At(i int) T {
	return t.rows[i]
}

// All yields every row in file order.
func (t *Table[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if t == nil {
			return
		}
		for _, row := range t.rows {
			if !yield(row) {
				return
			}
		}
	}
}

// Capabilities returns the recognized-column flags of the table.
func (t *Table[T]) Capabilities() Capability {
	if t == nil {
		return 0
	}
	return t.caps
}

// Diagnostics returns a copy of the load diagnostics.
func (t *Table[T]) Diagnostics() Diagnostics {
	d := t.diag
	d.Coercions = maps.Clone(t.diag.Coercions)
	d.MissingCols = slices.Clone(t.diag.MissingCols)
	return d
}

package air

import (
	"fmt"

	"github.com/sabrinahirani/semaphore-stark/internal/semaphore/core"
)

// TraceTable is the execution trace: a rectangular matrix of field elements
// with one row per algebraic step and one column per register.
type TraceTable struct {
	field  *core.Field
	width  int
	length int
	rows   [][]*core.FieldElement
}

// NewTraceTable creates a zero-initialized trace with the given geometry
func NewTraceTable(field *core.Field, width, length int) (*TraceTable, error) {
	if width <= 0 || length <= 0 {
		return nil, fmt.Errorf("invalid trace geometry: %dx%d", length, width)
	}
	rows := make([][]*core.FieldElement, length)
	for i := range rows {
		rows[i] = make([]*core.FieldElement, width)
		for j := range rows[i] {
			rows[i][j] = field.Zero()
		}
	}
	return &TraceTable{field: field, width: width, length: length, rows: rows}, nil
}

// Width returns the number of columns
func (t *TraceTable) Width() int {
	return t.width
}

// Length returns the number of rows
func (t *TraceTable) Length() int {
	return t.length
}

// Field returns the field the trace cells belong to
func (t *TraceTable) Field() *core.Field {
	return t.field
}

// Get returns the cell at the given row and column
func (t *TraceTable) Get(row, col int) *core.FieldElement {
	t.checkBounds(row, col)
	return t.rows[row][col]
}

// Set assigns the cell at the given row and column
func (t *TraceTable) Set(row, col int, value *core.FieldElement) {
	t.checkBounds(row, col)
	t.rows[row][col] = value
}

// SetRange assigns consecutive cells of a row starting at the given column
func (t *TraceTable) SetRange(row, col int, values []*core.FieldElement) {
	for i, v := range values {
		t.Set(row, col+i, v)
	}
}

// Row returns a copy of the given row
func (t *TraceTable) Row(row int) []*core.FieldElement {
	t.checkBounds(row, 0)
	return core.CloneElements(t.rows[row])
}

// Slice returns a copy of the cells [colStart, colEnd) of the given row
func (t *TraceTable) Slice(row, colStart, colEnd int) []*core.FieldElement {
	t.checkBounds(row, colStart)
	t.checkBounds(row, colEnd-1)
	return core.CloneElements(t.rows[row][colStart:colEnd])
}

// Clone returns a deep copy of the trace
func (t *TraceTable) Clone() *TraceTable {
	rows := make([][]*core.FieldElement, t.length)
	for i := range rows {
		rows[i] = core.CloneElements(t.rows[i])
	}
	return &TraceTable{field: t.field, width: t.width, length: t.length, rows: rows}
}

func (t *TraceTable) checkBounds(row, col int) {
	if row < 0 || row >= t.length || col < 0 || col >= t.width {
		panic(fmt.Sprintf("trace cell (%d,%d) out of bounds %dx%d", row, col, t.length, t.width))
	}
}

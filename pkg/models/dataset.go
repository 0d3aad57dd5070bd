package models

import (
	"fmt"
	"math"
)

// Kind is the inferred value type of a Column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Column holds the values of one field. A nil entry (or a float NaN) is a missing value;
// non-nil entries are string, int64, float64 or bool according to Kind.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// Dataset is a column-oriented table. Every column has exactly Len() values.
type Dataset struct {
	columns []*Column
	rows    int
}

// NewDataset returns an empty dataset with the given string columns.
func NewDataset(names ...string) *Dataset {
	cols := make([]*Column, len(names))
	for i, name := range names {
		cols[i] = &Column{Name: name, Kind: KindString}
	}
	return &Dataset{columns: cols}
}

// NewDatasetFromColumns builds a dataset over existing columns.
func NewDatasetFromColumns(cols []*Column) (*Dataset, error) {
	d := &Dataset{columns: cols}
	if len(cols) == 0 {
		return d, nil
	}
	d.rows = len(cols[0].Values)
	for _, c := range cols[1:] {
		if len(c.Values) != d.rows {
			return nil, fmt.Errorf("column %q has %d values, expected %d", c.Name, len(c.Values), d.rows)
		}
	}
	return d, nil
}

func (d *Dataset) AppendRow(values []any) error {
	if len(values) != len(d.columns) {
		return fmt.Errorf("row has %d values, dataset has %d columns", len(values), len(d.columns))
	}
	for i, c := range d.columns {
		c.Values = append(c.Values, values[i])
	}
	d.rows++
	return nil
}

func (d *Dataset) Len() int   { return d.rows }
func (d *Dataset) Width() int { return len(d.columns) }

func (d *Dataset) Column(i int) *Column { return d.columns[i] }

func (d *Dataset) Columns() []*Column { return d.columns }

func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Row returns a copy of the values of row i in column order.
func (d *Dataset) Row(i int) []any {
	out := make([]any, len(d.columns))
	for j, c := range d.columns {
		out[j] = c.Values[i]
	}
	return out
}

func (d *Dataset) Value(row, col int) any { return d.columns[col].Values[row] }

func (d *Dataset) IsMissing(row, col int) bool { return isMissing(d.columns[col].Values[row]) }

func (d *Dataset) RowHasMissing(row int) bool {
	for _, c := range d.columns {
		if isMissing(c.Values[row]) {
			return true
		}
	}
	return false
}

// isMissing treats a float NaN like nil.
func isMissing(v any) bool {
	if f, ok := v.(float64); ok {
		return math.IsNaN(f)
	}
	return v == nil
}

// Select returns a new dataset holding the given rows in the given order.
// Column names and kinds are kept; the receiver is left untouched.
func (d *Dataset) Select(rows []int) *Dataset {
	cols := make([]*Column, len(d.columns))
	for j, c := range d.columns {
		values := make([]any, len(rows))
		for i, r := range rows {
			values[i] = c.Values[r]
		}
		cols[j] = &Column{Name: c.Name, Kind: c.Kind, Values: values}
	}
	return &Dataset{columns: cols, rows: len(rows)}
}

// Records returns the rows as maps keyed by column name.
func (d *Dataset) Records() []map[string]any {
	out := make([]map[string]any, d.rows)
	for i := 0; i < d.rows; i++ {
		m := make(map[string]any, len(d.columns))
		for _, c := range d.columns {
			m[c.Name] = c.Values[i]
		}
		out[i] = m
	}
	return out
}

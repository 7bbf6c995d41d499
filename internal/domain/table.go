package domain

import (
	"math"
	"strconv"
	"time"
)

// Cell is one table value: a number (NaN when missing) or a timestamp.
// Single numbers render at float32 precision.
type Cell struct {
	Value  float64
	Single bool
	Time   time.Time
	Loc    *time.Location
	IsTime bool
}

// Missing reports whether the cell holds no value.
func (c Cell) Missing() bool { return !c.IsTime && math.IsNaN(c.Value) }

// String renders the cell. Missing values render as "NaN".
func (c Cell) String() string {
	if c.IsTime {
		return FormatTime(c.Time, c.Loc)
	}
	if c.Single {
		return formatFloat(c.Value, 32)
	}
	return FormatNumber(c.Value)
}

func (c Cell) key() string {
	if c.IsTime {
		return "t" + strconv.FormatInt(c.Time.UnixNano(), 10)
	}
	return "n" + strconv.FormatFloat(c.Value, 'g', -1, 64)
}

// FormatNumber renders x with the fewest digits that round-trip.
func FormatNumber(x float64) string { return formatFloat(x, 64) }

func formatFloat(x float64, bitSize int) string {
	if math.IsNaN(x) {
		return "NaN"
	}
	return strconv.FormatFloat(x, 'f', -1, bitSize)
}

// Column is a named table column.
type Column struct {
	Name  string
	Cells []Cell
}

// DroppedColumn records a column removed because it held a single value.
type DroppedColumn struct {
	Name  string
	Value string
}

func (d DroppedColumn) String() string { return d.Name + "(" + d.Value + ")" }

// Table is a flattened point view: one row per combination of the remaining
// dimensions. Every column holds Rows cells.
type Table struct {
	Columns []Column
	Rows    int
	Dropped []DroppedColumn
}

// Header returns the column names.
func (t Table) Header() []string {
	h := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		h[i] = c.Name
	}
	return h
}

// TableOptions controls BuildTable.
type TableOptions struct {
	// KeepConstant retains columns holding a single distinct value.
	KeepConstant bool
	Units        UnitNormalizer
}

// BuildTable flattens a point view into a table.
//
// Columns are the dimension coordinates in dimension order (a positional
// index when a dimension has no coordinate), then the remaining coordinates
// such as the resolved latitude and longitude, then the data variables after
// unit normalization. Values are replicated across the dimensions an array
// does not span. Columns with no value at all are dropped. Unless
// KeepConstant is set, columns whose non-missing values are all equal are
// dropped too and listed in Dropped, whatever the number of rows.
func BuildTable(point *Dataset, opts TableOptions) Table {
	dims := make([]string, len(point.Dims))
	lens := make([]int, len(point.Dims))
	for i, d := range point.Dims {
		dims[i], lens[i] = d.Name, d.Len
	}
	rows := product(lens)
	t := Table{Rows: rows}

	// Row r decodes to one index per table dimension, last dimension fastest.
	rowIndex := func(r int, out []int) {
		for i := len(lens) - 1; i >= 0; i-- {
			out[i] = r % lens[i]
			r /= lens[i]
		}
	}
	gather := func(adims []string, shape []int, cell func(flat int) Cell) []Cell {
		pos := make([]int, len(adims))
		for i, d := range adims {
			pos[i] = indexOf(dims, d)
		}
		cells := make([]Cell, rows)
		idx := make([]int, len(dims))
		for r := 0; r < rows; r++ {
			rowIndex(r, idx)
			flat := 0
			for i, p := range pos {
				k := 0
				if p >= 0 {
					k = idx[p]
				}
				flat = flat*shape[i] + k
			}
			cells[r] = cell(flat)
		}
		return cells
	}
	coordCells := func(c *Coord) []Cell {
		return gather(c.Dims, c.Shape, func(flat int) Cell {
			if c.IsTime() {
				return Cell{Time: c.Times[flat], Loc: c.Location, IsTime: true}
			}
			return Cell{Value: c.Values[flat], Single: c.Single}
		})
	}

	var cols []Column
	used := make(map[string]bool)
	for i, d := range dims {
		if c := point.Coord(d); c != nil && point.IsDimCoord(c) {
			cols = append(cols, Column{Name: d, Cells: coordCells(c)})
			used[d] = true
			continue
		}
		cols = append(cols, Column{Name: d, Cells: gather([]string{d}, []int{lens[i]}, func(flat int) Cell {
			return Cell{Value: float64(flat)}
		})})
	}
	for _, c := range point.Coords {
		if used[c.Name] || c.Len() == 0 {
			continue
		}
		cols = append(cols, Column{Name: c.Name, Cells: coordCells(c)})
	}
	for _, v := range point.Vars {
		if len(v.Data) == 0 {
			continue
		}
		_, data, _ := opts.Units.Normalize(v.Units(), v.Data)
		cols = append(cols, Column{Name: v.Name, Cells: gather(v.Dims, v.Shape, func(flat int) Cell {
			return Cell{Value: data[flat], Single: v.Single}
		})})
	}

	for _, col := range cols {
		distinct, first := countDistinct(col.Cells)
		switch {
		case distinct == 0:
			continue
		case distinct == 1 && !opts.KeepConstant:
			t.Dropped = append(t.Dropped, DroppedColumn{Name: col.Name, Value: first.String()})
			continue
		}
		t.Columns = append(t.Columns, col)
	}
	return t
}

// countDistinct counts the distinct non-missing cells and returns the first
// of them.
func countDistinct(cells []Cell) (int, Cell) {
	seen := make(map[string]bool)
	var first Cell
	for _, c := range cells {
		if c.Missing() {
			continue
		}
		k := c.key()
		if !seen[k] {
			if len(seen) == 0 {
				first = c
			}
			seen[k] = true
		}
	}
	return len(seen), first
}

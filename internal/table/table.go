// Package table is a generic, headless table over rows of any type.
//
// A Table holds column descriptors, the rows, an optional checkbox selection
// bound to a list owned by the caller, the last clicked row, a single-column
// sort and a horizontal scroll offset. Rendering lives in Render and
// WritePlain; interaction lives in the caller.
package table

import (
	"cmp"
	"errors"
	"slices"
)

// ErrInvalidSelectionConfig reports that only some of CheckedItems,
// IdentifierKey and OnCheckedItemsChange were supplied.
var ErrInvalidSelectionConfig = errors.New("invalid table property combination")

// SortDirection is the state of the sorted column.
type SortDirection int

const (
	Unsorted SortDirection = iota
	Ascending
	Descending
)

func (d SortDirection) next() SortDirection {
	switch d {
	case Unsorted:
		return Ascending
	case Ascending:
		return Descending
	default:
		return Unsorted
	}
}

// Column describes one column. Widths are terminal cells; zero means unbounded.
type Column[T any] struct {
	ID       string
	Header   string
	Accessor func(row T) string
	// Compare orders rows when sorting; nil compares Accessor output.
	Compare  func(a, b T) int
	Sortable bool
	MinWidth int
	MaxWidth int
}

// Value renders the cell of row.
func (c Column[T]) Value(row T) string {
	if c.Accessor == nil {
		return ""
	}
	return c.Accessor(row)
}

func (c Column[T]) compare(a, b T) int {
	if c.Compare != nil {
		return c.Compare(a, b)
	}
	return cmp.Compare(c.Value(a), c.Value(b))
}

// Config builds a Table.
//
// CheckedItems, IdentifierKey and OnCheckedItemsChange enable selection and
// must be supplied together. Pass an empty, non-nil CheckedItems for a
// selection that starts empty.
type Config[T any] struct {
	Columns              []Column[T]
	Data                 []T
	IdentifierKey        func(row T) string
	CheckedItems         []T
	OnCheckedItemsChange func(checked []T)
	OnRowClick           func(row T)
	IsBusy               bool
}

// Row is a row in display order.
type Row[T any] struct {
	// Index is the row's position in the data as supplied.
	Index       int
	Value       T
	Checked     bool
	LastClicked bool
}

// Table is not safe for concurrent use; drive it from one goroutine.
type Table[T any] struct {
	columns     []Column[T]
	data        []T
	key         func(T) string
	checked     []T
	onChecked   func([]T)
	onRowClick  func(T)
	busy        bool
	sortColumn  string
	sortDir     SortDirection
	scrollX     int
	lastClicked int
}

// New validates cfg and builds a Table.
func New[T any](cfg Config[T]) (*Table[T], error) {
	supplied := 0
	if cfg.CheckedItems != nil {
		supplied++
	}
	if cfg.IdentifierKey != nil {
		supplied++
	}
	if cfg.OnCheckedItemsChange != nil {
		supplied++
	}
	if supplied != 0 && supplied != 3 {
		return nil, ErrInvalidSelectionConfig
	}

	return &Table[T]{
		columns:     cfg.Columns,
		data:        cfg.Data,
		key:         cfg.IdentifierKey,
		checked:     cfg.CheckedItems,
		onChecked:   cfg.OnCheckedItemsChange,
		onRowClick:  cfg.OnRowClick,
		busy:        cfg.IsBusy,
		lastClicked: -1,
	}, nil
}

// MustNew is New that panics on an invalid configuration.
func MustNew[T any](cfg Config[T]) *Table[T] {
	t, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns the data columns.
func (t *Table[T]) Columns() []Column[T] { return t.columns }

// HasSelection reports whether a checkbox column is shown.
func (t *Table[T]) HasSelection() bool { return t.key != nil }

// Len is the number of rows.
func (t *Table[T]) Len() int { return len(t.data) }

// SetData replaces the rows. A nil slice is an empty table.
func (t *Table[T]) SetData(data []T) {
	t.data = data
	t.lastClicked = -1
}

// SetBusy toggles the loading indicator; rows stay visible.
func (t *Table[T]) SetBusy(busy bool) { t.busy = busy }

// IsBusy reports whether the loading indicator is shown.
func (t *Table[T]) IsBusy() bool { return t.busy }

// CheckedItems returns the caller-owned checked list.
func (t *Table[T]) CheckedItems() []T { return t.checked }

// SetCheckedItems installs the caller's updated checked list.
func (t *Table[T]) SetCheckedItems(items []T) {
	if items == nil {
		items = []T{}
	}
	t.checked = items
}

// IsChecked reports whether a row with the same key as row is checked.
func (t *Table[T]) IsChecked(row T) bool {
	if t.key == nil {
		return false
	}
	k := t.key(row)
	return slices.ContainsFunc(t.checked, func(c T) bool { return t.key(c) == k })
}

// ToggleChecked reports a new checked list to OnCheckedItemsChange: row added
// when absent, removed when present. The current list is not modified. It is
// a no-op without selection.
func (t *Table[T]) ToggleChecked(row T) {
	if t.key == nil {
		return
	}
	k := t.key(row)
	var next []T
	if t.IsChecked(row) {
		next = make([]T, 0, len(t.checked))
		for _, c := range t.checked {
			if t.key(c) != k {
				next = append(next, c)
			}
		}
	} else {
		next = make([]T, 0, len(t.checked)+1)
		next = append(next, t.checked...)
		next = append(next, row)
	}
	t.onChecked(next)
}

// Rows returns the rows in display order.
func (t *Table[T]) Rows() []Row[T] {
	rows := make([]Row[T], len(t.data))
	for i, v := range t.data {
		rows[i] = Row[T]{
			Index:       i,
			Value:       v,
			Checked:     t.IsChecked(v),
			LastClicked: i == t.lastClicked,
		}
	}

	col, ok := t.sortedColumn()
	if !ok {
		return rows
	}
	slices.SortStableFunc(rows, func(a, b Row[T]) int {
		c := col.compare(a.Value, b.Value)
		if t.sortDir == Descending {
			return -c
		}
		return c
	})
	return rows
}

func (t *Table[T]) sortedColumn() (Column[T], bool) {
	if t.sortDir == Unsorted {
		return Column[T]{}, false
	}
	for _, c := range t.columns {
		if c.ID == t.sortColumn {
			return c, true
		}
	}
	return Column[T]{}, false
}

// ClickRow marks the row at display position i as last clicked and passes it
// to OnRowClick. Out-of-range positions are ignored.
func (t *Table[T]) ClickRow(i int) {
	rows := t.Rows()
	if i < 0 || i >= len(rows) {
		return
	}
	t.lastClicked = rows[i].Index
	if t.onRowClick != nil {
		t.onRowClick(rows[i].Value)
	}
}

// LastClicked returns the data index of the last clicked row, or -1.
func (t *Table[T]) LastClicked() int { return t.lastClicked }

// ToggleSort advances the sort of column id: unsorted, ascending, descending,
// unsorted. Sorting a different column starts it ascending. Columns that are
// not sortable are ignored.
func (t *Table[T]) ToggleSort(id string) {
	idx := slices.IndexFunc(t.columns, func(c Column[T]) bool { return c.ID == id })
	if idx < 0 || !t.columns[idx].Sortable {
		return
	}
	if t.sortColumn != id {
		t.sortColumn = id
		t.sortDir = Ascending
		return
	}
	t.sortDir = t.sortDir.next()
	if t.sortDir == Unsorted {
		t.sortColumn = ""
	}
}

// SortState returns the sorted column id and direction.
func (t *Table[T]) SortState() (string, SortDirection) {
	return t.sortColumn, t.sortDir
}

// SetScrollOffset sets how many columns after the first data column are
// scrolled out of view. It is clamped to the number of such columns.
func (t *Table[T]) SetScrollOffset(x int) {
	limit := max(len(t.columns)-1, 0)
	t.scrollX = min(max(x, 0), limit)
}

// ScrollOffset returns the horizontal scroll offset.
func (t *Table[T]) ScrollOffset() int { return t.scrollX }

// Separator reports the column after which the scroll separator is drawn and
// whether it is visible. The column index counts the checkbox column when
// selection is enabled.
func (t *Table[T]) Separator() (column int, visible bool) {
	if t.HasSelection() {
		column = 1
	}
	return column, t.scrollX > 0
}

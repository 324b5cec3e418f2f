package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"prview/internal/table"
)

// chromeLines is the number of lines around the table: title, help and
// a spare for notifications.
const chromeLines = 4

func keyMatches(msg tea.KeyMsg, b key.Binding) bool {
	return key.Matches(msg, b)
}

// TableView drives a table.Table from keyboard input.
type TableView[T any] struct {
	Table   *table.Table[T]
	theme   table.Theme
	keys    KeyMap
	spinner spinner.Model
	cursor  int
	offset  int
	focus   int
	width   int
	height  int
}

func NewTableView[T any](t *table.Table[T], theme table.Theme, keys KeyMap) TableView[T] {
	return TableView[T]{
		Table:   t,
		theme:   theme,
		keys:    keys,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (v TableView[T]) Init() tea.Cmd {
	return v.spinner.Tick
}

// Cursor is the highlighted display position.
func (v TableView[T]) Cursor() int { return v.cursor }

// Focus is the index of the column the sort key applies to.
func (v TableView[T]) Focus() int { return v.focus }

func (v TableView[T]) Update(msg tea.Msg) (TableView[T], tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width, v.height = msg.Width, msg.Height
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	case tea.KeyMsg:
		v.handleKey(msg)
	}
	v.clamp()
	return v, nil
}

func (v *TableView[T]) handleKey(msg tea.KeyMsg) {
	t := v.Table
	switch {
	case keyMatches(msg, v.keys.Up):
		v.cursor--
	case keyMatches(msg, v.keys.Down):
		v.cursor++
	case keyMatches(msg, v.keys.Left):
		t.SetScrollOffset(t.ScrollOffset() - 1)
	case keyMatches(msg, v.keys.Right):
		t.SetScrollOffset(t.ScrollOffset() + 1)
	case keyMatches(msg, v.keys.Toggle):
		if rows := t.Rows(); v.cursor < len(rows) {
			t.ToggleChecked(rows[v.cursor].Value)
		}
	case keyMatches(msg, v.keys.Open):
		t.ClickRow(v.cursor)
	case keyMatches(msg, v.keys.Focus):
		if n := len(t.Columns()); n > 0 {
			v.focus = (v.focus + 1) % n
		}
	case keyMatches(msg, v.keys.Sort):
		if cols := t.Columns(); v.focus < len(cols) {
			t.ToggleSort(cols[v.focus].ID)
		}
	}
}

func (v *TableView[T]) clamp() {
	n := v.Table.Len()
	v.cursor = min(max(v.cursor, 0), max(n-1, 0))

	visible := v.visibleRows()
	if visible <= 0 {
		v.offset = 0
		return
	}
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visible {
		v.offset = v.cursor - visible + 1
	}
}

func (v TableView[T]) visibleRows() int {
	if v.height == 0 {
		return 0
	}
	return max(v.height-chromeLines-1, 1)
}

func (v TableView[T]) View() string {
	out := table.Render(v.Table, table.RenderOptions{
		Width:   v.width,
		Cursor:  v.cursor,
		Theme:   v.theme,
		Spinner: v.spinner.View(),
	})

	visible := v.visibleRows()
	if visible == 0 || v.Table.Len() == 0 {
		return out
	}

	lines := strings.Split(out, "\n")
	head := 1
	if v.Table.IsBusy() {
		head = 2
	}
	body := lines[head:]
	end := min(v.offset+visible, len(body))
	return strings.Join(append(lines[:head:head], body[v.offset:end]...), "\n")
}

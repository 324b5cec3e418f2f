package table

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Lipgloss colors.
const (
	colorBorder     = "240"
	colorSelectedFg = "229"
	colorSelectedBg = "57"
	colorTitle      = "14"
	colorHelp       = "245"
	colorLastDark   = "236"
	colorLastLight  = "254"
)

// Theme styles a rendered table.
type Theme struct {
	Header      lipgloss.Style
	Cell        lipgloss.Style
	Cursor      lipgloss.Style
	LastClicked lipgloss.Style
	Separator   lipgloss.Style
	Busy        lipgloss.Style
	Empty       lipgloss.Style

	CheckedMark    string
	UncheckedMark  string
	SortAscending  string
	SortDescending string
	SeparatorRune  string
}

// NewTheme returns the theme for a dark or light terminal background.
func NewTheme(dark bool) Theme {
	last := colorLastLight
	if dark {
		last = colorLastDark
	}
	return Theme{
		Header:      lipgloss.NewStyle().Foreground(lipgloss.Color(colorTitle)).Bold(true),
		Cell:        lipgloss.NewStyle(),
		Cursor:      lipgloss.NewStyle().Foreground(lipgloss.Color(colorSelectedFg)).Background(lipgloss.Color(colorSelectedBg)),
		LastClicked: lipgloss.NewStyle().Background(lipgloss.Color(last)),
		Separator:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorBorder)),
		Busy:        lipgloss.NewStyle().Foreground(lipgloss.Color(colorHelp)),
		Empty:       lipgloss.NewStyle().Foreground(lipgloss.Color(colorHelp)).Italic(true),

		CheckedMark:    "[x]",
		UncheckedMark:  "[ ]",
		SortAscending:  "▲",
		SortDescending: "▼",
		SeparatorRune:  "│",
	}
}

// RenderOptions control one Render call.
type RenderOptions struct {
	// Width is the terminal width in cells; zero means unbounded.
	Width int
	// Cursor is the highlighted display position, or -1.
	Cursor  int
	Theme   Theme
	Spinner string
}

const (
	checkboxWidth = 3
	cellGap       = " "
)

var flatten = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

func fit(s string, w int) string {
	return runewidth.FillRight(runewidth.Truncate(flatten.Replace(s), w, "…"), w)
}

func (t *Table[T]) headerText(c Column[T], theme Theme) string {
	id, dir := t.SortState()
	if c.ID != id {
		return c.Header
	}
	switch dir {
	case Ascending:
		return c.Header + " " + theme.SortAscending
	case Descending:
		return c.Header + " " + theme.SortDescending
	}
	return c.Header
}

func (t *Table[T]) widths(rows []Row[T]) []int {
	out := make([]int, len(t.columns))
	for i, c := range t.columns {
		// Leave room for a sort indicator.
		w := runewidth.StringWidth(c.Header) + 2
		for _, r := range rows {
			w = max(w, runewidth.StringWidth(c.Value(r.Value)))
		}
		if c.MinWidth > 0 {
			w = max(w, c.MinWidth)
		}
		if c.MaxWidth > 0 {
			w = min(w, c.MaxWidth)
		}
		out[i] = w
	}
	return out
}

// visible returns the data column indexes in view: the first column always,
// then the scrollable ones after the scroll offset while they fit.
func (t *Table[T]) visible(widths []int, width int) []int {
	if len(t.columns) == 0 {
		return nil
	}
	used := widths[0] + 1
	if t.HasSelection() {
		used += checkboxWidth + 1
	}
	cols := []int{0}
	for i := 1 + t.scrollX; i < len(t.columns); i++ {
		if width > 0 && used+widths[i] > width {
			break
		}
		cols = append(cols, i)
		used += widths[i] + 1
	}
	return cols
}

func (t *Table[T]) line(cells []string, theme Theme) string {
	sepAt, sepVisible := t.Separator()
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			if i == sepAt+1 && sepVisible {
				b.WriteString(theme.Separator.Render(theme.SeparatorRune))
			} else {
				b.WriteString(cellGap)
			}
		}
		b.WriteString(cell)
	}
	return b.String()
}

// Render draws t as text for a terminal.
func Render[T any](t *Table[T], opts RenderOptions) string {
	theme := opts.Theme
	rows := t.Rows()
	widths := t.widths(rows)
	cols := t.visible(widths, opts.Width)

	var lines []string
	if t.IsBusy() {
		lines = append(lines, theme.Busy.Render(strings.TrimSpace(opts.Spinner+" Loading…")))
	}

	var header []string
	if t.HasSelection() {
		header = append(header, fit("", checkboxWidth))
	}
	for _, i := range cols {
		header = append(header, fit(t.headerText(t.columns[i], theme), widths[i]))
	}
	lines = append(lines, theme.Header.Render(t.line(header, theme)))

	if len(rows) == 0 {
		lines = append(lines, theme.Empty.Render("No entries"))
		return strings.Join(lines, "\n")
	}

	for pos, r := range rows {
		var cells []string
		if t.HasSelection() {
			mark := theme.UncheckedMark
			if r.Checked {
				mark = theme.CheckedMark
			}
			cells = append(cells, fit(mark, checkboxWidth))
		}
		for _, i := range cols {
			cells = append(cells, fit(t.columns[i].Value(r.Value), widths[i]))
		}

		style := theme.Cell
		switch {
		case pos == opts.Cursor:
			style = theme.Cursor
		case r.LastClicked:
			style = theme.LastClicked
		}
		lines = append(lines, style.Render(t.line(cells, theme)))
	}
	return strings.Join(lines, "\n")
}

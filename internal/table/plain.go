package table

import (
	"io"

	"github.com/cli/go-gh/pkg/tableprinter"
)

// WritePlain prints t through a go-gh table printer. Headers are printed only
// for terminals; otherwise rows are tab separated for scripting.
func WritePlain[T any](w io.Writer, t *Table[T], isTTY bool, maxWidth int) error {
	tp := tableprinter.New(w, isTTY, maxWidth)

	if isTTY {
		if t.HasSelection() {
			tp.AddField("")
		}
		for _, c := range t.columns {
			tp.AddField(c.Header)
		}
		tp.EndRow()
	}

	for _, r := range t.Rows() {
		if t.HasSelection() {
			mark := "[ ]"
			if r.Checked {
				mark = "[x]"
			}
			tp.AddField(mark)
		}
		for _, c := range t.columns {
			tp.AddField(c.Value(r.Value))
		}
		tp.EndRow()
	}

	return tp.Render()
}

package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"prview/internal/review"
)

// StderrNotifier prints notifications as coloured lines. Colour follows the
// capabilities of w.
type StderrNotifier struct {
	mu     sync.Mutex
	w      io.Writer
	styles map[review.Level]lipgloss.Style
}

func NewStderrNotifier(w io.Writer) *StderrNotifier {
	r := lipgloss.NewRenderer(w)
	return &StderrNotifier{
		w: w,
		styles: map[review.Level]lipgloss.Style{
			review.LevelSuccess: r.NewStyle().Foreground(lipgloss.Color("10")),
			review.LevelError:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			review.LevelInfo:    r.NewStyle().Foreground(lipgloss.Color("14")),
		},
	}
}

func (n *StderrNotifier) Notify(msg review.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	style, ok := n.styles[msg.Level]
	if !ok {
		style = n.styles[review.LevelInfo]
	}
	fmt.Fprintln(n.w, style.Render(msg.Message))
}

var _ review.Notifier = (*StderrNotifier)(nil)

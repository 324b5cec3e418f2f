package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"prview/internal/review"
)

const toastLifetime = 5 * time.Second

// ChannelNotifier hands notifications to a running program. Notify never
// blocks; notifications are dropped once the buffer is full.
type ChannelNotifier struct {
	ch chan review.Notification
}

func NewChannelNotifier(buffer int) *ChannelNotifier {
	return &ChannelNotifier{ch: make(chan review.Notification, buffer)}
}

func (n *ChannelNotifier) Notify(msg review.Notification) {
	select {
	case n.ch <- msg:
	default:
	}
}

// C is the receiving side.
func (n *ChannelNotifier) C() <-chan review.Notification { return n.ch }

var _ review.Notifier = (*ChannelNotifier)(nil)

type notificationMsg review.Notification

type toastExpiredMsg struct{ id int }

func waitForNotification(ch <-chan review.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg(n)
	}
}

type toast struct {
	id int
	n  review.Notification
}

// Toasts is the stack of visible notifications.
type Toasts struct {
	ch     <-chan review.Notification
	items  []toast
	nextID int
}

func NewToasts(ch <-chan review.Notification) Toasts {
	return Toasts{ch: ch}
}

func (t Toasts) Init() tea.Cmd {
	return waitForNotification(t.ch)
}

// Update consumes notification, expiry and dismiss messages.
func (t Toasts) Update(msg tea.Msg, keys KeyMap) (Toasts, tea.Cmd) {
	switch msg := msg.(type) {
	case notificationMsg:
		t.nextID++
		id := t.nextID
		t.items = append(t.items, toast{id: id, n: review.Notification(msg)})
		expire := tea.Tick(toastLifetime, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
		return t, tea.Batch(expire, waitForNotification(t.ch))
	case toastExpiredMsg:
		t.remove(msg.id)
	case tea.KeyMsg:
		if keyMatches(msg, keys.Dismiss) && len(t.items) > 0 {
			t.items = t.items[1:]
		}
	}
	return t, nil
}

func (t *Toasts) remove(id int) {
	for i, it := range t.items {
		if it.id == id {
			t.items = append(t.items[:i:i], t.items[i+1:]...)
			return
		}
	}
}

// Len is the number of visible toasts.
func (t Toasts) Len() int { return len(t.items) }

func (t Toasts) View() string {
	lines := make([]string, 0, len(t.items))
	for _, it := range t.items {
		lines = append(lines, NotificationStyle(it.n.Level).Render(it.n.Message))
	}
	return strings.Join(lines, "\n")
}

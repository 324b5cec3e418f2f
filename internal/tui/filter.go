package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"prview/internal/review"
	"prview/internal/table"
)

// SelectionService persists filter edits.
type SelectionService interface {
	SaveSelection(scope review.Scope, items []review.Resource) error
	InvalidateScope(scope review.Scope)
}

// LoadFunc fetches the rows of a view.
type LoadFunc[T any] func(ctx context.Context) []T

type loadedMsg[T any] struct {
	items []T
}

func load[T any](ctx context.Context, fn LoadFunc[T]) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg[T]{items: fn(ctx)}
	}
}

func frame(title, body string, toasts Toasts, help string) string {
	parts := []string{titleStyle.Render(title), body}
	if toasts.Len() > 0 {
		parts = append(parts, toasts.View())
	}
	parts = append(parts, help)
	return strings.Join(parts, "\n")
}

// FilterOptions configure a FilterModel.
type FilterOptions struct {
	Title         string
	Scope         review.Scope
	Columns       []table.Column[review.Resource]
	Load          LoadFunc[review.Resource]
	Service       SelectionService
	Notifications <-chan review.Notification
	Theme         table.Theme
	Keys          KeyMap
}

// FilterModel is the selection panel of one filter scope. Every edit is
// written through the service; closing the panel invalidates the scope.
type FilterModel struct {
	ctx     context.Context
	opts    FilterOptions
	table   *table.Table[review.Resource]
	view    TableView[review.Resource]
	toasts  Toasts
	closing bool
}

func NewFilterModel(ctx context.Context, opts FilterOptions) *FilterModel {
	m := &FilterModel{ctx: ctx, opts: opts, toasts: NewToasts(opts.Notifications)}
	m.table = table.MustNew(table.Config[review.Resource]{
		Columns:              opts.Columns,
		IdentifierKey:        ResourceKey,
		CheckedItems:         []review.Resource{},
		OnCheckedItemsChange: m.onCheckedItemsChange,
		OnRowClick:           func(r review.Resource) { m.table.ToggleChecked(r) },
		IsBusy:               true,
	})
	m.view = NewTableView(m.table, opts.Theme, opts.Keys)
	return m
}

// Table exposes the underlying table.
func (m *FilterModel) Table() *table.Table[review.Resource] { return m.table }

func (m *FilterModel) onCheckedItemsChange(checked []review.Resource) {
	if err := m.opts.Service.SaveSelection(m.opts.Scope, checked); err != nil {
		return
	}
	m.table.SetCheckedItems(checked)
}

func (m *FilterModel) Init() tea.Cmd {
	return tea.Batch(m.view.Init(), m.toasts.Init(), load(m.ctx, m.opts.Load))
}

func (m *FilterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case loadedMsg[review.Resource]:
		items := review.SortByQualifiedName(msg.items)
		m.table.SetData(items)
		m.table.SetCheckedItems(review.Active(items))
		m.table.SetBusy(false)
		return m, nil
	case tea.KeyMsg:
		switch {
		case keyMatches(msg, m.opts.Keys.Quit):
			m.close()
			return m, tea.Quit
		case keyMatches(msg, m.opts.Keys.Refresh):
			m.opts.Service.InvalidateScope(m.opts.Scope)
			m.table.SetBusy(true)
			cmds = append(cmds, load(m.ctx, m.opts.Load))
		}
	}

	var cmd tea.Cmd
	m.toasts, cmd = m.toasts.Update(msg, m.opts.Keys)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *FilterModel) close() {
	if m.closing {
		return
	}
	m.closing = true
	m.opts.Service.InvalidateScope(m.opts.Scope)
}

func (m *FilterModel) View() string {
	k := m.opts.Keys
	return frame(m.opts.Title, m.view.View(), m.toasts,
		helpLine(k.Up, k.Down, k.Toggle, k.Sort, k.Focus, k.Refresh, k.Quit))
}

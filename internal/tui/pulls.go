package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"prview/internal/review"
	"prview/internal/table"
)

// PullRequestService feeds the pull request view.
type PullRequestService interface {
	PullRequests(ctx context.Context) []review.PullRequest
	Refresh()
}

// OpenFunc opens a URL, usually in a browser.
type OpenFunc func(url string) error

// PullsOptions configure a PullsModel.
type PullsOptions struct {
	Service       PullRequestService
	Open          OpenFunc
	Notifier      review.Notifier
	Notifications <-chan review.Notification
	Theme         table.Theme
	Keys          KeyMap
}

// PullsModel lists the open pull requests of the active repositories.
type PullsModel struct {
	ctx    context.Context
	opts   PullsOptions
	table  *table.Table[review.PullRequest]
	view   TableView[review.PullRequest]
	toasts Toasts
}

func NewPullsModel(ctx context.Context, opts PullsOptions) *PullsModel {
	if opts.Notifier == nil {
		opts.Notifier = review.NopNotifier{}
	}
	m := &PullsModel{ctx: ctx, opts: opts, toasts: NewToasts(opts.Notifications)}
	m.table = table.MustNew(table.Config[review.PullRequest]{
		Columns:    PullRequestColumns(),
		OnRowClick: m.open,
		IsBusy:     true,
	})
	m.view = NewTableView(m.table, opts.Theme, opts.Keys)
	return m
}

// Table exposes the underlying table.
func (m *PullsModel) Table() *table.Table[review.PullRequest] { return m.table }

func (m *PullsModel) open(pr review.PullRequest) {
	url := pr.WebURL()
	if url == "" || m.opts.Open == nil {
		m.opts.Notifier.Notify(review.Notification{Level: review.LevelError, Message: "Could not open the pull request"})
		return
	}
	if err := m.opts.Open(url); err != nil {
		m.opts.Notifier.Notify(review.Notification{Level: review.LevelError, Message: "Could not open the pull request"})
	}
}

func (m *PullsModel) fetch() tea.Cmd {
	return load[review.PullRequest](m.ctx, m.opts.Service.PullRequests)
}

func (m *PullsModel) Init() tea.Cmd {
	return tea.Batch(m.view.Init(), m.toasts.Init(), m.fetch())
}

func (m *PullsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case loadedMsg[review.PullRequest]:
		m.table.SetData(msg.items)
		m.table.SetBusy(false)
		return m, nil
	case tea.KeyMsg:
		switch {
		case keyMatches(msg, m.opts.Keys.Quit):
			return m, tea.Quit
		case keyMatches(msg, m.opts.Keys.Refresh):
			m.opts.Service.Refresh()
			m.table.SetBusy(true)
			cmds = append(cmds, m.fetch())
		}
	}

	var cmd tea.Cmd
	m.toasts, cmd = m.toasts.Update(msg, m.opts.Keys)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *PullsModel) View() string {
	k := m.opts.Keys
	return frame("Open pull requests", m.view.View(), m.toasts,
		helpLine(k.Up, k.Down, k.Left, k.Right, k.Open, k.Sort, k.Focus, k.Refresh, k.Quit))
}

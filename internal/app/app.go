package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cli/go-gh/pkg/browser"

	"prview/internal/config"
	"prview/internal/database"
	"prview/internal/review"
	"prview/internal/rpc"
	"prview/internal/table"
	"prview/internal/tui"
)

// Options adjust how NewPRViewApp wires the application.
type Options struct {
	// TUI keeps logs off the terminal.
	TUI bool
	// Offline skips connecting to the command host; Service is nil.
	Offline bool
	// Notifier receives user-facing notifications. Defaults to a
	// StderrNotifier.
	Notifier review.Notifier
	// Stderr defaults to os.Stderr.
	Stderr *os.File
}

// PRViewApp is the application layer between the CLI and ReviewService.
// It constructs all dependencies from config and releases them on Close.
type PRViewApp struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	client  *rpc.Client
	service *review.ReviewService
	logger  *slog.Logger
	logFile io.Closer
	browser browser.Browser
}

// NewPRViewApp creates a fully wired PRViewApp from the given config.
// The caller must call Close when done.
func NewPRViewApp(ctx context.Context, cfg *config.Config, opts Options) (*PRViewApp, error) {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Notifier == nil {
		opts.Notifier = NewStderrNotifier(opts.Stderr)
	}

	ids := review.UUIDGenerator{}
	logger, logFile, err := newLogger(cfg.Log, ids.New(), opts.TUI, opts.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	db, err := database.NewDatabaseFromConfig(cfg.Database, review.RealClock{})
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	a := &PRViewApp{
		cfg:     cfg,
		db:      db,
		logger:  logger,
		logFile: logFile,
		browser: browser.New(cfg.Browser.Launcher, io.Discard, opts.Stderr),
	}
	if opts.Offline {
		return a, nil
	}

	client, err := rpc.Dial(ctx, cfg.Remote.Endpoint, ids, adapter)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connecting to command host: %w", err)
	}
	a.client = client

	commands := rpc.NewCommands(client, cfg.Remote.Timeout.Duration)
	a.service = review.NewReviewService(commands, db, opts.Notifier, adapter, review.RealClock{}, review.StaleTimes{
		Organizations: cfg.Cache.Organizations.Duration,
		Projects:      cfg.Cache.Projects.Duration,
		Repositories:  cfg.Cache.Repositories.Duration,
		PullRequests:  cfg.Cache.PullRequests.Duration,
	})
	return a, nil
}

// Service is nil for offline apps.
func (a *PRViewApp) Service() *review.ReviewService { return a.service }

// Store is the selection store.
func (a *PRViewApp) Store() *database.SQLiteDatabase { return a.db }

func (a *PRViewApp) Config() *config.Config { return a.cfg }

// Theme resolves the configured table theme. It may query the terminal.
func (a *PRViewApp) Theme() table.Theme { return tui.ResolveTheme(a.cfg.UI.Theme) }

// Open shows url in the configured browser.
func (a *PRViewApp) Open(url string) error {
	a.logger.Info("opening pull request", "url", url)
	if err := a.browser.Browse(url); err != nil {
		a.logger.Error("opening browser failed", "url", url, "error", err)
		return fmt.Errorf("opening browser: %w", err)
	}
	return nil
}

// Close releases the connection, the database and the log file.
func (a *PRViewApp) Close() error {
	var firstErr error

	if a.client != nil {
		if err := a.client.Close(); err != nil {
			firstErr = fmt.Errorf("closing connection: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

package review

import "context"

// Commands is the remote command boundary. Implementations are opaque
// request/response calls; every method may block and fail.
type Commands interface {
	GetOrganizations(ctx context.Context) ([]Resource, error)
	GetProjects(ctx context.Context) ([]Resource, error)
	GetRepositories(ctx context.Context) ([]Resource, error)

	AddOrganization(ctx context.Context, name, credential string) error
	RemoveOrganization(ctx context.Context, id string) error
	RemoveRepository(ctx context.Context, id string) error
	UpdateCredential(ctx context.Context, id, credential string) error
	ToggleRepositoryActive(ctx context.Context, id string) error

	GetOpenPullRequests(ctx context.Context) ([]PullRequest, error)
	GetOpenPullRequestsBatched(ctx context.Context, requests []RepositoryBatchRequest) ([]PullRequest, error)
}

// SelectionStore persists one ordered id list per scope.
//
// LoadSelection reports ok=false when the scope was never written, and ok=true
// with an empty slice when it was explicitly emptied. SaveSelection replaces
// the stored list atomically; the last write wins.
type SelectionStore interface {
	LoadSelection(scope Scope) (ids []string, ok bool, err error)
	SaveSelection(scope Scope, ids []string) error
}

// Level classifies a Notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a transient, user-dismissible message.
type Notification struct {
	Level   Level
	Message string
}

// Notifier delivers notifications to whatever surface is showing them.
type Notifier interface {
	Notify(n Notification)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(Notification) {}

// Remote command names.
const (
	CommandGetOrganizations           = "get-organizations"
	CommandGetProjects                = "get-projects"
	CommandGetRepositories            = "get-repositories"
	CommandAddOrganization            = "add-organization"
	CommandRemoveOrganization         = "remove-organization"
	CommandRemoveRepository           = "remove-repository"
	CommandUpdateCredential           = "update-credential"
	CommandToggleRepositoryActive     = "toggle-repository-active"
	CommandGetOpenPullRequests        = "get-open-pull-requests"
	CommandGetOpenPullRequestsBatched = "get-open-pull-requests-batched"
)

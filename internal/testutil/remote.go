package testutil

import (
	"context"
	"slices"
	"sync"

	"prview/internal/review"
)

// Call records one invocation of a FakeCommands method.
type Call struct {
	Command string
	Args    []any
}

// FakeCommands is an in-memory remote side. Mutations change its state the
// way the real host would. Safe for concurrent use.
type FakeCommands struct {
	mu            sync.Mutex
	organizations []review.Resource
	projects      []review.Resource
	repositories  []review.Resource
	pullRequests  []review.PullRequest
	failures      map[string]error
	hooks         map[string]func()
	calls         []Call
}

// NewFakeCommands creates a remote side holding the given collections.
func NewFakeCommands(orgs, projects, repos []review.Resource, prs []review.PullRequest) *FakeCommands {
	return &FakeCommands{
		organizations: slices.Clone(orgs),
		projects:      slices.Clone(projects),
		repositories:  slices.Clone(repos),
		pullRequests:  slices.Clone(prs),
		failures:      make(map[string]error),
		hooks:         make(map[string]func()),
	}
}

// FailWith makes command return err until cleared with a nil err.
func (f *FakeCommands) FailWith(command string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, command)
		return
	}
	f.failures[command] = err
}

// OnCall runs hook, outside the lock, every time command is invoked.
func (f *FakeCommands) OnCall(command string, hook func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[command] = hook
}

// Calls returns the recorded invocations of command.
func (f *FakeCommands) Calls(command string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Command == command {
			out = append(out, c)
		}
	}
	return out
}

// Repositories returns the current repository state.
func (f *FakeCommands) Repositories() []review.Resource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.repositories)
}

// Organizations returns the current organization state.
func (f *FakeCommands) Organizations() []review.Resource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.organizations)
}

func (f *FakeCommands) record(command string, args ...any) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Command: command, Args: args})
	hook := f.hooks[command]
	err := f.failures[command]
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (f *FakeCommands) GetOrganizations(ctx context.Context) ([]review.Resource, error) {
	if err := f.record(review.CommandGetOrganizations); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.organizations), nil
}

func (f *FakeCommands) GetProjects(ctx context.Context) ([]review.Resource, error) {
	if err := f.record(review.CommandGetProjects); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.projects), nil
}

func (f *FakeCommands) GetRepositories(ctx context.Context) ([]review.Resource, error) {
	if err := f.record(review.CommandGetRepositories); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.repositories), nil
}

func (f *FakeCommands) AddOrganization(ctx context.Context, name, credential string) error {
	if err := f.record(review.CommandAddOrganization, name, credential); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.organizations = append(f.organizations, review.Resource{
		ID:              "org-" + name,
		Name:            name,
		Credential:      credential,
		CredentialValid: true,
	})
	return nil
}

func (f *FakeCommands) RemoveOrganization(ctx context.Context, id string) error {
	if err := f.record(review.CommandRemoveOrganization, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var name string
	f.organizations = slices.DeleteFunc(f.organizations, func(r review.Resource) bool {
		if r.ID == id {
			name = r.Name
			return true
		}
		return false
	})
	belongs := func(r review.Resource) bool { return name != "" && r.Organization() == name }
	f.projects = slices.DeleteFunc(f.projects, belongs)
	f.repositories = slices.DeleteFunc(f.repositories, belongs)
	return nil
}

func (f *FakeCommands) RemoveRepository(ctx context.Context, id string) error {
	if err := f.record(review.CommandRemoveRepository, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repositories = slices.DeleteFunc(f.repositories, func(r review.Resource) bool { return r.ID == id })
	return nil
}

func (f *FakeCommands) UpdateCredential(ctx context.Context, id, credential string) error {
	if err := f.record(review.CommandUpdateCredential, id, credential); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.organizations {
		if f.organizations[i].ID == id {
			f.organizations[i].Credential = credential
			f.organizations[i].CredentialValid = true
		}
	}
	return nil
}

func (f *FakeCommands) ToggleRepositoryActive(ctx context.Context, id string) error {
	if err := f.record(review.CommandToggleRepositoryActive, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.repositories {
		if f.repositories[i].ID == id {
			f.repositories[i].Enabled = !f.repositories[i].Enabled
		}
	}
	return nil
}

func (f *FakeCommands) GetOpenPullRequests(ctx context.Context) ([]review.PullRequest, error) {
	if err := f.record(review.CommandGetOpenPullRequests); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.pullRequests), nil
}

// GetOpenPullRequestsBatched returns the pull requests whose organization and
// repository appear in one of the requests.
func (f *FakeCommands) GetOpenPullRequestsBatched(ctx context.Context, requests []review.RepositoryBatchRequest) ([]review.PullRequest, error) {
	if err := f.record(review.CommandGetOpenPullRequestsBatched, requests); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []review.PullRequest
	for _, pr := range f.pullRequests {
		for _, req := range requests {
			if req.Organization.Name == pr.OrganizationName && slices.Contains(req.Repositories, pr.Repository) {
				out = append(out, pr)
				break
			}
		}
	}
	return out, nil
}

var _ review.Commands = (*FakeCommands)(nil)

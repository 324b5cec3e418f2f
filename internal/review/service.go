package review

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"prview/internal/cache"
)

// Cache keys of the remote collections.
const (
	KeyOrganizations = "user-organizations"
	KeyProjects      = "devops-projects"
	KeyRepositories  = "devops-repositories"
	keyPullRequests  = "pull-requests"
)

// StaleTimes is how long each collection is served before revalidating.
type StaleTimes struct {
	Organizations time.Duration
	Projects      time.Duration
	Repositories  time.Duration
	PullRequests  time.Duration
}

// ReviewService fetches remote collections through a cache, merges the
// persisted selection into them and runs mutations against the remote side.
//
// Read operations never return errors: failures are logged, reported through
// the Notifier and yield an empty collection.
type ReviewService struct {
	commands Commands
	store    SelectionStore
	notifier Notifier
	logger   Logger
	stale    StaleTimes

	resources    *cache.Cache[Resource]
	pullRequests *cache.Cache[PullRequest]

	repoBatch    *BatchMemo[RepositoryBatchRequest]
	projectBatch *BatchMemo[ProjectBatchRequest]
}

// NewReviewService wires a ReviewService.
func NewReviewService(commands Commands, store SelectionStore, notifier Notifier, logger Logger, clock Clock, stale StaleTimes) *ReviewService {
	return &ReviewService{
		commands:     commands,
		store:        store,
		notifier:     notifier,
		logger:       logger,
		stale:        stale,
		resources:    cache.New[Resource](clock),
		pullRequests: cache.New[PullRequest](clock),
		repoBatch:    NewBatchMemo(BuildRepositoryBatch),
		projectBatch: NewBatchMemo(BuildProjectBatch),
	}
}

func (s *ReviewService) fetchResources(ctx context.Context, key string, fetch cache.Fetcher[Resource], staleTime time.Duration, failure string) []Resource {
	items, err := s.resources.Fetch(ctx, key, fetch, staleTime)
	if err != nil {
		s.logger.Error("fetching collection failed", "key", key, "error", err)
		s.notifier.Notify(Notification{Level: LevelError, Message: failure})
		return []Resource{}
	}
	return items
}

func (s *ReviewService) hydrate(scope Scope, items []Resource) []Resource {
	ids, ok, err := s.store.LoadSelection(scope)
	if err != nil {
		// An unreadable selection is treated as never written.
		s.logger.Warn("loading selection failed", "scope", scope, "error", err)
		ok = false
	}
	return Hydrate(items, ids, ok)
}

// Organizations returns the imported organizations.
func (s *ReviewService) Organizations(ctx context.Context) []Resource {
	return s.fetchResources(ctx, KeyOrganizations, s.commands.GetOrganizations, s.stale.Organizations,
		"Could not retrieve organizations")
}

// Projects returns the projects with IsActive taken from the persisted selection.
func (s *ReviewService) Projects(ctx context.Context) []Resource {
	items := s.fetchResources(ctx, KeyProjects, s.commands.GetProjects, s.stale.Projects,
		"Could not retrieve projects")
	return s.hydrate(ScopeProjects, items)
}

// Repositories returns the repositories with IsActive taken from the persisted selection.
func (s *ReviewService) Repositories(ctx context.Context) []Resource {
	items := s.fetchResources(ctx, KeyRepositories, s.commands.GetRepositories, s.stale.Repositories,
		"Could not retrieve repositories")
	return s.hydrate(ScopeRepositories, items)
}

// RepositoryBatch fetches organizations and repositories concurrently and
// derives the per-organization pull request request list from them.
func (s *ReviewService) RepositoryBatch(ctx context.Context) []RepositoryBatchRequest {
	var (
		wg    sync.WaitGroup
		orgs  []Resource
		repos []Resource
	)
	wg.Go(func() { orgs = s.Organizations(ctx) })
	wg.Go(func() { repos = s.Repositories(ctx) })
	wg.Wait()
	return s.repoBatch.Get(orgs, repos)
}

// ProjectBatch is the project-scoped variant of RepositoryBatch.
func (s *ReviewService) ProjectBatch(ctx context.Context) []ProjectBatchRequest {
	var (
		wg       sync.WaitGroup
		orgs     []Resource
		projects []Resource
	)
	wg.Go(func() { orgs = s.Organizations(ctx) })
	wg.Go(func() { projects = s.Projects(ctx) })
	wg.Wait()
	return s.projectBatch.Get(orgs, projects)
}

// PullRequests returns the open pull requests of the selected repositories,
// oldest first. No remote call is made when there is no organization.
func (s *ReviewService) PullRequests(ctx context.Context) []PullRequest {
	batch := s.RepositoryBatch(ctx)
	if len(batch) == 0 {
		return []PullRequest{}
	}

	key, err := pullRequestKey(batch)
	if err != nil {
		s.logger.Error("building pull request cache key failed", "error", err)
		return []PullRequest{}
	}

	prs, err := s.pullRequests.Fetch(ctx, key, func(ctx context.Context) ([]PullRequest, error) {
		return s.commands.GetOpenPullRequestsBatched(ctx, batch)
	}, s.stale.PullRequests)
	if err != nil {
		s.logger.Error("fetching pull requests failed", "organizations", len(batch), "error", err)
		s.notifier.Notify(Notification{Level: LevelError, Message: "Could not retrieve pull requests"})
		return []PullRequest{}
	}
	return SortByCreation(prs)
}

// AllPullRequests returns every open pull request the remote side knows,
// ignoring the selection.
func (s *ReviewService) AllPullRequests(ctx context.Context) []PullRequest {
	prs, err := s.pullRequests.Fetch(ctx, keyPullRequests, s.commands.GetOpenPullRequests, s.stale.PullRequests)
	if err != nil {
		s.logger.Error("fetching pull requests failed", "error", err)
		s.notifier.Notify(Notification{Level: LevelError, Message: "Could not retrieve pull requests"})
		return []PullRequest{}
	}
	return SortByCreation(prs)
}

func pullRequestKey(batch []RepositoryBatchRequest) (string, error) {
	raw, err := json.Marshal(batch)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return keyPullRequests + ":" + hex.EncodeToString(sum[:8]), nil
}

// SaveSelection persists the ids of items under scope, de-duplicated in order.
func (s *ReviewService) SaveSelection(scope Scope, items []Resource) error {
	ids := UniqueIDs(items)
	if err := s.store.SaveSelection(scope, ids); err != nil {
		s.logger.Error("saving selection failed", "scope", scope, "error", err)
		s.notifier.Notify(Notification{Level: LevelError, Message: "Could not save the selection"})
		return fmt.Errorf("saving selection: %w", err)
	}
	s.logger.Debug("selection saved", "scope", scope, "count", len(ids))
	return nil
}

// InvalidateScope drops the cached collection a selection scope filters,
// along with the pull requests derived from it.
func (s *ReviewService) InvalidateScope(scope Scope) {
	switch scope {
	case ScopeProjects:
		s.resources.Invalidate(KeyProjects)
	case ScopeRepositories:
		s.resources.Invalidate(KeyRepositories)
	}
	s.pullRequests.InvalidateAll()
}

// Refresh drops every cached collection.
func (s *ReviewService) Refresh() {
	s.resources.InvalidateAll()
	s.pullRequests.InvalidateAll()
}

type mutation struct {
	name    string
	success string
	failure string
	run     func(ctx context.Context) error
}

// mutate runs m, reports the outcome and invalidates every collection once
// the call has settled, whatever its result.
func (s *ReviewService) mutate(ctx context.Context, m mutation, args ...any) error {
	defer s.Refresh()

	if err := m.run(ctx); err != nil {
		s.logger.Error(m.name+" failed", append(args, "error", err)...)
		s.notifier.Notify(Notification{Level: LevelError, Message: m.failure})
		return fmt.Errorf("%s: %w", m.name, err)
	}
	s.logger.Info(m.name+" succeeded", args...)
	s.notifier.Notify(Notification{Level: LevelSuccess, Message: m.success})
	return nil
}

// AddOrganization imports an organization with its access credential.
func (s *ReviewService) AddOrganization(ctx context.Context, name, credential string) error {
	return s.mutate(ctx, mutation{
		name:    "add organization",
		success: "Added DevOps organization",
		failure: "Error while adding the DevOps organization",
		run: func(ctx context.Context) error {
			return s.commands.AddOrganization(ctx, name, credential)
		},
	}, "organization", name)
}

// RemoveOrganization removes an organization and everything imported from it.
func (s *ReviewService) RemoveOrganization(ctx context.Context, id string) error {
	return s.mutate(ctx, mutation{
		name:    "remove organization",
		success: "Organization was removed",
		failure: "Organization could not be removed",
		run: func(ctx context.Context) error {
			return s.commands.RemoveOrganization(ctx, id)
		},
	}, "id", id)
}

// UpdateCredential replaces an organization's access credential.
func (s *ReviewService) UpdateCredential(ctx context.Context, id, credential string) error {
	return s.mutate(ctx, mutation{
		name:    "update credential",
		success: "Updated the Personal Access Token",
		failure: "Could not update the Personal Access Token",
		run: func(ctx context.Context) error {
			return s.commands.UpdateCredential(ctx, id, credential)
		},
	}, "id", id)
}

// RemoveRepository removes an imported repository.
func (s *ReviewService) RemoveRepository(ctx context.Context, id string) error {
	return s.mutate(ctx, mutation{
		name:    "remove repository",
		success: "Repository was removed",
		failure: "Repository could not be removed",
		run: func(ctx context.Context) error {
			return s.commands.RemoveRepository(ctx, id)
		},
	}, "id", id)
}

// ToggleRepositoryActive flips the server-side Enabled flag of a repository.
// The client-side selection is not touched.
func (s *ReviewService) ToggleRepositoryActive(ctx context.Context, id string) error {
	return s.mutate(ctx, mutation{
		name:    "toggle repository",
		success: "Repository state was changed",
		failure: "Repository state could not be changed",
		run: func(ctx context.Context) error {
			return s.commands.ToggleRepositoryActive(ctx, id)
		},
	}, "id", id)
}

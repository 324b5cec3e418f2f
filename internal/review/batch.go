package review

import (
	"slices"
	"sync"
)

// RepositoryRef identifies a repository within its project.
type RepositoryRef struct {
	Project string `json:"project"`
	Name    string `json:"name"`
}

// RepositoryBatchRequest asks for the open pull requests of the listed
// repositories of one organization. An empty Repositories list yields no
// pull requests for that organization.
type RepositoryBatchRequest struct {
	Organization Resource        `json:"organization"`
	Repositories []RepositoryRef `json:"repositories"`
}

// ProjectBatchRequest is the project-scoped variant of RepositoryBatchRequest.
type ProjectBatchRequest struct {
	Organization Resource `json:"organization"`
	ProjectNames []string `json:"projectNames"`
}

// BuildRepositoryBatch derives one request per organization, in organization
// order, listing the active repositories of that organization in input order.
// The organizations' own IsActive flag is not consulted.
func BuildRepositoryBatch(orgs, repos []Resource) []RepositoryBatchRequest {
	return buildBatch(orgs, repos, func(org Resource, selected []Resource) RepositoryBatchRequest {
		refs := make([]RepositoryRef, 0, len(selected))
		for _, r := range selected {
			refs = append(refs, RepositoryRef{Project: r.ParentName, Name: r.Name})
		}
		return RepositoryBatchRequest{Organization: org, Repositories: refs}
	})
}

// BuildProjectBatch derives one request per organization listing the names of
// its active projects.
func BuildProjectBatch(orgs, projects []Resource) []ProjectBatchRequest {
	return buildBatch(orgs, projects, func(org Resource, selected []Resource) ProjectBatchRequest {
		names := make([]string, 0, len(selected))
		for _, p := range selected {
			names = append(names, p.Name)
		}
		return ProjectBatchRequest{Organization: org, ProjectNames: names}
	})
}

func buildBatch[R any](orgs, subs []Resource, makeRequest func(Resource, []Resource) R) []R {
	out := make([]R, 0, len(orgs))
	for _, org := range orgs {
		var selected []Resource
		for _, sub := range subs {
			if sub.IsActive && sub.Organization() == org.Name {
				selected = append(selected, sub)
			}
		}
		out = append(out, makeRequest(org, selected))
	}
	return out
}

// BatchMemo caches the output of a batch builder and recomputes it only when
// either input differs element-wise from the previous call.
type BatchMemo[R any] struct {
	mu       sync.Mutex
	build    func(orgs, subs []Resource) []R
	orgs     []Resource
	subs     []Resource
	result   []R
	computed bool
}

// NewBatchMemo wraps build, e.g. BuildRepositoryBatch.
func NewBatchMemo[R any](build func(orgs, subs []Resource) []R) *BatchMemo[R] {
	return &BatchMemo[R]{build: build}
}

// Get returns the memoized batch for the given inputs.
func (m *BatchMemo[R]) Get(orgs, subs []Resource) []R {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.computed && slices.Equal(m.orgs, orgs) && slices.Equal(m.subs, subs) {
		return m.result
	}
	m.orgs = slices.Clone(orgs)
	m.subs = slices.Clone(subs)
	m.result = m.build(orgs, subs)
	m.computed = true
	return m.result
}

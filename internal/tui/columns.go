package tui

import (
	"fmt"
	"strings"

	"prview/internal/review"
	"prview/internal/table"
)

// ResourceKey identifies resources by id.
func ResourceKey(r review.Resource) string { return r.ID }

func enabledMark(r review.Resource) string {
	if r.Enabled {
		return "yes"
	}
	return "no"
}

// ProjectColumns are the columns of the project filter panel.
func ProjectColumns() []table.Column[review.Resource] {
	return []table.Column[review.Resource]{
		{ID: "name", Header: "Project", Accessor: func(r review.Resource) string { return r.Name }, Sortable: true, MaxWidth: 40},
		{ID: "organization", Header: "Organization", Accessor: review.Resource.Organization, Sortable: true, MaxWidth: 30},
	}
}

// RepositoryColumns are the columns of the repository filter panel.
func RepositoryColumns() []table.Column[review.Resource] {
	return []table.Column[review.Resource]{
		{ID: "name", Header: "Repository", Accessor: func(r review.Resource) string { return r.Name }, Sortable: true, MaxWidth: 40},
		{ID: "project", Header: "Project", Accessor: func(r review.Resource) string { return r.ParentName }, Sortable: true, MaxWidth: 30},
		{ID: "organization", Header: "Organization", Accessor: review.Resource.Organization, Sortable: true, MaxWidth: 30},
		{ID: "enabled", Header: "Enabled", Accessor: enabledMark},
	}
}

// OrganizationColumns list imported organizations.
func OrganizationColumns() []table.Column[review.Resource] {
	return []table.Column[review.Resource]{
		{ID: "name", Header: "Organization", Accessor: func(r review.Resource) string { return r.Name }, Sortable: true},
		{ID: "id", Header: "ID", Accessor: func(r review.Resource) string { return r.ID }},
		{ID: "credential", Header: "Token", Accessor: func(r review.Resource) string {
			if r.CredentialValid {
				return "valid"
			}
			return "invalid"
		}},
	}
}

func openSince(pr review.PullRequest) string {
	if pr.CreationDate.IsZero() {
		return ""
	}
	return pr.CreationDate.Local().Format("02.01.2006")
}

func fixedComments(pr review.PullRequest) string {
	resolved, total := pr.CommentStats()
	return fmt.Sprintf("%d / %d", resolved, total)
}

func title(pr review.PullRequest) string {
	if pr.IsDraft {
		return "[draft] " + pr.Title
	}
	return pr.Title
}

// PullRequestColumns are the columns of the pull request list.
func PullRequestColumns() []table.Column[review.PullRequest] {
	return []table.Column[review.PullRequest]{
		{ID: "project", Header: "Project", Accessor: func(pr review.PullRequest) string { return pr.Repository.Project }, Sortable: true, MaxWidth: 24},
		{ID: "repository", Header: "Repository", Accessor: func(pr review.PullRequest) string { return pr.Repository.Name }, Sortable: true, MaxWidth: 24},
		{ID: "title", Header: "Title", Accessor: title, Sortable: true, MinWidth: 20, MaxWidth: 60},
		{ID: "merge", Header: "Merge Status", Accessor: func(pr review.PullRequest) string { return pr.MergeStatus }},
		{ID: "status", Header: "Status", Accessor: func(pr review.PullRequest) string { return pr.Status }},
		{ID: "creator", Header: "Creator", Accessor: func(pr review.PullRequest) string { return pr.CreatedBy.DisplayName }, Sortable: true, MaxWidth: 24},
		{
			ID:       "created",
			Header:   "Open since",
			Accessor: openSince,
			Compare: func(a, b review.PullRequest) int {
				return a.CreationDate.Compare(b.CreationDate)
			},
			Sortable: true,
		},
		{ID: "comments", Header: "Fixed comments", Accessor: fixedComments},
		{ID: "reviewers", Header: "Reviewers", Accessor: review.PullRequest.ReviewerNames, MaxWidth: 40},
		{ID: "labels", Header: "Tags", Accessor: func(pr review.PullRequest) string {
			return strings.ToLower(pr.LabelNames())
		}, MaxWidth: 30},
	}
}

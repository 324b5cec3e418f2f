package review

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Identity is a user as shown on a pull request.
type Identity struct {
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName,omitempty"`
}

// Reviewer is an identity with its vote.
type Reviewer struct {
	Identity
	Vote       int  `json:"vote"`
	IsRequired bool `json:"isRequired,omitempty"`
}

// Label is a pull request tag.
type Label struct {
	Name string `json:"name"`
}

// Comment is a single entry of a comment thread.
type Comment struct {
	Content     string `json:"content"`
	CommentType string `json:"commentType"`
}

// CommentThread is a discussion on a pull request.
type CommentThread struct {
	ID       int       `json:"id"`
	Status   string    `json:"status"`
	Comments []Comment `json:"comments"`
}

// PullRequest is an open pull request returned by the remote side.
type PullRequest struct {
	ID               int             `json:"pullRequestId"`
	Title            string          `json:"title"`
	Status           string          `json:"status"`
	MergeStatus      string          `json:"mergeStatus"`
	IsDraft          bool            `json:"isDraft"`
	CreatedBy        Identity        `json:"createdBy"`
	CreationDate     time.Time       `json:"creationDate"`
	Repository       RepositoryRef   `json:"repository"`
	OrganizationName string          `json:"organizationName"`
	Reviewers        []Reviewer      `json:"reviewers"`
	Labels           []Label         `json:"labels"`
	Threads          []CommentThread `json:"commentThreads"`
}

var resolvedThreadStatuses = []string{"closed", "fixed", "wontFix", "byDesign"}

func (t CommentThread) hasTextComment() bool {
	return slices.ContainsFunc(t.Comments, func(c Comment) bool {
		return c.CommentType == "text"
	})
}

// CommentStats counts threads holding at least one text comment, and how many
// of those are resolved.
func (pr PullRequest) CommentStats() (resolved, total int) {
	for _, t := range pr.Threads {
		if !t.hasTextComment() {
			continue
		}
		total++
		if slices.Contains(resolvedThreadStatuses, t.Status) {
			resolved++
		}
	}
	return resolved, total
}

// WebURL is the browser address of the pull request, or "" when the request
// lacks the parts needed to build it.
func (pr PullRequest) WebURL() string {
	if pr.OrganizationName == "" || pr.Repository.Project == "" || pr.Repository.Name == "" || pr.ID == 0 {
		return ""
	}
	return fmt.Sprintf("https://dev.azure.com/%s/%s/_git/%s/pullrequest/%d",
		url.PathEscape(pr.OrganizationName),
		url.PathEscape(pr.Repository.Project),
		url.PathEscape(pr.Repository.Name),
		pr.ID)
}

// ReviewerNames joins the reviewers' display names.
func (pr PullRequest) ReviewerNames() string {
	names := make([]string, 0, len(pr.Reviewers))
	for _, r := range pr.Reviewers {
		names = append(names, r.DisplayName)
	}
	return strings.Join(names, ", ")
}

// LabelNames joins the label names.
func (pr PullRequest) LabelNames() string {
	names := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		names = append(names, l.Name)
	}
	return strings.Join(names, ", ")
}

// SortByCreation returns a copy of prs ordered oldest first.
func SortByCreation(prs []PullRequest) []PullRequest {
	out := slices.Clone(prs)
	slices.SortStableFunc(out, func(a, b PullRequest) int {
		return a.CreationDate.Compare(b.CreationDate)
	})
	return out
}

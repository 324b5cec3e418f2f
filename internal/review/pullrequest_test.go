package review_test

import (
	"testing"
	"time"

	"prview/internal/review"
	"prview/internal/testutil"
)

func thread(status string, types ...string) review.CommentThread {
	t := review.CommentThread{Status: status}
	for _, ct := range types {
		t.Comments = append(t.Comments, review.Comment{CommentType: ct, Content: "c"})
	}
	return t
}

func TestPullRequest_CommentStats(t *testing.T) {
	pr := review.PullRequest{Threads: []review.CommentThread{
		thread("active", "text"),
		thread("fixed", "text", "system"),
		thread("closed", "system"),
		thread("wontFix", "text"),
		thread("pending", "codeChange"),
		thread("byDesign", "text"),
	}}

	resolved, total := pr.CommentStats()
	if resolved != 3 || total != 4 {
		t.Errorf("CommentStats() = %d, %d; want 3, 4", resolved, total)
	}
}

func TestPullRequest_WebURL(t *testing.T) {
	pr := review.PullRequest{
		ID:               42,
		OrganizationName: "contoso",
		Repository:       review.RepositoryRef{Project: "Big Project", Name: "api"},
	}

	want := "https://dev.azure.com/contoso/Big%20Project/_git/api/pullrequest/42"
	if got := pr.WebURL(); got != want {
		t.Errorf("WebURL() = %q, want %q", got, want)
	}

	pr.OrganizationName = ""
	if got := pr.WebURL(); got != "" {
		t.Errorf("WebURL() without organization = %q, want empty", got)
	}
}

func TestPullRequest_Names(t *testing.T) {
	pr := review.PullRequest{
		Reviewers: []review.Reviewer{
			{Identity: review.Identity{DisplayName: "Ada"}},
			{Identity: review.Identity{DisplayName: "Linus"}, Vote: 10},
		},
		Labels: []review.Label{{Name: "bug"}, {Name: "urgent"}},
	}

	if got := pr.ReviewerNames(); got != "Ada, Linus" {
		t.Errorf("ReviewerNames() = %q", got)
	}
	if got := pr.LabelNames(); got != "bug, urgent" {
		t.Errorf("LabelNames() = %q", got)
	}
}

func TestSortByCreation(t *testing.T) {
	base := testutil.FixedClock().Now()
	prs := []review.PullRequest{
		{ID: 1, CreationDate: base.Add(2 * time.Hour)},
		{ID: 2, CreationDate: base},
		{ID: 3, CreationDate: base.Add(time.Hour)},
	}

	got := review.SortByCreation(prs)

	for i, want := range []int{2, 3, 1} {
		if got[i].ID != want {
			t.Fatalf("SortByCreation() order = %v, want [2 3 1]", []int{got[0].ID, got[1].ID, got[2].ID})
		}
	}
	if prs[0].ID != 1 {
		t.Error("SortByCreation() reordered its input")
	}
}

package review_test

import (
	"reflect"
	"testing"

	"prview/internal/review"
	"prview/internal/testutil"
)

func active(r review.Resource) review.Resource {
	r.IsActive = true
	return r
}

func TestBuildRepositoryBatch(t *testing.T) {
	contoso := testutil.Org("o1", "contoso")
	fabrikam := testutil.Org("o2", "fabrikam")

	t.Run("groups active repositories per organization in input order", func(t *testing.T) {
		repos := []review.Resource{
			active(testutil.Repo("r1", "web", "Platform", "contoso")),
			testutil.Repo("r2", "legacy", "Platform", "contoso"),
			active(testutil.Repo("r3", "docs", "Docs", "fabrikam")),
			active(testutil.Repo("r4", "api", "Platform", "contoso")),
		}

		got := review.BuildRepositoryBatch([]review.Resource{contoso, fabrikam}, repos)

		want := []review.RepositoryBatchRequest{
			{Organization: contoso, Repositories: []review.RepositoryRef{
				{Project: "Platform", Name: "web"},
				{Project: "Platform", Name: "api"},
			}},
			{Organization: fabrikam, Repositories: []review.RepositoryRef{
				{Project: "Docs", Name: "docs"},
			}},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("BuildRepositoryBatch() = %+v\nwant %+v", got, want)
		}
	})

	t.Run("organization without active repositories keeps an empty list", func(t *testing.T) {
		repos := []review.Resource{testutil.Repo("r1", "web", "Platform", "contoso")}

		got := review.BuildRepositoryBatch([]review.Resource{contoso}, repos)

		if len(got) != 1 {
			t.Fatalf("BuildRepositoryBatch() returned %d requests, want 1", len(got))
		}
		if len(got[0].Repositories) != 0 {
			t.Errorf("Repositories = %v, want empty", got[0].Repositories)
		}
	})

	t.Run("no organizations yields no requests", func(t *testing.T) {
		repos := []review.Resource{active(testutil.Repo("r1", "web", "Platform", "contoso"))}
		if got := review.BuildRepositoryBatch(nil, repos); len(got) != 0 {
			t.Errorf("BuildRepositoryBatch() = %v, want empty", got)
		}
	})

	t.Run("organization selection flag is ignored", func(t *testing.T) {
		org := contoso
		org.IsActive = false
		repos := []review.Resource{active(testutil.Repo("r1", "web", "Platform", "contoso"))}

		got := review.BuildRepositoryBatch([]review.Resource{org}, repos)
		if len(got) != 1 || len(got[0].Repositories) != 1 {
			t.Errorf("BuildRepositoryBatch() = %+v, want one request with one repository", got)
		}
	})

	t.Run("repositories of unknown organizations are dropped", func(t *testing.T) {
		repos := []review.Resource{active(testutil.Repo("r1", "web", "Platform", "northwind"))}

		got := review.BuildRepositoryBatch([]review.Resource{contoso}, repos)
		if len(got[0].Repositories) != 0 {
			t.Errorf("Repositories = %v, want empty", got[0].Repositories)
		}
	})
}

func TestBuildProjectBatch(t *testing.T) {
	contoso := testutil.Org("o1", "contoso")
	projects := []review.Resource{
		active(testutil.Project("p1", "Platform", "contoso")),
		testutil.Project("p2", "Archive", "contoso"),
		active(testutil.Project("p3", "Docs", "contoso")),
	}

	got := review.BuildProjectBatch([]review.Resource{contoso}, projects)

	want := []review.ProjectBatchRequest{{Organization: contoso, ProjectNames: []string{"Platform", "Docs"}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildProjectBatch() = %+v, want %+v", got, want)
	}
}

func TestBatchMemo(t *testing.T) {
	calls := 0
	memo := review.NewBatchMemo(func(orgs, subs []review.Resource) []review.RepositoryBatchRequest {
		calls++
		return review.BuildRepositoryBatch(orgs, subs)
	})

	orgs := []review.Resource{testutil.Org("o1", "contoso")}
	repos := []review.Resource{active(testutil.Repo("r1", "web", "Platform", "contoso"))}

	first := memo.Get(orgs, repos)
	second := memo.Get(append([]review.Resource(nil), orgs...), append([]review.Resource(nil), repos...))
	if calls != 1 {
		t.Errorf("builder called %d times for structurally equal inputs, want 1", calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("memoized result changed: %+v vs %+v", first, second)
	}

	changed := []review.Resource{repos[0]}
	changed[0].IsActive = false
	third := memo.Get(orgs, changed)
	if calls != 2 {
		t.Errorf("builder called %d times after input change, want 2", calls)
	}
	if len(third[0].Repositories) != 0 {
		t.Errorf("recomputed batch = %+v, want no repositories", third)
	}
}

package review_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"prview/internal/review"
	"prview/internal/testutil"
)

type serviceFixture struct {
	svc      *review.ReviewService
	remote   *testutil.FakeCommands
	notifier *testutil.RecordingNotifier
	store    review.SelectionStore
	clock    *testutil.StubClock
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	orgs := []review.Resource{testutil.Org("o1", "contoso"), testutil.Org("o2", "fabrikam")}
	projects := []review.Resource{
		testutil.Project("p1", "Platform", "contoso"),
		testutil.Project("p2", "Docs", "fabrikam"),
	}
	repos := []review.Resource{
		testutil.Repo("r1", "api", "Platform", "contoso"),
		testutil.Repo("r2", "web", "Platform", "contoso"),
		testutil.Repo("r3", "handbook", "Docs", "fabrikam"),
	}
	base := testutil.FixedClock().Now()
	prs := []review.PullRequest{
		{ID: 11, Title: "newer", OrganizationName: "contoso", Repository: review.RepositoryRef{Project: "Platform", Name: "api"}, CreationDate: base},
		{ID: 12, Title: "older", OrganizationName: "contoso", Repository: review.RepositoryRef{Project: "Platform", Name: "web"}, CreationDate: base.Add(-time.Hour)},
		{ID: 13, Title: "docs", OrganizationName: "fabrikam", Repository: review.RepositoryRef{Project: "Docs", Name: "handbook"}, CreationDate: base},
	}

	f := &serviceFixture{
		remote:   testutil.NewFakeCommands(orgs, projects, repos, prs),
		notifier: testutil.NewRecordingNotifier(),
		store:    testutil.NewTestDatabase(t),
		clock:    testutil.FixedClock(),
	}
	f.svc = review.NewReviewService(f.remote, f.store, f.notifier, review.NewNopLogger(), f.clock, review.StaleTimes{
		Organizations: time.Hour,
		Projects:      100 * time.Second,
		Repositories:  100 * time.Second,
		PullRequests:  time.Hour,
	})
	return f
}

func prIDs(prs []review.PullRequest) []int {
	ids := make([]int, 0, len(prs))
	for _, pr := range prs {
		ids = append(ids, pr.ID)
	}
	return ids
}

func TestReviewService_RepositoriesHydrated(t *testing.T) {
	t.Run("all active without a stored selection", func(t *testing.T) {
		f := newServiceFixture(t)

		got := f.svc.Repositories(context.Background())
		if ids := activeIDs(got); !slices.Equal(ids, []string{"r1", "r2", "r3"}) {
			t.Errorf("active = %v, want all", ids)
		}
	})

	t.Run("stored selection is applied on every read", func(t *testing.T) {
		f := newServiceFixture(t)
		ctx := context.Background()

		f.svc.Repositories(ctx)
		if err := f.store.SaveSelection(review.ScopeRepositories, []string{"r2"}); err != nil {
			t.Fatalf("SaveSelection() error = %v", err)
		}

		got := f.svc.Repositories(ctx)
		if ids := activeIDs(got); !slices.Equal(ids, []string{"r2"}) {
			t.Errorf("active = %v, want [r2]", ids)
		}
		if n := len(f.remote.Calls(review.CommandGetRepositories)); n != 1 {
			t.Errorf("remote called %d times, want 1 (fresh cache)", n)
		}
	})
}

func TestReviewService_FetchFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.remote.FailWith(review.CommandGetProjects, errors.New("connection refused"))

	got := f.svc.Projects(context.Background())

	if len(got) != 0 {
		t.Errorf("Projects() = %v, want empty", got)
	}
	want := []review.Notification{{Level: review.LevelError, Message: "Could not retrieve projects"}}
	if n := f.notifier.Notifications(); !slices.Equal(n, want) {
		t.Errorf("notifications = %v, want %v", n, want)
	}

	f.remote.FailWith(review.CommandGetProjects, nil)
	if got := f.svc.Projects(context.Background()); len(got) != 2 {
		t.Errorf("Projects() after recovery returned %d items, want 2", len(got))
	}
}

func TestReviewService_PullRequests(t *testing.T) {
	t.Run("uses the selection and orders by creation", func(t *testing.T) {
		f := newServiceFixture(t)
		if err := f.store.SaveSelection(review.ScopeRepositories, []string{"r1", "r2"}); err != nil {
			t.Fatalf("SaveSelection() error = %v", err)
		}

		got := f.svc.PullRequests(context.Background())

		if ids := prIDs(got); !slices.Equal(ids, []int{12, 11}) {
			t.Errorf("PullRequests() = %v, want [12 11]", ids)
		}
		calls := f.remote.Calls(review.CommandGetOpenPullRequestsBatched)
		if len(calls) != 1 {
			t.Fatalf("batched calls = %d, want 1", len(calls))
		}
		batch := calls[0].Args[0].([]review.RepositoryBatchRequest)
		if len(batch) != 2 || len(batch[1].Repositories) != 0 {
			t.Errorf("batch = %+v, want fabrikam with an empty repository list", batch)
		}
	})

	t.Run("skips the remote call without organizations", func(t *testing.T) {
		f := newServiceFixture(t)
		for _, org := range f.remote.Organizations() {
			if err := f.remote.RemoveOrganization(context.Background(), org.ID); err != nil {
				t.Fatalf("RemoveOrganization() error = %v", err)
			}
		}

		if got := f.svc.PullRequests(context.Background()); len(got) != 0 {
			t.Errorf("PullRequests() = %v, want empty", got)
		}
		if n := len(f.remote.Calls(review.CommandGetOpenPullRequestsBatched)); n != 0 {
			t.Errorf("batched calls = %d, want 0", n)
		}
	})

	t.Run("selection change produces a new request", func(t *testing.T) {
		f := newServiceFixture(t)
		ctx := context.Background()

		f.svc.PullRequests(ctx)
		if err := f.svc.SaveSelection(review.ScopeRepositories, []review.Resource{{ID: "r3"}}); err != nil {
			t.Fatalf("SaveSelection() error = %v", err)
		}
		got := f.svc.PullRequests(ctx)

		if ids := prIDs(got); !slices.Equal(ids, []int{13}) {
			t.Errorf("PullRequests() = %v, want [13]", ids)
		}
		if n := len(f.remote.Calls(review.CommandGetOpenPullRequestsBatched)); n != 2 {
			t.Errorf("batched calls = %d, want 2", n)
		}
	})

	t.Run("failure notifies and yields empty", func(t *testing.T) {
		f := newServiceFixture(t)
		f.remote.FailWith(review.CommandGetOpenPullRequestsBatched, errors.New("timeout"))

		if got := f.svc.PullRequests(context.Background()); len(got) != 0 {
			t.Errorf("PullRequests() = %v, want empty", got)
		}
		n := f.notifier.Notifications()
		if len(n) != 1 || n[0].Message != "Could not retrieve pull requests" {
			t.Errorf("notifications = %v", n)
		}
	})
}

func TestReviewService_AllPullRequests(t *testing.T) {
	f := newServiceFixture(t)
	if err := f.store.SaveSelection(review.ScopeRepositories, nil); err != nil {
		t.Fatalf("SaveSelection() error = %v", err)
	}

	if got := f.svc.AllPullRequests(context.Background()); len(got) != 3 {
		t.Errorf("AllPullRequests() returned %d, want 3", len(got))
	}
}

func TestReviewService_SaveSelection(t *testing.T) {
	f := newServiceFixture(t)
	items := []review.Resource{{ID: "p2"}, {ID: "p1"}, {ID: "p2"}}

	if err := f.svc.SaveSelection(review.ScopeProjects, items); err != nil {
		t.Fatalf("SaveSelection() error = %v", err)
	}

	ids, ok, err := f.store.LoadSelection(review.ScopeProjects)
	if err != nil || !ok {
		t.Fatalf("LoadSelection() = %v, %v, %v", ids, ok, err)
	}
	if !slices.Equal(ids, []string{"p2", "p1"}) {
		t.Errorf("stored ids = %v, want [p2 p1]", ids)
	}
}

func TestReviewService_ProjectBatch(t *testing.T) {
	f := newServiceFixture(t)
	if err := f.store.SaveSelection(review.ScopeProjects, []string{"p2"}); err != nil {
		t.Fatalf("SaveSelection() error = %v", err)
	}

	got := f.svc.ProjectBatch(context.Background())

	if len(got) != 2 {
		t.Fatalf("ProjectBatch() returned %d requests, want 2", len(got))
	}
	if len(got[0].ProjectNames) != 0 || !slices.Equal(got[1].ProjectNames, []string{"Docs"}) {
		t.Errorf("ProjectBatch() = %+v", got)
	}
}

func TestReviewService_InvalidateScope(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.svc.Projects(ctx)
	f.svc.InvalidateScope(review.ScopeProjects)
	f.svc.Projects(ctx)

	if n := len(f.remote.Calls(review.CommandGetProjects)); n != 2 {
		t.Errorf("GetProjects calls = %d, want 2", n)
	}
}

func TestReviewService_Mutations(t *testing.T) {
	tests := []struct {
		name    string
		command string
		run     func(ctx context.Context, s *review.ReviewService) error
		success string
		failure string
	}{
		{
			name:    "add organization",
			command: review.CommandAddOrganization,
			run: func(ctx context.Context, s *review.ReviewService) error {
				return s.AddOrganization(ctx, "northwind", "secret")
			},
			success: "Added DevOps organization",
			failure: "Error while adding the DevOps organization",
		},
		{
			name:    "remove organization",
			command: review.CommandRemoveOrganization,
			run: func(ctx context.Context, s *review.ReviewService) error {
				return s.RemoveOrganization(ctx, "o1")
			},
			success: "Organization was removed",
			failure: "Organization could not be removed",
		},
		{
			name:    "update credential",
			command: review.CommandUpdateCredential,
			run: func(ctx context.Context, s *review.ReviewService) error {
				return s.UpdateCredential(ctx, "o1", "rotated")
			},
			success: "Updated the Personal Access Token",
			failure: "Could not update the Personal Access Token",
		},
		{
			name:    "remove repository",
			command: review.CommandRemoveRepository,
			run: func(ctx context.Context, s *review.ReviewService) error {
				return s.RemoveRepository(ctx, "r1")
			},
			success: "Repository was removed",
			failure: "Repository could not be removed",
		},
		{
			name:    "toggle repository",
			command: review.CommandToggleRepositoryActive,
			run: func(ctx context.Context, s *review.ReviewService) error {
				return s.ToggleRepositoryActive(ctx, "r1")
			},
			success: "Repository state was changed",
			failure: "Repository state could not be changed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" success", func(t *testing.T) {
			f := newServiceFixture(t)
			ctx := context.Background()
			f.svc.Organizations(ctx)

			if err := tt.run(ctx, f.svc); err != nil {
				t.Fatalf("mutation error = %v", err)
			}

			want := []review.Notification{{Level: review.LevelSuccess, Message: tt.success}}
			if n := f.notifier.Notifications(); !slices.Equal(n, want) {
				t.Errorf("notifications = %v, want %v", n, want)
			}

			f.svc.Organizations(ctx)
			if n := len(f.remote.Calls(review.CommandGetOrganizations)); n != 2 {
				t.Errorf("organizations fetched %d times, want 2 (cache invalidated)", n)
			}
		})

		t.Run(tt.name+" failure", func(t *testing.T) {
			f := newServiceFixture(t)
			ctx := context.Background()
			f.svc.Organizations(ctx)
			f.remote.FailWith(tt.command, errors.New("rejected"))

			if err := tt.run(ctx, f.svc); err == nil {
				t.Fatal("mutation expected error")
			}

			want := []review.Notification{{Level: review.LevelError, Message: tt.failure}}
			if n := f.notifier.Notifications(); !slices.Equal(n, want) {
				t.Errorf("notifications = %v, want %v", n, want)
			}

			f.svc.Organizations(ctx)
			if n := len(f.remote.Calls(review.CommandGetOrganizations)); n != 2 {
				t.Errorf("organizations fetched %d times, want 2 (invalidated on failure too)", n)
			}
		})
	}
}

func TestReviewService_ToggleKeepsClientSelection(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	if err := f.store.SaveSelection(review.ScopeRepositories, []string{"r1"}); err != nil {
		t.Fatalf("SaveSelection() error = %v", err)
	}

	if err := f.svc.ToggleRepositoryActive(ctx, "r1"); err != nil {
		t.Fatalf("ToggleRepositoryActive() error = %v", err)
	}

	repos := f.svc.Repositories(ctx)
	if !repos[0].IsActive || repos[0].Enabled {
		t.Errorf("r1 = %+v, want client-selected and server-disabled", repos[0])
	}
}

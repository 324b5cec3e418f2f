package rpc_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"prview/internal/review"
	"prview/internal/rpc"
	"prview/internal/testutil"
)

var upgrader = websocket.Upgrader{}

// startHost runs serve for each websocket connection and returns a ws:// URL.
func startHost(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// answerEach replies to every request with handle's result.
func answerEach(handle func(req rpc.Request) rpc.Response) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		for {
			var req rpc.Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			resp := handle(req)
			resp.ID = req.ID
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}
}

func dial(t *testing.T, url string) *rpc.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := rpc.Dial(ctx, url, testutil.NewStubIDGenerator("req"), review.NewNopLogger())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return raw
}

func TestCommands_RoundTrip(t *testing.T) {
	orgs := []review.Resource{testutil.Org("o1", "contoso")}
	var (
		mu       sync.Mutex
		received []rpc.Request
		rawArgs  []json.RawMessage
	)

	url := startHost(t, func(conn *websocket.Conn) {
		for {
			var raw struct {
				rpc.Request
				Args json.RawMessage `json:"args"`
			}
			if err := conn.ReadJSON(&raw); err != nil {
				return
			}
			mu.Lock()
			received = append(received, raw.Request)
			rawArgs = append(rawArgs, raw.Args)
			mu.Unlock()

			resp := rpc.Response{ID: raw.ID}
			if raw.Command == review.CommandGetOrganizations {
				resp.Result = mustJSON(t, orgs)
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	})

	cmds := rpc.NewCommands(dial(t, url), time.Second)
	ctx := context.Background()

	got, err := cmds.GetOrganizations(ctx)
	if err != nil {
		t.Fatalf("GetOrganizations() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "contoso" || got[0].Credential != "pat-contoso" {
		t.Errorf("GetOrganizations() = %+v", got)
	}

	if err := cmds.AddOrganization(ctx, "northwind", "secret"); err != nil {
		t.Fatalf("AddOrganization() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("host received %d requests, want 2", len(received))
	}
	if received[0].ID != "req-1" || received[1].ID != "req-2" {
		t.Errorf("request ids = %q, %q", received[0].ID, received[1].ID)
	}
	if received[1].Command != review.CommandAddOrganization {
		t.Errorf("command = %q, want %q", received[1].Command, review.CommandAddOrganization)
	}
	var args map[string]string
	if err := json.Unmarshal(rawArgs[1], &args); err != nil {
		t.Fatalf("decoding args: %v", err)
	}
	if args["name"] != "northwind" || args["credential"] != "secret" {
		t.Errorf("args = %v", args)
	}
}

func TestCommands_BatchedPullRequests(t *testing.T) {
	var gotArgs struct {
		Requests []review.RepositoryBatchRequest `json:"requests"`
	}
	prs := []review.PullRequest{{ID: 7, Title: "Fix login", OrganizationName: "contoso"}}

	url := startHost(t, func(conn *websocket.Conn) {
		var raw struct {
			ID   string          `json:"id"`
			Args json.RawMessage `json:"args"`
		}
		if err := conn.ReadJSON(&raw); err != nil {
			return
		}
		if err := json.Unmarshal(raw.Args, &gotArgs); err != nil {
			t.Errorf("decoding args: %v", err)
		}
		conn.WriteJSON(rpc.Response{ID: raw.ID, Result: mustJSON(t, prs)})
		conn.ReadMessage()
	})

	cmds := rpc.NewCommands(dial(t, url), time.Second)
	batch := []review.RepositoryBatchRequest{{
		Organization: testutil.Org("o1", "contoso"),
		Repositories: []review.RepositoryRef{{Project: "Platform", Name: "api"}},
	}}

	got, err := cmds.GetOpenPullRequestsBatched(context.Background(), batch)
	if err != nil {
		t.Fatalf("GetOpenPullRequestsBatched() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != 7 {
		t.Errorf("GetOpenPullRequestsBatched() = %+v", got)
	}
	if len(gotArgs.Requests) != 1 || gotArgs.Requests[0].Repositories[0].Name != "api" {
		t.Errorf("host received %+v", gotArgs.Requests)
	}
}

func TestClient_RemoteError(t *testing.T) {
	url := startHost(t, answerEach(func(req rpc.Request) rpc.Response {
		return rpc.Response{Error: "organization not found"}
	}))

	err := dial(t, url).Invoke(context.Background(), review.CommandRemoveOrganization, nil, nil)

	var remote *rpc.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Invoke() error = %v, want *RemoteError", err)
	}
	if remote.Command != review.CommandRemoveOrganization || remote.Message != "organization not found" {
		t.Errorf("RemoteError = %+v", remote)
	}
}

func TestClient_ResponsesOutOfOrder(t *testing.T) {
	url := startHost(t, func(conn *websocket.Conn) {
		var first, second rpc.Request
		if conn.ReadJSON(&first) != nil || conn.ReadJSON(&second) != nil {
			return
		}
		conn.WriteJSON(rpc.Response{ID: second.ID, Result: json.RawMessage(`"` + second.Command + `"`)})
		conn.WriteJSON(rpc.Response{ID: first.ID, Result: json.RawMessage(`"` + first.Command + `"`)})
		conn.ReadMessage()
	})
	c := dial(t, url)

	var wg sync.WaitGroup
	for _, command := range []string{"alpha", "beta"} {
		wg.Go(func() {
			var got string
			if err := c.Invoke(context.Background(), command, nil, &got); err != nil {
				t.Errorf("Invoke(%s) error = %v", command, err)
				return
			}
			if got != command {
				t.Errorf("Invoke(%s) = %q", command, got)
			}
		})
	}
	wg.Wait()
}

func TestClient_ContextTimeout(t *testing.T) {
	url := startHost(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	c := dial(t, url)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Invoke(ctx, "hang", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Invoke() error = %v, want deadline exceeded", err)
	}
}

func TestClient_HostDisconnect(t *testing.T) {
	url := startHost(t, func(conn *websocket.Conn) {
		var req rpc.Request
		conn.ReadJSON(&req)
	})
	c := dial(t, url)

	err := c.Invoke(context.Background(), "anything", nil, nil)
	if !errors.Is(err, rpc.ErrClosed) {
		t.Fatalf("Invoke() error = %v, want ErrClosed", err)
	}

	if err := c.Invoke(context.Background(), "again", nil, nil); !errors.Is(err, rpc.ErrClosed) {
		t.Errorf("Invoke() after disconnect error = %v, want ErrClosed", err)
	}
}

func TestClient_Close(t *testing.T) {
	url := startHost(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	c := dial(t, url)

	errc := make(chan error, 1)
	go func() { errc <- c.Invoke(context.Background(), "hang", nil, nil) }()

	time.Sleep(20 * time.Millisecond)
	c.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, rpc.ErrClosed) {
			t.Errorf("pending Invoke() error = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending Invoke() did not return after Close")
	}
}

package rpc

import (
	"context"
	"time"

	"prview/internal/review"
)

// Invoker sends one command and decodes its result.
type Invoker interface {
	Invoke(ctx context.Context, command string, args any, result any) error
}

// Commands implements review.Commands on top of an Invoker.
type Commands struct {
	invoker Invoker
	timeout time.Duration
}

// NewCommands wraps inv. A positive timeout bounds every call.
func NewCommands(inv Invoker, timeout time.Duration) *Commands {
	return &Commands{invoker: inv, timeout: timeout}
}

type idArgs struct {
	ID string `json:"id"`
}

type organizationArgs struct {
	Name       string `json:"name"`
	Credential string `json:"credential"`
}

type credentialArgs struct {
	ID         string `json:"id"`
	Credential string `json:"credential"`
}

type batchArgs struct {
	Requests []review.RepositoryBatchRequest `json:"requests"`
}

func (c *Commands) call(ctx context.Context, command string, args any, result any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.invoker.Invoke(ctx, command, args, result)
}

func (c *Commands) list(ctx context.Context, command string) ([]review.Resource, error) {
	var out []review.Resource
	if err := c.call(ctx, command, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Commands) GetOrganizations(ctx context.Context) ([]review.Resource, error) {
	return c.list(ctx, review.CommandGetOrganizations)
}

func (c *Commands) GetProjects(ctx context.Context) ([]review.Resource, error) {
	return c.list(ctx, review.CommandGetProjects)
}

func (c *Commands) GetRepositories(ctx context.Context) ([]review.Resource, error) {
	return c.list(ctx, review.CommandGetRepositories)
}

func (c *Commands) AddOrganization(ctx context.Context, name, credential string) error {
	return c.call(ctx, review.CommandAddOrganization, organizationArgs{Name: name, Credential: credential}, nil)
}

func (c *Commands) RemoveOrganization(ctx context.Context, id string) error {
	return c.call(ctx, review.CommandRemoveOrganization, idArgs{ID: id}, nil)
}

func (c *Commands) RemoveRepository(ctx context.Context, id string) error {
	return c.call(ctx, review.CommandRemoveRepository, idArgs{ID: id}, nil)
}

func (c *Commands) UpdateCredential(ctx context.Context, id, credential string) error {
	return c.call(ctx, review.CommandUpdateCredential, credentialArgs{ID: id, Credential: credential}, nil)
}

func (c *Commands) ToggleRepositoryActive(ctx context.Context, id string) error {
	return c.call(ctx, review.CommandToggleRepositoryActive, idArgs{ID: id}, nil)
}

func (c *Commands) GetOpenPullRequests(ctx context.Context) ([]review.PullRequest, error) {
	var out []review.PullRequest
	if err := c.call(ctx, review.CommandGetOpenPullRequests, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Commands) GetOpenPullRequestsBatched(ctx context.Context, requests []review.RepositoryBatchRequest) ([]review.PullRequest, error) {
	var out []review.PullRequest
	if err := c.call(ctx, review.CommandGetOpenPullRequestsBatched, batchArgs{Requests: requests}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ review.Commands = (*Commands)(nil)

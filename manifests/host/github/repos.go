package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/manifest_pr/manifests/host"
)

// CurrentUser implements host.Accessor.
func (a *Accessor) CurrentUser(ctx context.Context) (string, error) {
	const errCtx = "reading current user"

	u, _, err := a.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, classify(err))
	}

	return u.GetLogin(), nil
}

// GetRepository implements host.Accessor.
func (a *Accessor) GetRepository(
	ctx context.Context,
	owner string,
	name string,
) (*host.Repository, error) {
	const errCtx = "reading repository"

	r, _, err := a.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s/%s: %w", errCtx, owner, name, classify(err),
		)
	}

	return toRepository(r), nil
}

// CreateFork implements host.Accessor. GitHub creates
// forks asynchronously and answers 202 Accepted; that is
// reported as success.
func (a *Accessor) CreateFork(
	ctx context.Context,
	upstream host.Repository,
) (*host.Repository, error) {
	const errCtx = "creating fork"

	fork, _, err := a.client.Repositories.CreateFork(
		ctx, upstream.Owner, upstream.Name,
		&gh.RepositoryCreateForkOptions{},
	)

	var accepted *gh.AcceptedError

	switch {
	case errors.As(err, &accepted):
		slog.Info(
			"fork creation accepted",
			"upstream", upstream.FullName(),
			"fork", fork.GetFullName(),
		)
	case err != nil:
		return nil, fmt.Errorf(
			"%s of %s: %w",
			errCtx, upstream.FullName(), classify(err),
		)
	}

	out := toRepository(fork)
	if out == nil {
		return nil, fmt.Errorf(
			"%s of %s: empty response", errCtx, upstream.FullName(),
		)
	}

	if out.Parent == nil {
		parent := upstream
		out.Parent = &parent
	}

	return out, nil
}

// DeleteRepository implements host.Accessor.
func (a *Accessor) DeleteRepository(
	ctx context.Context,
	repo host.Repository,
) error {
	const errCtx = "deleting repository"

	_, err := a.client.Repositories.Delete(ctx, repo.Owner, repo.Name)
	if err != nil {
		return fmt.Errorf(
			"%s %s: %w", errCtx, repo.FullName(), classify(err),
		)
	}

	return nil
}

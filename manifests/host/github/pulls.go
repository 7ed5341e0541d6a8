package github

import (
	"context"
	"fmt"
	"log/slog"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/manifest_pr/manifests/host"
)

// CreatePullRequest implements host.Accessor.
func (a *Accessor) CreatePullRequest(
	ctx context.Context,
	repo host.Repository,
	pr host.NewPullRequest,
) (*host.PullRequest, error) {
	const errCtx = "creating github pull request"

	created, _, err := a.client.PullRequests.Create(
		ctx, repo.Owner, repo.Name, &gh.NewPullRequest{
			Title: gh.Ptr(pr.Title),
			Head:  gh.Ptr(pr.Head),
			Base:  gh.Ptr(pr.Base),
			Body:  gh.Ptr(pr.Body),
		},
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s into %s:%s: %w",
			errCtx, pr.Head, repo.FullName(), pr.Base, classify(err),
		)
	}

	slog.Info(
		"created pull request",
		"url", created.GetHTMLURL(),
	)

	return toPullRequest(created), nil
}

// GetPullRequest implements host.Accessor.
func (a *Accessor) GetPullRequest(
	ctx context.Context,
	repo host.Repository,
	number int,
) (*host.PullRequest, error) {
	const errCtx = "reading pull request"

	pr, _, err := a.client.PullRequests.Get(
		ctx, repo.Owner, repo.Name, number,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s#%d: %w",
			errCtx, repo.FullName(), number, classify(err),
		)
	}

	return toPullRequest(pr), nil
}

// ClosePullRequest implements host.Accessor.
func (a *Accessor) ClosePullRequest(
	ctx context.Context,
	repo host.Repository,
	number int,
) error {
	const errCtx = "closing pull request"

	_, _, err := a.client.PullRequests.Edit(
		ctx, repo.Owner, repo.Name, number,
		&gh.PullRequest{State: gh.Ptr("closed")},
	)
	if err != nil {
		return fmt.Errorf(
			"%s %s#%d: %w",
			errCtx, repo.FullName(), number, classify(err),
		)
	}

	return nil
}

// MergePullRequest implements host.Accessor with a squash
// merge.
func (a *Accessor) MergePullRequest(
	ctx context.Context,
	repo host.Repository,
	number int,
	message string,
) error {
	const errCtx = "merging pull request"

	res, _, err := a.client.PullRequests.Merge(
		ctx, repo.Owner, repo.Name, number, message,
		&gh.PullRequestOptions{MergeMethod: "squash"},
	)
	if err != nil {
		return fmt.Errorf(
			"%s %s#%d: %w",
			errCtx, repo.FullName(), number, classify(err),
		)
	}

	if !res.GetMerged() {
		return fmt.Errorf(
			"%s %s#%d: %s",
			errCtx, repo.FullName(), number, res.GetMessage(),
		)
	}

	return nil
}

package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/manifest_pr/manifests/host"
)

func headsRef(branch string) string {
	return "heads/" + branch
}

func fullRef(branch string) string {
	return "refs/heads/" + branch
}

// GetReference implements host.Accessor.
func (a *Accessor) GetReference(
	ctx context.Context,
	repo host.Repository,
	branch string,
) (*host.Reference, error) {
	const errCtx = "reading reference"

	ref, _, err := a.client.Git.GetRef(
		ctx, repo.Owner, repo.Name, headsRef(branch),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s:%s: %w",
			errCtx, repo.FullName(), branch, classify(err),
		)
	}

	return &host.Reference{
		Branch: branch,
		SHA:    ref.GetObject().GetSHA(),
	}, nil
}

// CreateReference implements host.Accessor.
func (a *Accessor) CreateReference(
	ctx context.Context,
	repo host.Repository,
	branch string,
	sha string,
) (*host.Reference, error) {
	const errCtx = "creating reference"

	ref, _, err := a.client.Git.CreateRef(
		ctx, repo.Owner, repo.Name, &gh.Reference{
			Ref:    gh.Ptr(fullRef(branch)),
			Object: &gh.GitObject{SHA: gh.Ptr(sha)},
		},
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s:%s: %w",
			errCtx, repo.FullName(), branch, classify(err),
		)
	}

	return &host.Reference{
		Branch: branch,
		SHA:    ref.GetObject().GetSHA(),
	}, nil
}

// UpdateReference implements host.Accessor.
func (a *Accessor) UpdateReference(
	ctx context.Context,
	repo host.Repository,
	branch string,
	sha string,
	force bool,
) (*host.Reference, error) {
	const errCtx = "updating reference"

	ref, _, err := a.client.Git.UpdateRef(
		ctx, repo.Owner, repo.Name, &gh.Reference{
			Ref:    gh.Ptr(fullRef(branch)),
			Object: &gh.GitObject{SHA: gh.Ptr(sha)},
		},
		force,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s:%s to %s: %w",
			errCtx, repo.FullName(), branch, sha, classify(err),
		)
	}

	return &host.Reference{
		Branch: branch,
		SHA:    ref.GetObject().GetSHA(),
	}, nil
}

// DeleteReference implements host.Accessor.
func (a *Accessor) DeleteReference(
	ctx context.Context,
	repo host.Repository,
	branch string,
) error {
	const errCtx = "deleting reference"

	_, err := a.client.Git.DeleteRef(
		ctx, repo.Owner, repo.Name, headsRef(branch),
	)
	if err != nil {
		return fmt.Errorf(
			"%s %s:%s: %w",
			errCtx, repo.FullName(), branch, classify(err),
		)
	}

	return nil
}

// GetCommitTree implements host.Accessor.
func (a *Accessor) GetCommitTree(
	ctx context.Context,
	repo host.Repository,
	sha string,
) (string, error) {
	const errCtx = "reading commit"

	c, _, err := a.client.Git.GetCommit(ctx, repo.Owner, repo.Name, sha)
	if err != nil {
		return "", fmt.Errorf(
			"%s %s@%s: %w",
			errCtx, repo.FullName(), sha, classify(err),
		)
	}

	return c.GetTree().GetSHA(), nil
}

// CreateTree implements host.Accessor.
func (a *Accessor) CreateTree(
	ctx context.Context,
	repo host.Repository,
	baseTree string,
	files []host.TreeFile,
) (string, error) {
	const errCtx = "creating tree"

	entries := make([]*gh.TreeEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, &gh.TreeEntry{
			Path:    gh.Ptr(f.Path),
			Mode:    gh.Ptr(host.FileMode),
			Type:    gh.Ptr("blob"),
			Content: gh.Ptr(f.Content),
		})
	}

	tree, _, err := a.client.Git.CreateTree(
		ctx, repo.Owner, repo.Name, baseTree, entries,
	)
	if err != nil {
		return "", fmt.Errorf(
			"%s in %s: %w", errCtx, repo.FullName(), classify(err),
		)
	}

	return tree.GetSHA(), nil
}

// CreateCommit implements host.Accessor.
func (a *Accessor) CreateCommit(
	ctx context.Context,
	repo host.Repository,
	message string,
	tree string,
	parent string,
) (string, error) {
	const errCtx = "creating commit"

	c, _, err := a.client.Git.CreateCommit(
		ctx, repo.Owner, repo.Name, &gh.Commit{
			Message: gh.Ptr(message),
			Tree:    &gh.Tree{SHA: gh.Ptr(tree)},
			Parents: []*gh.Commit{{SHA: gh.Ptr(parent)}},
		},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf(
			"%s in %s: %w", errCtx, repo.FullName(), classify(err),
		)
	}

	return c.GetSHA(), nil
}

// Compare implements host.Accessor. head may be
// "owner:branch" to compare across a fork network.
func (a *Accessor) Compare(
	ctx context.Context,
	repo host.Repository,
	base string,
	head string,
) (*host.Comparison, error) {
	const errCtx = "comparing"

	cmp, _, err := a.client.Repositories.CompareCommits(
		ctx, repo.Owner, repo.Name, base, head, nil,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s...%s in %s: %w",
			errCtx, base, head, repo.FullName(), classify(err),
		)
	}

	return &host.Comparison{
		AheadBy:  cmp.GetAheadBy(),
		BehindBy: cmp.GetBehindBy(),
	}, nil
}

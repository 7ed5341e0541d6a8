package changeset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/byte4ever/manifest_pr/manifests/host"
)

// Commit is a commit built from a changeset.
type Commit struct {
	SHA     string
	Tree    string
	BaseSHA string
}

// Builder creates tree and commit objects for changesets.
type Builder struct {
	accessor host.Accessor
}

// NewBuilder returns a Builder issuing requests through
// accessor.
func NewBuilder(accessor host.Accessor) *Builder {
	return &Builder{accessor: accessor}
}

// Build creates one tree holding cs on top of the tree of
// baseSHA, and one commit of that tree whose parent is
// baseSHA. No reference is updated.
func (b *Builder) Build(
	ctx context.Context,
	repo host.Repository,
	baseSHA string,
	cs Changeset,
	message string,
) (*Commit, error) {
	const errCtx = "building changeset commit"

	if len(cs.Files) == 0 {
		return nil, fmt.Errorf("%s: %w", errCtx, ErrEmpty)
	}

	baseTree, err := b.accessor.GetCommitTree(ctx, repo, baseSHA)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: read base %s: %w", errCtx, baseSHA, err,
		)
	}

	files := make([]host.TreeFile, 0, len(cs.Files))
	for _, f := range cs.Files {
		files = append(files, host.TreeFile{
			Path:    f.Path,
			Content: f.Content,
		})
	}

	tree, err := b.accessor.CreateTree(ctx, repo, baseTree, files)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: create tree: %w", errCtx, err,
		)
	}

	sha, err := b.accessor.CreateCommit(
		ctx, repo, message, tree, baseSHA,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: create commit: %w", errCtx, err,
		)
	}

	slog.Debug(
		"built changeset commit",
		"repo", repo.FullName(),
		"files", len(files),
		"sha", sha,
	)

	return &Commit{SHA: sha, Tree: tree, BaseSHA: baseSHA}, nil
}

// DeleteDir deletes every file of dir on branch, one
// delete request per file, reading blob shas from the
// current branch state. It returns the number of deleted
// files.
func (b *Builder) DeleteDir(
	ctx context.Context,
	repo host.Repository,
	branch string,
	dir string,
	message string,
) (int, error) {
	const errCtx = "deleting directory"

	entries, err := b.accessor.ListDirectory(ctx, repo, dir, branch)
	if err != nil {
		return 0, fmt.Errorf(
			"%s: list %s: %w", errCtx, dir, err,
		)
	}

	deleted := 0

	for _, e := range entries {
		if e.Type != host.EntryFile {
			continue
		}

		if err := b.accessor.DeleteFile(
			ctx, repo, e.Path, e.SHA, branch, message,
		); err != nil {
			return deleted, fmt.Errorf(
				"%s: delete %s: %w", errCtx, e.Path, err,
			)
		}

		deleted++
	}

	slog.Info(
		"deleted previous version files",
		"repo", repo.FullName(),
		"branch", branch,
		"dir", dir,
		"count", deleted,
	)

	return deleted, nil
}

package github

import (
	"context"
	"fmt"
	"io"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/manifest_pr/manifests/host"
)

// ListDirectory implements host.Accessor.
func (a *Accessor) ListDirectory(
	ctx context.Context,
	repo host.Repository,
	path string,
	ref string,
) ([]host.ContentEntry, error) {
	const errCtx = "listing directory"

	file, dir, _, err := a.client.Repositories.GetContents(
		ctx, repo.Owner, repo.Name, path,
		&gh.RepositoryContentGetOptions{Ref: ref},
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s/%s: %w",
			errCtx, repo.FullName(), path, classify(err),
		)
	}

	if file != nil {
		return nil, fmt.Errorf(
			"%s %s/%s: is a file: %w",
			errCtx, repo.FullName(), path, host.ErrNotFound,
		)
	}

	out := make([]host.ContentEntry, 0, len(dir))
	for _, c := range dir {
		out = append(out, host.ContentEntry{
			Name: c.GetName(),
			Path: c.GetPath(),
			Type: host.EntryType(c.GetType()),
			SHA:  c.GetSHA(),
		})
	}

	return out, nil
}

// GetFileContent implements host.Accessor.
func (a *Accessor) GetFileContent(
	ctx context.Context,
	repo host.Repository,
	path string,
	ref string,
) (string, error) {
	const errCtx = "reading file"

	opts := &gh.RepositoryContentGetOptions{Ref: ref}

	file, _, _, err := a.client.Repositories.GetContents(
		ctx, repo.Owner, repo.Name, path, opts,
	)
	if err != nil {
		return "", fmt.Errorf(
			"%s %s/%s: %w",
			errCtx, repo.FullName(), path, classify(err),
		)
	}

	if file == nil {
		return "", fmt.Errorf(
			"%s %s/%s: is a directory: %w",
			errCtx, repo.FullName(), path, host.ErrNotFound,
		)
	}

	// Files over 1MB come back without inline content.
	if file.GetEncoding() == "none" {
		return a.download(ctx, repo, path, opts)
	}

	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf(
			"%s %s/%s: %w", errCtx, repo.FullName(), path, err,
		)
	}

	return content, nil
}

func (a *Accessor) download(
	ctx context.Context,
	repo host.Repository,
	path string,
	opts *gh.RepositoryContentGetOptions,
) (string, error) {
	const errCtx = "downloading file"

	rc, _, err := a.client.Repositories.DownloadContents(
		ctx, repo.Owner, repo.Name, path, opts,
	)
	if err != nil {
		return "", fmt.Errorf(
			"%s %s/%s: %w",
			errCtx, repo.FullName(), path, classify(err),
		)
	}
	defer rc.Close() //nolint:errcheck

	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf(
			"%s %s/%s: %w",
			errCtx, repo.FullName(), path, classify(err),
		)
	}

	return string(b), nil
}

// DeleteFile implements host.Accessor.
func (a *Accessor) DeleteFile(
	ctx context.Context,
	repo host.Repository,
	path string,
	sha string,
	branch string,
	message string,
) error {
	const errCtx = "deleting file"

	_, _, err := a.client.Repositories.DeleteFile(
		ctx, repo.Owner, repo.Name, path,
		&gh.RepositoryContentFileOptions{
			Message: gh.Ptr(message),
			SHA:     gh.Ptr(sha),
			Branch:  gh.Ptr(branch),
		},
	)
	if err != nil {
		return fmt.Errorf(
			"%s %s/%s on %s: %w",
			errCtx, repo.FullName(), path, branch, classify(err),
		)
	}

	return nil
}

package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/byte4ever/manifest_pr/manifests/branchtx"
	"github.com/byte4ever/manifest_pr/manifests/changeset"
	"github.com/byte4ever/manifest_pr/manifests/commitmsg"
	"github.com/byte4ever/manifest_pr/manifests/forksync"
	"github.com/byte4ever/manifest_pr/manifests/host"
	"github.com/byte4ever/manifest_pr/manifests/locator"
)

// DefaultTemplatePath is where the upstream repository
// keeps its pull request description.
const DefaultTemplatePath = ".github/PULL_REQUEST_TEMPLATE.md"

var (
	// ErrNotAFork is returned when the caller owns a
	// repository named like the upstream that is not a
	// fork of it.
	ErrNotAFork = errors.New("repository is not a fork of upstream")

	// ErrNotOpen is returned when acting on a pull request
	// that is no longer open.
	ErrNotOpen = errors.New("pull request is not open")

	// ErrIncomplete is returned for a changeset without
	// package identifier or version.
	ErrIncomplete = errors.New("changeset identity is incomplete")
)

// Config holds the settings of a Publisher.
type Config struct {
	// Accessor issues every remote request.
	Accessor host.Accessor

	// Upstream is the shared manifest repository. Owner
	// and Name are enough; the rest is read remotely.
	Upstream host.Repository

	// SubmitToFork stages branches in the caller's fork
	// instead of the upstream repository.
	SubmitToFork bool

	// Root is the manifest directory of the repository.
	// Defaults to locator.DefaultRoot.
	Root string

	// Layout places packages under Root.
	Layout locator.Layout

	// TemplatePath is the upstream path of the pull
	// request description. Defaults to
	// DefaultTemplatePath.
	TemplatePath string

	// TitleTemplate renders the pull request title and
	// commit subject. Defaults to
	// commitmsg.DefaultTemplate.
	TitleTemplate string

	// Retry bounds branch creation attempts.
	Retry branchtx.RetryPolicy

	// OnRetry is called before each branch creation
	// backoff wait.
	OnRetry func(err error, wait time.Duration)

	// RollbackTimeout bounds cleanup after a failure.
	RollbackTimeout time.Duration
}

// Options tunes one submission.
type Options struct {
	// Title overrides the rendered title.
	Title string

	// ReplaceVersion names an existing version of the
	// package whose files are deleted on the submission
	// branch before the new files land.
	ReplaceVersion string
}

// Result describes an opened pull request.
type Result struct {
	Number       int             `json:"number"`
	URL          string          `json:"url"`
	Title        string          `json:"title"`
	HeadRepo     host.Repository `json:"-"`
	HeadBranch   string          `json:"headBranch"`
	TargetBranch string          `json:"targetBranch"`
	Body         string          `json:"body"`
}

// Publisher submits changesets to one upstream
// repository.
type Publisher struct {
	cfg     Config
	builder *changeset.Builder
	syncer  *forksync.Synchronizer
}

// New validates cfg and returns a Publisher.
func New(cfg Config) (*Publisher, error) {
	const errCtx = "creating publisher"

	if cfg.Accessor == nil {
		return nil, fmt.Errorf(
			"%s: accessor must be set", errCtx,
		)
	}

	if cfg.Upstream.Owner == "" || cfg.Upstream.Name == "" {
		return nil, fmt.Errorf(
			"%s: upstream owner and name must be set", errCtx,
		)
	}

	if cfg.Root == "" {
		cfg.Root = locator.DefaultRoot
	}

	if cfg.TemplatePath == "" {
		cfg.TemplatePath = DefaultTemplatePath
	}

	if cfg.TitleTemplate == "" {
		cfg.TitleTemplate = commitmsg.DefaultTemplate
	}

	return &Publisher{
		cfg:     cfg,
		builder: changeset.NewBuilder(cfg.Accessor),
		syncer:  forksync.New(cfg.Accessor),
	}, nil
}

// Submit publishes cs as a pull request into the default
// branch of the upstream repository.
//
//nolint:funlen // the steps read best in one place
func (p *Publisher) Submit(
	ctx context.Context,
	cs changeset.Changeset,
	opts Options,
) (*Result, error) {
	const errCtx = "submitting changeset"

	if cs.PackageID == "" || cs.Version == "" {
		return nil, fmt.Errorf("%s: %w", errCtx, ErrIncomplete)
	}

	if len(cs.Files) == 0 {
		return nil, fmt.Errorf("%s: %w", errCtx, changeset.ErrEmpty)
	}

	acc := p.cfg.Accessor

	// Step 1: Resolve the target repository.
	upstream, err := acc.GetRepository(
		ctx, p.cfg.Upstream.Owner, p.cfg.Upstream.Name,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: read upstream: %w", errCtx, err,
		)
	}

	target, created, err := p.resolveTarget(ctx, *upstream)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: resolve target: %w", errCtx, err,
		)
	}

	branch := branchtx.BranchName(cs.PackageID, cs.Version)

	tx, err := branchtx.New(branchtx.Config{
		Accessor:        acc,
		Repository:      target,
		Created:         created,
		Branch:          branch,
		Sync:            p.syncStep(target, created),
		Retry:           p.cfg.Retry,
		OnRetry:         p.cfg.OnRetry,
		RollbackTimeout: p.cfg.RollbackTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	// Step 2: Read the upstream tip.
	tip, err := acc.GetReference(ctx, *upstream, upstream.DefaultBranch)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: read upstream tip: %w",
			errCtx, tx.Abort(ctx, err),
		)
	}

	title := opts.Title
	if title == "" {
		title = commitmsg.Render(
			p.cfg.TitleTemplate, cs.PackageID, cs.Version,
		)
	}

	var result *Result

	// Steps 3 to 8 run on the branch; the transaction
	// rolls back when any of them fails.
	err = tx.Run(ctx, tip.SHA, func(
		ctx context.Context,
		br branchtx.Branch,
	) error {
		head := br.SHA

		if opts.ReplaceVersion != "" {
			replaced, err := p.replace(
				ctx, br, cs.PackageID, opts.ReplaceVersion,
			)
			if err != nil {
				return err
			}

			head = replaced
		}

		slog.Info(
			"building commit",
			"repo", target.FullName(),
			"branch", br.Name,
			"files", len(cs.Files),
		)

		commit, err := p.builder.Build(
			ctx, target, head, cs,
			commitmsg.Generate(title, cs.Paths()),
		)
		if err != nil {
			return err
		}

		slog.Info(
			"updating branch",
			"repo", target.FullName(),
			"branch", br.Name,
			"sha", commit.SHA,
		)

		if _, err := acc.UpdateReference(
			ctx, target, br.Name, commit.SHA, false,
		); err != nil {
			return fmt.Errorf("land commit: %w", err)
		}

		body, err := p.template(ctx, *upstream)
		if err != nil {
			return err
		}

		slog.Info(
			"opening pull request",
			"repo", upstream.FullName(),
			"branch", br.Name,
		)

		pr, err := acc.CreatePullRequest(ctx, *upstream, host.NewPullRequest{
			Title: title,
			Head:  target.Owner + ":" + br.Name,
			Base:  upstream.DefaultBranch,
			Body:  body,
		})
		if err != nil {
			return err
		}

		result = &Result{
			Number:       pr.Number,
			URL:          pr.URL,
			Title:        title,
			HeadRepo:     target,
			HeadBranch:   br.Name,
			TargetBranch: upstream.DefaultBranch,
			Body:         body,
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s %s: %w",
			errCtx, cs.PackageID, cs.Version, err,
		)
	}

	slog.Info(
		"submitted pull request",
		"repo", upstream.FullName(),
		"branch", result.HeadBranch,
		"number", result.Number,
		"url", result.URL,
	)

	return result, nil
}

// resolveTarget returns the repository that receives the
// submission branch, and whether it was created for this
// submission.
func (p *Publisher) resolveTarget(
	ctx context.Context,
	upstream host.Repository,
) (host.Repository, bool, error) {
	if !p.cfg.SubmitToFork {
		return upstream, false, nil
	}

	acc := p.cfg.Accessor

	login, err := acc.CurrentUser(ctx)
	if err != nil {
		return host.Repository{}, false, err
	}

	if strings.EqualFold(login, upstream.Owner) {
		slog.Info(
			"caller owns upstream, submitting directly",
			"repo", upstream.FullName(),
		)

		return upstream, false, nil
	}

	existing, err := acc.GetRepository(ctx, login, upstream.Name)

	switch {
	case err == nil:
		if existing.Parent == nil || !existing.Parent.SameAs(upstream) {
			return host.Repository{}, false, fmt.Errorf(
				"%s: %w", existing.FullName(), ErrNotAFork,
			)
		}

		slog.Info("using existing fork", "repo", existing.FullName())

		return *existing, false, nil
	case !host.IsNotFound(err):
		return host.Repository{}, false, err
	}

	fork, err := acc.CreateFork(ctx, upstream)
	if err != nil {
		return host.Repository{}, false, err
	}

	slog.Info("created fork", "repo", fork.FullName())

	return *fork, true, nil
}

// syncStep returns the fork synchronisation to run before
// branch creation, or nil when target is not a fork. A fork
// created for this submission already sits at the upstream
// tip.
func (p *Publisher) syncStep(
	target host.Repository,
	created bool,
) func(ctx context.Context) error {
	if created || !target.IsFork() {
		return nil
	}

	return func(ctx context.Context) error {
		slog.Info(
			"syncing fork",
			"repo", target.FullName(),
			"branch", target.DefaultBranch,
		)

		outcome, err := p.syncer.Sync(ctx, target)
		if err != nil {
			return err
		}

		slog.Info(
			"fork synced",
			"repo", target.FullName(),
			"outcome", outcome.String(),
		)

		return nil
	}
}

// replace deletes the files of version of packageID on
// the branch and returns the new branch tip.
func (p *Publisher) replace(
	ctx context.Context,
	br branchtx.Branch,
	packageID string,
	version string,
) (string, error) {
	acc := p.cfg.Accessor

	loc, err := locator.New(locator.Config{
		Accessor:   acc,
		Repository: br.Repository,
		Ref:        br.Name,
		Root:       p.cfg.Root,
		Layout:     p.cfg.Layout,
	})
	if err != nil {
		return "", err
	}

	pkg, err := loc.Locate(ctx, packageID)
	if err != nil {
		return "", err
	}

	ver, err := loc.ResolveVersion(ctx, *pkg, version)
	if err != nil {
		return "", err
	}

	slog.Info(
		"removing replaced version",
		"repo", br.Repository.FullName(),
		"branch", br.Name,
		"dir", ver.VersionDir,
	)

	if _, err := p.builder.DeleteDir(
		ctx, br.Repository, br.Name, ver.VersionDir,
		commitmsg.Render(
			"Remove {PackageIdentifier} version {PackageVersion}",
			ver.PackageID, ver.Version,
		),
	); err != nil {
		return "", err
	}

	ref, err := acc.GetReference(ctx, br.Repository, br.Name)
	if err != nil {
		return "", fmt.Errorf("read branch after removal: %w", err)
	}

	return ref.SHA, nil
}

// template reads the pull request description. A missing
// template yields an empty description.
func (p *Publisher) template(
	ctx context.Context,
	upstream host.Repository,
) (string, error) {
	body, err := p.cfg.Accessor.GetFileContent(
		ctx, upstream, p.cfg.TemplatePath, upstream.DefaultBranch,
	)

	switch {
	case err == nil:
		return body, nil
	case host.IsNotFound(err):
		slog.Warn(
			"no pull request template",
			"repo", upstream.FullName(),
			"path", p.cfg.TemplatePath,
		)

		return "", nil
	default:
		return "", fmt.Errorf("read pull request template: %w", err)
	}
}

// Withdraw closes pull request number and deletes its
// head branch.
func (p *Publisher) Withdraw(ctx context.Context, number int) error {
	const errCtx = "withdrawing pull request"

	acc := p.cfg.Accessor

	pr, err := acc.GetPullRequest(ctx, p.cfg.Upstream, number)
	if err != nil {
		return fmt.Errorf("%s %d: %w", errCtx, number, err)
	}

	if pr.State != "open" {
		return fmt.Errorf("%s %d: %w", errCtx, number, ErrNotOpen)
	}

	if err := acc.ClosePullRequest(ctx, p.cfg.Upstream, number); err != nil {
		return fmt.Errorf("%s %d: %w", errCtx, number, err)
	}

	err = acc.DeleteReference(ctx, pr.HeadRepo, pr.HeadBranch)
	if err != nil && !host.IsNotFound(err) {
		return fmt.Errorf(
			"%s %d: delete head branch: %w", errCtx, number, err,
		)
	}

	slog.Info(
		"withdrew pull request",
		"number", number,
		"repo", pr.HeadRepo.FullName(),
		"branch", pr.HeadBranch,
	)

	return nil
}

// Merge merges pull request number into the upstream
// default branch.
func (p *Publisher) Merge(ctx context.Context, number int) error {
	const errCtx = "merging pull request"

	acc := p.cfg.Accessor

	pr, err := acc.GetPullRequest(ctx, p.cfg.Upstream, number)
	if err != nil {
		return fmt.Errorf("%s %d: %w", errCtx, number, err)
	}

	if pr.State != "open" {
		return fmt.Errorf("%s %d: %w", errCtx, number, ErrNotOpen)
	}

	if err := acc.MergePullRequest(
		ctx, p.cfg.Upstream, number, "",
	); err != nil {
		return fmt.Errorf("%s %d: %w", errCtx, number, err)
	}

	slog.Info("merged pull request", "number", number)

	return nil
}

package branchtx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenk/backoff"
	"github.com/google/uuid"

	"github.com/byte4ever/manifest_pr/manifests/host"
)

// ErrCreateBranch marks a submission branch that could not
// be created, retries included.
var ErrCreateBranch = errors.New("cannot create submission branch")

const defaultRollbackTimeout = 30 * time.Second

// BranchName returns "<packageID>-<version>-<uuid>" with
// all whitespace removed.
func BranchName(packageID string, version string) string {
	name := packageID + "-" + version + "-" + uuid.NewString()

	return strings.Join(strings.Fields(name), "")
}

// Config holds the settings of a Transaction.
type Config struct {
	// Accessor issues the requests.
	Accessor host.Accessor
	// Repository receives the branch.
	Repository host.Repository
	// Created is true when Repository was created for this
	// submission; rollback then deletes the repository.
	Created bool
	// Branch is the branch to create.
	Branch string
	// Sync, when set, runs before the first creation
	// attempt. A sync that succeeded is never repeated.
	Sync func(ctx context.Context) error
	// Retry bounds creation attempts. The zero value means
	// DefaultRetryPolicy.
	Retry RetryPolicy
	// OnRetry is called before each backoff wait.
	OnRetry func(err error, wait time.Duration)
	// RollbackTimeout bounds cleanup, which runs even when
	// the caller's context is cancelled. Defaults to 30s.
	RollbackTimeout time.Duration
}

// Branch is a created submission branch.
type Branch struct {
	Repository host.Repository
	Name       string
	SHA        string
}

// Transaction owns one submission branch.
type Transaction struct {
	cfg    Config
	synced bool
	// landed is set once the branch is known to exist on
	// the host even though creation reported a failure.
	landed bool
}

// New validates cfg and returns a Transaction.
func New(cfg Config) (*Transaction, error) {
	const errCtx = "creating branch transaction"

	if cfg.Accessor == nil {
		return nil, fmt.Errorf(
			"%s: accessor must be set", errCtx,
		)
	}

	if cfg.Repository.Owner == "" || cfg.Repository.Name == "" {
		return nil, fmt.Errorf(
			"%s: repository must be set", errCtx,
		)
	}

	if strings.TrimSpace(cfg.Branch) == "" {
		return nil, fmt.Errorf(
			"%s: branch must be set", errCtx,
		)
	}

	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}

	if cfg.RollbackTimeout <= 0 {
		cfg.RollbackTimeout = defaultRollbackTimeout
	}

	return &Transaction{cfg: cfg}, nil
}

// Run creates the branch at tipSHA, moves it explicitly to
// tipSHA again, and calls fn. If anything fails after the
// branch exists, or if creation fails in a repository
// created for this submission, Run rolls back before
// returning the error.
func (tx *Transaction) Run(
	ctx context.Context,
	tipSHA string,
	fn func(ctx context.Context, br Branch) error,
) (err error) {
	const errCtx = "running branch transaction"

	if err := tx.create(ctx, tipSHA); err != nil {
		if tx.landed {
			return tx.rollback(ctx, err)
		}

		return tx.Abort(ctx, err)
	}

	committed := false

	defer func() {
		if !committed {
			err = tx.rollback(ctx, err)
		}
	}()

	ref, err := tx.cfg.Accessor.UpdateReference(
		ctx, tx.cfg.Repository, tx.cfg.Branch, tipSHA, false,
	)
	if err != nil {
		return fmt.Errorf(
			"%s: advance %s: %w", errCtx, tx.cfg.Branch, err,
		)
	}

	if err := fn(ctx, Branch{
		Repository: tx.cfg.Repository,
		Name:       tx.cfg.Branch,
		SHA:        ref.SHA,
	}); err != nil {
		return err
	}

	committed = true

	return nil
}

// Abort cleans up after a failure that happened before the
// branch existed: a repository created for this submission
// is deleted, anything else is left alone. It returns
// cause, joined with any cleanup failure that is not a
// permission refusal.
func (tx *Transaction) Abort(ctx context.Context, cause error) error {
	if !tx.cfg.Created {
		return cause
	}

	return tx.rollback(ctx, cause)
}

func (tx *Transaction) create(ctx context.Context, tipSHA string) error {
	const errCtx = "creating branch"

	attempt := 0

	op := func() error {
		attempt++

		if tx.cfg.Sync != nil && !tx.synced {
			if err := tx.cfg.Sync(ctx); err != nil {
				return tx.retryable(err)
			}

			tx.synced = true
		}

		_, err := tx.cfg.Accessor.CreateReference(
			ctx, tx.cfg.Repository, tx.cfg.Branch, tipSHA,
		)
		if attempt > 1 && errors.Is(err, host.ErrAlreadyExists) {
			return tx.adopt(ctx, tipSHA, err)
		}

		return tx.retryable(err)
	}

	notify := func(err error, wait time.Duration) {
		slog.Warn(
			"retrying branch creation",
			"repo", tx.cfg.Repository.FullName(),
			"branch", tx.cfg.Branch,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)

		if tx.cfg.OnRetry != nil {
			tx.cfg.OnRetry(err, wait)
		}
	}

	err := backoff.RetryNotify(
		op,
		backoff.WithContext(tx.cfg.Retry.backOff(), ctx),
		notify,
	)
	if err != nil {
		return fmt.Errorf(
			"%s %s after %d attempt(s): %w: %w",
			errCtx, tx.cfg.Branch, attempt, ErrCreateBranch, err,
		)
	}

	slog.Info(
		"created branch",
		"repo", tx.cfg.Repository.FullName(),
		"branch", tx.cfg.Branch,
		"sha", tipSHA,
	)

	return nil
}

// retryable marks err permanent unless the host
// classified it as worth retrying. A repository created
// for this submission may not be readable yet, so not
// found is retried there.
func (tx *Transaction) retryable(err error) error {
	if err == nil || host.IsRetryable(err) {
		return err
	}

	if tx.cfg.Created && host.IsNotFound(err) {
		return err
	}

	return backoff.Permanent(err)
}

// adopt handles a branch found by a retry. Branch names are
// unique, so it is the write of an earlier attempt whose
// response was lost. It counts as created when it points at
// tipSHA; otherwise creation fails and Run removes it.
func (tx *Transaction) adopt(
	ctx context.Context,
	tipSHA string,
	cause error,
) error {
	tx.landed = true

	ref, err := tx.cfg.Accessor.GetReference(
		ctx, tx.cfg.Repository, tx.cfg.Branch,
	)
	if err != nil {
		return backoff.Permanent(errors.Join(
			cause, fmt.Errorf("read existing branch: %w", err),
		))
	}

	if ref.SHA != tipSHA {
		return backoff.Permanent(fmt.Errorf(
			"%w: points at %s, not %s", cause, ref.SHA, tipSHA,
		))
	}

	slog.Info(
		"branch created by an earlier attempt",
		"repo", tx.cfg.Repository.FullName(),
		"branch", tx.cfg.Branch,
	)

	return nil
}

// rollback deletes the repository when it was created for
// this submission, the branch otherwise. It runs detached
// from ctx cancellation.
func (tx *Transaction) rollback(ctx context.Context, cause error) error {
	rctx, cancel := context.WithTimeout(
		context.WithoutCancel(ctx), tx.cfg.RollbackTimeout,
	)
	defer cancel()

	repo := tx.cfg.Repository

	var (
		err    error
		target string
	)

	if tx.cfg.Created {
		target = repo.FullName()
		err = tx.cfg.Accessor.DeleteRepository(rctx, repo)
	} else {
		target = repo.FullName() + ":" + tx.cfg.Branch
		err = tx.cfg.Accessor.DeleteReference(rctx, repo, tx.cfg.Branch)
	}

	switch {
	case err == nil:
		slog.Info("rolled back", "target", target, "cause", cause)

		return cause
	case host.IsNotFound(err):
		slog.Debug("nothing to roll back", "target", target)

		return cause
	case host.IsPermission(err):
		slog.Warn(
			"rollback refused, leaving stale resource",
			"target", target,
			"error", err,
		)

		return cause
	default:
		slog.Error(
			"rollback failed",
			"target", target,
			"error", err,
		)

		return errors.Join(
			cause,
			fmt.Errorf("rolling back %s: %w", target, err),
		)
	}
}

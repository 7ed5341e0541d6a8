package forksync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/byte4ever/manifest_pr/manifests/host"
)

// ErrDiverged marks a fork that cannot be fast-forwarded
// without discarding its own commits.
var ErrDiverged = errors.New("fork cannot be safely synced")

// DivergedError reports the commits a fork holds that its
// upstream lacks.
type DivergedError struct {
	Fork    string
	AheadBy int
}

func (e *DivergedError) Error() string {
	return fmt.Sprintf(
		"%s: %s is ahead of upstream by %d commit(s)",
		ErrDiverged, e.Fork, e.AheadBy,
	)
}

// Unwrap makes DivergedError match ErrDiverged.
func (e *DivergedError) Unwrap() error {
	return ErrDiverged
}

// Outcome is the result of a successful Sync.
type Outcome int

const (
	// UpToDate means the fork was not behind.
	UpToDate Outcome = iota
	// FastForwarded means the fork branch was moved to the
	// upstream tip.
	FastForwarded
)

func (o Outcome) String() string {
	switch o {
	case UpToDate:
		return "up to date"
	case FastForwarded:
		return "fast-forwarded"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Synchronizer syncs forks with their upstream.
type Synchronizer struct {
	accessor host.Accessor
}

// New returns a Synchronizer issuing requests through
// accessor.
func New(accessor host.Accessor) *Synchronizer {
	return &Synchronizer{accessor: accessor}
}

// Sync compares the default branch of fork with the
// default branch of its parent and fast-forwards the fork
// when it is strictly behind. Compare-then-update is not
// atomic; the fork is assumed to have a single owner.
func (s *Synchronizer) Sync(
	ctx context.Context,
	fork host.Repository,
) (Outcome, error) {
	const errCtx = "syncing fork"

	if fork.Parent == nil {
		return UpToDate, fmt.Errorf(
			"%s: %s is not a fork", errCtx, fork.FullName(),
		)
	}

	upstream := *fork.Parent

	cmp, err := s.accessor.Compare(
		ctx,
		upstream,
		upstream.DefaultBranch,
		fork.Owner+":"+fork.DefaultBranch,
	)
	if err != nil {
		return UpToDate, fmt.Errorf(
			"%s: compare %s with %s: %w",
			errCtx, fork.FullName(), upstream.FullName(), err,
		)
	}

	if cmp.BehindBy == 0 {
		slog.Debug(
			"fork up to date",
			"fork", fork.FullName(),
			"ahead", cmp.AheadBy,
		)

		return UpToDate, nil
	}

	if cmp.AheadBy > 0 {
		return UpToDate, &DivergedError{
			Fork:    fork.FullName(),
			AheadBy: cmp.AheadBy,
		}
	}

	tip, err := s.accessor.GetReference(
		ctx, upstream, upstream.DefaultBranch,
	)
	if err != nil {
		return UpToDate, fmt.Errorf(
			"%s: read upstream tip: %w", errCtx, err,
		)
	}

	if _, err := s.accessor.UpdateReference(
		ctx, fork, fork.DefaultBranch, tip.SHA, false,
	); err != nil {
		return UpToDate, fmt.Errorf(
			"%s: fast-forward %s: %w",
			errCtx, fork.FullName(), err,
		)
	}

	slog.Info(
		"fast-forwarded fork",
		"fork", fork.FullName(),
		"behind", cmp.BehindBy,
		"sha", tip.SHA,
	)

	return FastForwarded, nil
}

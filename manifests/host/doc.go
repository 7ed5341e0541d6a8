// Package host defines the remote repository surface the publishing
// pipeline is built on.
//
// Accessor is the typed facade over a git hosting platform's REST API:
// branch references, tree and commit objects, directory contents, branch
// comparison, forks, and pull requests. The github sub-package provides
// the production implementation; hosttest provides an in-memory one for
// tests.
//
// Failures returned by an Accessor are classified with the sentinel
// errors in this package (ErrNotFound, ErrTransient, ErrNonFastForward,
// ErrPermission, ErrAlreadyExists) so that callers can make retry and
// rollback decisions without knowing the platform.
package host

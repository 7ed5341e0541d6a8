// Package branchtx creates the per-submission branch and guarantees it
// does not outlive a failed submission.
//
// Transaction.Run creates a uniquely named branch at a given tip,
// retrying transient and non-fast-forward failures with a linear backoff
// (1s, 2s between three attempts by default), optionally syncing a fork
// once beforehand. It then runs the caller's work. When that work fails,
// or panics, the branch is deleted, or the whole repository when it was
// created for this submission, before the error is returned. A rollback
// refused for lack of permission is logged and swallowed so that the
// original failure always surfaces.
package branchtx

// Package forksync fast-forwards a fork's default branch to its
// upstream before new work is built on it. A fork holding commits the
// upstream lacks is never rewritten: Sync fails with a DivergedError
// carrying the number of those commits.
package forksync

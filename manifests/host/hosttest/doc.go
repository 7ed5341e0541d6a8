// Package hosttest provides Fake, an in-memory host.Accessor with a
// shared object store, fork semantics, fast-forward checks on reference
// updates, and per-method failure injection.
package hosttest

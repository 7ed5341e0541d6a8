// Package changeset models the set of manifest files published as one
// commit and builds that commit on the remote repository.
//
// Builder.Build turns a Changeset and a base commit into exactly one new
// tree and one new commit. It never moves a branch: the caller lands the
// changeset by updating the branch reference to the returned commit, so
// nothing is visible to other actors until that single update.
//
// LoadDir reads a local directory of YAML manifests into a Changeset,
// deriving repository paths from the PackageIdentifier and
// PackageVersion the manifests declare.
package changeset

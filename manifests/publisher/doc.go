// Package publisher submits package manifests as pull requests against
// a shared manifest repository. Submit resolves the target repository
// (the upstream itself, or the caller's fork of it), creates a uniquely
// named branch at the upstream tip, optionally removes a superseded
// version, lands the manifests as one commit, and opens the pull
// request with the description template of the upstream repository.
//
// Any failure once a branch or fork exists rolls it back before the
// error is returned. Withdraw and Merge act on submitted pull requests.
package publisher

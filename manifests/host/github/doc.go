// Package github implements host.Accessor on the GitHub REST API (cloud
// or enterprise). Authenticate with a personal access token, or with a
// GitHub App id and private key: the App credentials are exchanged for
// short-lived installation tokens that are refreshed before they
// expire.
package github

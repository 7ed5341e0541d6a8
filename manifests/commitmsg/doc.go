// Package commitmsg renders pull request titles and commit messages
// for package submissions, and embeds the list of submitted files in
// commit messages between begin/end markers.
package commitmsg

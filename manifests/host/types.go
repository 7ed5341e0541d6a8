package host

import "strings"

// FileMode is the git file mode of a regular, non-executable file.
const FileMode = "100644"

// Repository identifies a hosted repository. Parent is set when the
// repository is a fork and points at the repository it was forked
// from.
type Repository struct {
	ID            int64
	Owner         string
	Name          string
	DefaultBranch string
	Parent        *Repository
}

// IsFork reports whether r was created as a fork.
func (r Repository) IsFork() bool {
	return r.Parent != nil
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// SameAs reports whether r and o name the same repository. Owner and
// name are compared case-insensitively, as the host does.
func (r Repository) SameAs(o Repository) bool {
	if r.ID != 0 && o.ID != 0 {
		return r.ID == o.ID
	}

	return strings.EqualFold(r.Owner, o.Owner) &&
		strings.EqualFold(r.Name, o.Name)
}

// Reference is a branch and the commit it points at.
type Reference struct {
	Branch string
	SHA    string
}

// EntryType distinguishes files from directories in a listing.
type EntryType string

const (
	// EntryFile is a regular file.
	EntryFile EntryType = "file"
	// EntryDir is a directory.
	EntryDir EntryType = "dir"
)

// ContentEntry is one item of a directory listing.
type ContentEntry struct {
	Name string
	Path string
	Type EntryType
	// SHA is the blob sha for files.
	SHA string
}

// TreeFile is one blob entry of a tree to create. Content is stored
// inline with FileMode.
type TreeFile struct {
	Path    string
	Content string
}

// Comparison is the result of comparing a head against a base.
// AheadBy counts commits reachable from head only, BehindBy commits
// reachable from base only.
type Comparison struct {
	AheadBy  int
	BehindBy int
}

// NewPullRequest describes a pull request to open. Head is
// "owner:branch" for cross-repository pull requests.
type NewPullRequest struct {
	Title string
	Head  string
	Base  string
	Body  string
}

// PullRequest is an opened pull request.
type PullRequest struct {
	Number     int
	URL        string
	State      string
	HeadBranch string
	HeadRepo   Repository
	BaseBranch string
	BaseRepo   Repository
	Body       string
	Merged     bool
}

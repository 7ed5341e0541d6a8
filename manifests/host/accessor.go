package host

import "context"

// Pattern: Strategy -- swap the hosting platform without
// changing the publishing pipeline.

// Accessor is the remote repository surface used by the
// publishing pipeline. Every method is a single bounded
// request; none of them retries.
type Accessor interface {
	// CurrentUser returns the login of the authenticated
	// identity.
	CurrentUser(ctx context.Context) (string, error)

	// GetRepository reads a repository including its fork
	// parent.
	GetRepository(
		ctx context.Context,
		owner string,
		name string,
	) (*Repository, error)

	// CreateFork forks upstream into the authenticated
	// identity's account.
	CreateFork(
		ctx context.Context,
		upstream Repository,
	) (*Repository, error)

	// DeleteRepository deletes repo entirely.
	DeleteRepository(ctx context.Context, repo Repository) error

	// GetReference reads the tip of branch.
	GetReference(
		ctx context.Context,
		repo Repository,
		branch string,
	) (*Reference, error)

	// CreateReference creates branch pointing at sha.
	CreateReference(
		ctx context.Context,
		repo Repository,
		branch string,
		sha string,
	) (*Reference, error)

	// UpdateReference moves branch to sha. Without force
	// the update must be a fast-forward.
	UpdateReference(
		ctx context.Context,
		repo Repository,
		branch string,
		sha string,
		force bool,
	) (*Reference, error)

	// DeleteReference deletes branch.
	DeleteReference(
		ctx context.Context,
		repo Repository,
		branch string,
	) error

	// GetCommitTree returns the tree sha of commit sha.
	GetCommitTree(
		ctx context.Context,
		repo Repository,
		sha string,
	) (string, error)

	// CreateTree creates a tree on top of baseTree and
	// returns its sha.
	CreateTree(
		ctx context.Context,
		repo Repository,
		baseTree string,
		files []TreeFile,
	) (string, error)

	// CreateCommit creates a commit object and returns its
	// sha. No reference is moved.
	CreateCommit(
		ctx context.Context,
		repo Repository,
		message string,
		tree string,
		parent string,
	) (string, error)

	// ListDirectory lists path at ref. An empty ref means
	// the default branch.
	ListDirectory(
		ctx context.Context,
		repo Repository,
		path string,
		ref string,
	) ([]ContentEntry, error)

	// GetFileContent returns the raw text of path at ref.
	GetFileContent(
		ctx context.Context,
		repo Repository,
		path string,
		ref string,
	) (string, error)

	// DeleteFile deletes path on branch given its current
	// blob sha. Each call lands its own commit.
	DeleteFile(
		ctx context.Context,
		repo Repository,
		path string,
		sha string,
		branch string,
		message string,
	) error

	// Compare compares head against base within repo. Head
	// may be "owner:branch" to name a fork's branch.
	Compare(
		ctx context.Context,
		repo Repository,
		base string,
		head string,
	) (*Comparison, error)

	// CreatePullRequest opens a pull request against repo.
	CreatePullRequest(
		ctx context.Context,
		repo Repository,
		pr NewPullRequest,
	) (*PullRequest, error)

	// GetPullRequest reads a pull request with its head
	// and base identities.
	GetPullRequest(
		ctx context.Context,
		repo Repository,
		number int,
	) (*PullRequest, error)

	// ClosePullRequest closes a pull request without
	// merging it.
	ClosePullRequest(
		ctx context.Context,
		repo Repository,
		number int,
	) error

	// MergePullRequest merges a pull request.
	MergePullRequest(
		ctx context.Context,
		repo Repository,
		number int,
		message string,
	) error
}

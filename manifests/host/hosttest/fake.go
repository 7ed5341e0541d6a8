package hosttest

import (
	"context"
	"crypto/sha1" //nolint:gosec // git object ids are sha1
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/byte4ever/manifest_pr/manifests/host"
)

type commit struct {
	tree   string
	parent string
	msg    string
}

type repo struct {
	meta     host.Repository
	branches map[string]string
}

type pull struct {
	pr       host.PullRequest
	headRepo string
}

// Fake is an in-memory host.Accessor. Repositories of one
// Fake share a single object store, like a fork network on
// the host. All methods are safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	user    string
	seq     int
	nextID  int64
	repos   map[string]*repo
	commits map[string]commit
	trees   map[string]map[string]string
	pulls   []*pull
	fail    map[string][]error
	calls   map[string]int
}

var _ host.Accessor = (*Fake)(nil)

// NewFake returns an empty Fake authenticated as user.
func NewFake(user string) *Fake {
	return &Fake{
		user:    user,
		repos:   make(map[string]*repo),
		commits: make(map[string]commit),
		trees:   make(map[string]map[string]string),
		fail:    make(map[string][]error),
		calls:   make(map[string]int),
	}
}

// BlobSHA returns the git blob id of content.
func BlobSHA(content string) string {
	h := sha1.New() //nolint:gosec // git object ids are sha1
	fmt.Fprintf(h, "blob %d\x00%s", len(content), content)

	return hex.EncodeToString(h.Sum(nil))
}

// FailNext queues errs to be returned by the next calls of
// method, one error per call, before the call has any
// effect.
func (f *Fake) FailNext(method string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fail[method] = append(f.fail[method], errs...)
}

// Calls returns how many times method was invoked,
// including injected failures.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[method]
}

// AddRepository creates a repository whose default branch
// holds one commit with files.
func (f *Fake) AddRepository(
	owner string,
	name string,
	defaultBranch string,
	files map[string]string,
) host.Repository {
	f.mu.Lock()
	defer f.mu.Unlock()

	tree := f.putTree(maps.Clone(files))
	sha := f.putCommit(commit{tree: tree, msg: "initial"})

	r := f.putRepo(host.Repository{
		Owner:         owner,
		Name:          name,
		DefaultBranch: defaultBranch,
	})
	r.branches[defaultBranch] = sha

	return r.meta
}

// AddFork creates a fork of upstream owned by owner whose
// default branch points at the upstream tip.
func (f *Fake) AddFork(
	upstream host.Repository,
	owner string,
) host.Repository {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, _ := f.fork(upstream, owner)

	return r.meta
}

// Push lands a commit on branch of r that writes files and
// removes deletes, and returns its sha. The branch is
// created from the default branch if missing.
func (f *Fake) Push(
	r host.Repository,
	branch string,
	files map[string]string,
	deletes ...string,
) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	rp := f.repos[key(r.Owner, r.Name)]

	tip, ok := rp.branches[branch]
	if !ok {
		tip = rp.branches[rp.meta.DefaultBranch]
	}

	content := maps.Clone(f.trees[f.commits[tip].tree])
	maps.Copy(content, files)

	for _, d := range deletes {
		delete(content, d)
	}

	sha := f.putCommit(commit{
		tree:   f.putTree(content),
		parent: tip,
		msg:    "push",
	})
	rp.branches[branch] = sha

	return sha
}

// Files returns the snapshot of r at ref, a branch name or
// a commit sha.
func (f *Fake) Files(
	r host.Repository,
	ref string,
) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rp, err := f.lookup(r)
	if err != nil {
		return nil, err
	}

	sha, err := f.resolve(rp, ref)
	if err != nil {
		return nil, err
	}

	return maps.Clone(f.trees[f.commits[sha].tree]), nil
}

// CommitMessage returns the message of commit sha.
func (f *Fake) CommitMessage(sha string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.commits[sha].msg
}

// Parent returns the parent of commit sha.
func (f *Fake) Parent(sha string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.commits[sha].parent
}

// Branches returns the sorted branch names of r, or nil
// when r does not exist.
func (f *Fake) Branches(r host.Repository) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	rp, ok := f.repos[key(r.Owner, r.Name)]
	if !ok {
		return nil
	}

	return slices.Sorted(maps.Keys(rp.branches))
}

// HasRepository reports whether owner/name exists.
func (f *Fake) HasRepository(owner string, name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.repos[key(owner, name)]

	return ok
}

// PullRequests returns every pull request opened so far.
func (f *Fake) PullRequests() []host.PullRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]host.PullRequest, 0, len(f.pulls))
	for _, p := range f.pulls {
		out = append(out, p.pr)
	}

	return out
}

// CurrentUser implements host.Accessor.
func (f *Fake) CurrentUser(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("CurrentUser"); err != nil {
		return "", err
	}

	return f.user, nil
}

// GetRepository implements host.Accessor.
func (f *Fake) GetRepository(
	_ context.Context,
	owner string,
	name string,
) (*host.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("GetRepository"); err != nil {
		return nil, err
	}

	rp, ok := f.repos[key(owner, name)]
	if !ok {
		return nil, fmt.Errorf(
			"repository %s/%s: %w", owner, name, host.ErrNotFound,
		)
	}

	meta := rp.meta

	return &meta, nil
}

// CreateFork implements host.Accessor. An existing fork of
// upstream owned by the user is returned as is.
func (f *Fake) CreateFork(
	_ context.Context,
	upstream host.Repository,
) (*host.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("CreateFork"); err != nil {
		return nil, err
	}

	if _, err := f.lookup(upstream); err != nil {
		return nil, err
	}

	r, _ := f.fork(upstream, f.user)
	meta := r.meta

	return &meta, nil
}

// DeleteRepository implements host.Accessor.
func (f *Fake) DeleteRepository(
	_ context.Context,
	r host.Repository,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("DeleteRepository"); err != nil {
		return err
	}

	if _, err := f.lookup(r); err != nil {
		return err
	}

	delete(f.repos, key(r.Owner, r.Name))

	return nil
}

// GetReference implements host.Accessor.
func (f *Fake) GetReference(
	_ context.Context,
	r host.Repository,
	branch string,
) (*host.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("GetReference"); err != nil {
		return nil, err
	}

	rp, err := f.lookup(r)
	if err != nil {
		return nil, err
	}

	sha, ok := rp.branches[branch]
	if !ok {
		return nil, fmt.Errorf(
			"branch %s: %w", branch, host.ErrNotFound,
		)
	}

	return &host.Reference{Branch: branch, SHA: sha}, nil
}

// CreateReference implements host.Accessor.
func (f *Fake) CreateReference(
	_ context.Context,
	r host.Repository,
	branch string,
	sha string,
) (*host.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("CreateReference"); err != nil {
		return nil, err
	}

	rp, err := f.lookup(r)
	if err != nil {
		return nil, err
	}

	if _, ok := rp.branches[branch]; ok {
		return nil, fmt.Errorf(
			"branch %s: %w", branch, host.ErrAlreadyExists,
		)
	}

	if _, ok := f.commits[sha]; !ok {
		return nil, fmt.Errorf(
			"commit %s: %w", sha, host.ErrNotFound,
		)
	}

	rp.branches[branch] = sha

	return &host.Reference{Branch: branch, SHA: sha}, nil
}

// UpdateReference implements host.Accessor.
func (f *Fake) UpdateReference(
	_ context.Context,
	r host.Repository,
	branch string,
	sha string,
	force bool,
) (*host.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("UpdateReference"); err != nil {
		return nil, err
	}

	rp, err := f.lookup(r)
	if err != nil {
		return nil, err
	}

	cur, ok := rp.branches[branch]
	if !ok {
		return nil, fmt.Errorf(
			"branch %s: %w", branch, host.ErrNotFound,
		)
	}

	if _, ok := f.commits[sha]; !ok {
		return nil, fmt.Errorf(
			"commit %s: %w", sha, host.ErrNotFound,
		)
	}

	if !force && !f.ancestors(sha)[cur] {
		return nil, fmt.Errorf(
			"branch %s to %s: %w",
			branch, sha, host.ErrNonFastForward,
		)
	}

	rp.branches[branch] = sha

	return &host.Reference{Branch: branch, SHA: sha}, nil
}

// DeleteReference implements host.Accessor.
func (f *Fake) DeleteReference(
	_ context.Context,
	r host.Repository,
	branch string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("DeleteReference"); err != nil {
		return err
	}

	rp, err := f.lookup(r)
	if err != nil {
		return err
	}

	if _, ok := rp.branches[branch]; !ok {
		return fmt.Errorf(
			"branch %s: %w", branch, host.ErrNotFound,
		)
	}

	delete(rp.branches, branch)

	return nil
}

// GetCommitTree implements host.Accessor.
func (f *Fake) GetCommitTree(
	_ context.Context,
	_ host.Repository,
	sha string,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("GetCommitTree"); err != nil {
		return "", err
	}

	c, ok := f.commits[sha]
	if !ok {
		return "", fmt.Errorf(
			"commit %s: %w", sha, host.ErrNotFound,
		)
	}

	return c.tree, nil
}

// CreateTree implements host.Accessor.
func (f *Fake) CreateTree(
	_ context.Context,
	_ host.Repository,
	baseTree string,
	files []host.TreeFile,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("CreateTree"); err != nil {
		return "", err
	}

	base, ok := f.trees[baseTree]
	if !ok {
		return "", fmt.Errorf(
			"tree %s: %w", baseTree, host.ErrNotFound,
		)
	}

	content := maps.Clone(base)
	for _, tf := range files {
		content[tf.Path] = tf.Content
	}

	return f.putTree(content), nil
}

// CreateCommit implements host.Accessor.
func (f *Fake) CreateCommit(
	_ context.Context,
	_ host.Repository,
	message string,
	tree string,
	parent string,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("CreateCommit"); err != nil {
		return "", err
	}

	if _, ok := f.trees[tree]; !ok {
		return "", fmt.Errorf(
			"tree %s: %w", tree, host.ErrNotFound,
		)
	}

	if _, ok := f.commits[parent]; !ok {
		return "", fmt.Errorf(
			"commit %s: %w", parent, host.ErrNotFound,
		)
	}

	return f.putCommit(commit{
		tree:   tree,
		parent: parent,
		msg:    message,
	}), nil
}

// ListDirectory implements host.Accessor.
func (f *Fake) ListDirectory(
	_ context.Context,
	r host.Repository,
	path string,
	ref string,
) ([]host.ContentEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("ListDirectory"); err != nil {
		return nil, err
	}

	files, err := f.snapshot(r, ref)
	if err != nil {
		return nil, err
	}

	prefix := strings.Trim(path, "/")
	if prefix != "" {
		prefix += "/"
	}
	seen := make(map[string]host.ContentEntry)

	for p, content := range files {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok {
			continue
		}

		name, _, isDir := strings.Cut(rest, "/")
		if isDir {
			seen[name] = host.ContentEntry{
				Name: name,
				Path: prefix + name,
				Type: host.EntryDir,
			}

			continue
		}

		seen[name] = host.ContentEntry{
			Name: name,
			Path: p,
			Type: host.EntryFile,
			SHA:  BlobSHA(content),
		}
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf(
			"path %s: %w", path, host.ErrNotFound,
		)
	}

	out := slices.Collect(maps.Values(seen))
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out, nil
}

// GetFileContent implements host.Accessor.
func (f *Fake) GetFileContent(
	_ context.Context,
	r host.Repository,
	path string,
	ref string,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("GetFileContent"); err != nil {
		return "", err
	}

	files, err := f.snapshot(r, ref)
	if err != nil {
		return "", err
	}

	content, ok := files[path]
	if !ok {
		return "", fmt.Errorf(
			"path %s: %w", path, host.ErrNotFound,
		)
	}

	return content, nil
}

// DeleteFile implements host.Accessor.
func (f *Fake) DeleteFile(
	_ context.Context,
	r host.Repository,
	path string,
	sha string,
	branch string,
	message string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("DeleteFile"); err != nil {
		return err
	}

	rp, err := f.lookup(r)
	if err != nil {
		return err
	}

	tip, ok := rp.branches[branch]
	if !ok {
		return fmt.Errorf(
			"branch %s: %w", branch, host.ErrNotFound,
		)
	}

	content := maps.Clone(f.trees[f.commits[tip].tree])

	cur, ok := content[path]
	if !ok {
		return fmt.Errorf("path %s: %w", path, host.ErrNotFound)
	}

	if BlobSHA(cur) != sha {
		return fmt.Errorf(
			"path %s: stale sha %s: %w",
			path, sha, host.ErrNonFastForward,
		)
	}

	delete(content, path)

	rp.branches[branch] = f.putCommit(commit{
		tree:   f.putTree(content),
		parent: tip,
		msg:    message,
	})

	return nil
}

// Compare implements host.Accessor.
func (f *Fake) Compare(
	_ context.Context,
	r host.Repository,
	base string,
	head string,
) (*host.Comparison, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("Compare"); err != nil {
		return nil, err
	}

	baseSHA, err := f.resolveIn(r, base)
	if err != nil {
		return nil, err
	}

	headSHA, err := f.resolveIn(r, head)
	if err != nil {
		return nil, err
	}

	baseAnc := f.ancestors(baseSHA)
	headAnc := f.ancestors(headSHA)

	cmp := host.Comparison{}

	for sha := range headAnc {
		if !baseAnc[sha] {
			cmp.AheadBy++
		}
	}

	for sha := range baseAnc {
		if !headAnc[sha] {
			cmp.BehindBy++
		}
	}

	return &cmp, nil
}

// CreatePullRequest implements host.Accessor.
func (f *Fake) CreatePullRequest(
	_ context.Context,
	r host.Repository,
	npr host.NewPullRequest,
) (*host.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("CreatePullRequest"); err != nil {
		return nil, err
	}

	base, err := f.lookup(r)
	if err != nil {
		return nil, err
	}

	if _, ok := base.branches[npr.Base]; !ok {
		return nil, fmt.Errorf(
			"base %s: %w", npr.Base, host.ErrNotFound,
		)
	}

	head, branch, err := f.headRepo(r, npr.Head)
	if err != nil {
		return nil, err
	}

	if _, ok := head.branches[branch]; !ok {
		return nil, fmt.Errorf(
			"head %s: %w", npr.Head, host.ErrNotFound,
		)
	}

	p := &pull{
		pr: host.PullRequest{
			Number:     len(f.pulls) + 1,
			URL:        fmt.Sprintf("fake://%s/pull/%d", base.meta.FullName(), len(f.pulls)+1),
			State:      "open",
			HeadBranch: branch,
			HeadRepo:   head.meta,
			BaseBranch: npr.Base,
			BaseRepo:   base.meta,
			Body:       npr.Body,
		},
		headRepo: key(head.meta.Owner, head.meta.Name),
	}
	f.pulls = append(f.pulls, p)

	pr := p.pr

	return &pr, nil
}

// GetPullRequest implements host.Accessor.
func (f *Fake) GetPullRequest(
	_ context.Context,
	_ host.Repository,
	number int,
) (*host.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("GetPullRequest"); err != nil {
		return nil, err
	}

	p, err := f.pull(number)
	if err != nil {
		return nil, err
	}

	pr := p.pr

	return &pr, nil
}

// ClosePullRequest implements host.Accessor.
func (f *Fake) ClosePullRequest(
	_ context.Context,
	_ host.Repository,
	number int,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("ClosePullRequest"); err != nil {
		return err
	}

	p, err := f.pull(number)
	if err != nil {
		return err
	}

	p.pr.State = "closed"

	return nil
}

// MergePullRequest implements host.Accessor. The base
// branch receives one commit carrying the head tree.
func (f *Fake) MergePullRequest(
	_ context.Context,
	_ host.Repository,
	number int,
	message string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("MergePullRequest"); err != nil {
		return err
	}

	p, err := f.pull(number)
	if err != nil {
		return err
	}

	head, ok := f.repos[p.headRepo]
	if !ok {
		return fmt.Errorf(
			"head repository: %w", host.ErrNotFound,
		)
	}

	base := f.repos[key(p.pr.BaseRepo.Owner, p.pr.BaseRepo.Name)]
	headTip := head.branches[p.pr.HeadBranch]

	base.branches[p.pr.BaseBranch] = f.putCommit(commit{
		tree:   f.commits[headTip].tree,
		parent: base.branches[p.pr.BaseBranch],
		msg:    message,
	})
	p.pr.State = "closed"
	p.pr.Merged = true

	return nil
}

func key(owner string, name string) string {
	return strings.ToLower(owner + "/" + name)
}

// enter counts the call and pops a queued failure. Must be
// called with f.mu held.
func (f *Fake) enter(method string) error {
	f.calls[method]++

	queue := f.fail[method]
	if len(queue) == 0 {
		return nil
	}

	err := queue[0]
	f.fail[method] = queue[1:]

	return err
}

func (f *Fake) id(kind string) string {
	f.seq++
	h := sha1.New() //nolint:gosec // git object ids are sha1
	fmt.Fprintf(h, "%s:%d", kind, f.seq)

	return hex.EncodeToString(h.Sum(nil))
}

func (f *Fake) putTree(content map[string]string) string {
	sha := f.id("tree")
	f.trees[sha] = content

	return sha
}

func (f *Fake) putCommit(c commit) string {
	sha := f.id("commit")
	f.commits[sha] = c

	return sha
}

func (f *Fake) putRepo(meta host.Repository) *repo {
	f.nextID++
	meta.ID = f.nextID

	r := &repo{meta: meta, branches: make(map[string]string)}
	f.repos[key(meta.Owner, meta.Name)] = r

	return r
}

func (f *Fake) fork(
	upstream host.Repository,
	owner string,
) (*repo, bool) {
	if r, ok := f.repos[key(owner, upstream.Name)]; ok {
		return r, false
	}

	up := f.repos[key(upstream.Owner, upstream.Name)]
	parent := up.meta

	r := f.putRepo(host.Repository{
		Owner:         owner,
		Name:          parent.Name,
		DefaultBranch: parent.DefaultBranch,
		Parent:        &parent,
	})
	r.branches[parent.DefaultBranch] = up.branches[parent.DefaultBranch]

	return r, true
}

func (f *Fake) lookup(r host.Repository) (*repo, error) {
	rp, ok := f.repos[key(r.Owner, r.Name)]
	if !ok {
		return nil, fmt.Errorf(
			"repository %s: %w", r.FullName(), host.ErrNotFound,
		)
	}

	return rp, nil
}

func (f *Fake) resolve(rp *repo, ref string) (string, error) {
	if ref == "" {
		ref = rp.meta.DefaultBranch
	}

	if sha, ok := rp.branches[ref]; ok {
		return sha, nil
	}

	if _, ok := f.commits[ref]; ok {
		return ref, nil
	}

	return "", fmt.Errorf("ref %s: %w", ref, host.ErrNotFound)
}

// resolveIn resolves "branch" in r or "owner:branch" in
// owner's repository of the same network.
func (f *Fake) resolveIn(r host.Repository, ref string) (string, error) {
	rp, branch, err := f.headRepo(r, ref)
	if err != nil {
		return "", err
	}

	return f.resolve(rp, branch)
}

func (f *Fake) headRepo(
	r host.Repository,
	ref string,
) (*repo, string, error) {
	owner, branch, cross := strings.Cut(ref, ":")
	if !cross {
		rp, err := f.lookup(r)

		return rp, ref, err
	}

	for _, rp := range f.repos {
		if !strings.EqualFold(rp.meta.Owner, owner) {
			continue
		}

		if rp.meta.SameAs(r) ||
			(rp.meta.Parent != nil && rp.meta.Parent.SameAs(r)) {
			return rp, branch, nil
		}
	}

	return nil, "", fmt.Errorf(
		"repository of %s: %w", owner, host.ErrNotFound,
	)
}

func (f *Fake) snapshot(
	r host.Repository,
	ref string,
) (map[string]string, error) {
	rp, err := f.lookup(r)
	if err != nil {
		return nil, err
	}

	sha, err := f.resolve(rp, ref)
	if err != nil {
		return nil, err
	}

	return f.trees[f.commits[sha].tree], nil
}

func (f *Fake) ancestors(sha string) map[string]bool {
	out := make(map[string]bool)

	for sha != "" && !out[sha] {
		out[sha] = true
		sha = f.commits[sha].parent
	}

	return out
}

func (f *Fake) pull(number int) (*pull, error) {
	if number < 1 || number > len(f.pulls) {
		return nil, fmt.Errorf(
			"pull request %d: %w", number, host.ErrNotFound,
		)
	}

	return f.pulls[number-1], nil
}

package locator

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/byte4ever/manifest_pr/manifests/host"
	"github.com/byte4ever/manifest_pr/manifests/version"
)

// DefaultRoot is the manifest directory of the repository.
const DefaultRoot = "manifests"

// latest selects the greatest version when passed to
// ResolveVersion.
const latest = "latest"

// Config holds the settings of a Locator.
type Config struct {
	// Accessor reads the repository.
	Accessor host.Accessor
	// Repository is the repository to search.
	Repository host.Repository
	// Ref is the branch or commit to read. Empty means
	// the default branch.
	Ref string
	// Root is the manifest directory. Defaults to
	// DefaultRoot.
	Root string
	// Layout places packages under Root. The zero value
	// is Partitioned.
	Layout Layout
}

// Locator finds packages and versions in a manifest
// repository.
type Locator struct {
	accessor host.Accessor
	repo     host.Repository
	ref      string
	root     string
	layout   Layout
}

// Location is a located package, and once resolved, one of
// its versions.
type Location struct {
	// PackageID is the identifier in its stored casing.
	PackageID string
	// PackageDir is the package directory.
	PackageDir string
	// Version is the version directory name, set by
	// ResolveVersion.
	Version string
	// VersionDir is the version directory, set by
	// ResolveVersion.
	VersionDir string
}

// New validates cfg and returns a Locator.
func New(cfg Config) (*Locator, error) {
	const errCtx = "creating package locator"

	if cfg.Accessor == nil {
		return nil, fmt.Errorf(
			"%s: accessor must be set", errCtx,
		)
	}

	if cfg.Repository.Owner == "" || cfg.Repository.Name == "" {
		return nil, fmt.Errorf(
			"%s: repository must be set", errCtx,
		)
	}

	root := strings.Trim(cfg.Root, "/")
	if root == "" {
		root = DefaultRoot
	}

	return &Locator{
		accessor: cfg.Accessor,
		repo:     cfg.Repository,
		ref:      cfg.Ref,
		root:     root,
		layout:   cfg.Layout,
	}, nil
}

// PartitionDir returns the directory holding every package
// whose identifier starts like packageID:
// <root>/<lower-cased first letter>.
func PartitionDir(root string, packageID string) string {
	first, _ := utf8.DecodeRuneInString(packageID)

	return path.Join(root, string(unicode.ToLower(first)))
}

// PackageDir returns the directory of an exactly-cased
// packageID in the Partitioned layout.
func PackageDir(root string, packageID string) string {
	return Partitioned.PackageDir(root, packageID)
}

// Locate finds packageID matching each dotted segment
// case-insensitively, one directory level at a time.
func (l *Locator) Locate(
	ctx context.Context,
	packageID string,
) (*Location, error) {
	const errCtx = "locating package"

	segments, err := splitID(packageID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	dir := l.layout.Dir(l.root, packageID)
	exact := make([]string, 0, len(segments))

	for i := 0; i < len(segments); i++ {
		entries, err := l.accessor.ListDirectory(
			ctx, l.repo, dir, l.ref,
		)
		if host.IsNotFound(err) {
			return nil, &NotFoundError{PackageID: packageID}
		}

		if err != nil {
			return nil, fmt.Errorf(
				"%s: list %s: %w", errCtx, dir, err,
			)
		}

		name, err := matchDir(entries, segments[i])
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %s: segment %q: %w",
				errCtx, packageID, segments[i], err,
			)
		}

		if name == "" {
			return nil, &NotFoundError{PackageID: packageID}
		}

		exact = append(exact, name)
		dir = path.Join(dir, name)
	}

	loc := &Location{
		PackageID:  strings.Join(exact, "."),
		PackageDir: dir,
	}

	slog.Debug(
		"located package",
		"query", packageID,
		"package", loc.PackageID,
		"dir", loc.PackageDir,
	)

	return loc, nil
}

// ResolveVersion picks a version directory of loc. An
// empty ver or "latest" selects the numerically greatest
// version; any other ver is matched case-insensitively.
func (l *Locator) ResolveVersion(
	ctx context.Context,
	loc Location,
	ver string,
) (*Location, error) {
	const errCtx = "resolving package version"

	entries, err := l.accessor.ListDirectory(
		ctx, l.repo, loc.PackageDir, l.ref,
	)
	if host.IsNotFound(err) {
		return nil, &NotFoundError{PackageID: loc.PackageID}
	}

	if err != nil {
		return nil, fmt.Errorf(
			"%s: list %s: %w", errCtx, loc.PackageDir, err,
		)
	}

	ver = strings.TrimSpace(ver)

	if ver != "" && !strings.EqualFold(ver, latest) {
		name, err := matchDir(entries, ver)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %s %s: %w",
				errCtx, loc.PackageID, ver, err,
			)
		}

		if name == "" {
			return nil, &NotFoundError{
				PackageID: loc.PackageID,
				Version:   ver,
			}
		}

		return withVersion(loc, name), nil
	}

	return l.latestVersion(ctx, loc, entries)
}

// latestVersion tries directories greatest first and skips
// those holding no files: they are nested child packages,
// not versions.
func (l *Locator) latestVersion(
	ctx context.Context,
	loc Location,
	entries []host.ContentEntry,
) (*Location, error) {
	const errCtx = "resolving latest version"

	var names []string

	for _, e := range entries {
		if e.Type == host.EntryDir {
			names = append(names, e.Name)
		}
	}

	version.SortDescending(names)

	for _, name := range names {
		dir := path.Join(loc.PackageDir, name)

		children, err := l.accessor.ListDirectory(
			ctx, l.repo, dir, l.ref,
		)
		if err != nil && !host.IsNotFound(err) {
			return nil, fmt.Errorf(
				"%s: list %s: %w", errCtx, dir, err,
			)
		}

		if hasFile(children) {
			return withVersion(loc, name), nil
		}

		slog.Debug("skipping non-version directory", "dir", dir)
	}

	return nil, &NotFoundError{
		PackageID: loc.PackageID,
		Version:   latest,
	}
}

// ReadManifests returns the content of every file in the
// resolved version directory of loc, keyed by path.
func (l *Locator) ReadManifests(
	ctx context.Context,
	loc Location,
) (map[string]string, error) {
	const errCtx = "reading manifests"

	if loc.VersionDir == "" {
		return nil, fmt.Errorf(
			"%s: %s: version not resolved",
			errCtx, loc.PackageID,
		)
	}

	entries, err := l.accessor.ListDirectory(
		ctx, l.repo, loc.VersionDir, l.ref,
	)
	if host.IsNotFound(err) {
		return nil, &NotFoundError{
			PackageID: loc.PackageID,
			Version:   loc.Version,
		}
	}

	if err != nil {
		return nil, fmt.Errorf(
			"%s: list %s: %w", errCtx, loc.VersionDir, err,
		)
	}

	out := make(map[string]string, len(entries))

	for _, e := range entries {
		if e.Type != host.EntryFile {
			continue
		}

		content, err := l.accessor.GetFileContent(
			ctx, l.repo, e.Path, l.ref,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: read %s: %w", errCtx, e.Path, err,
			)
		}

		out[e.Path] = content
	}

	return out, nil
}

func splitID(packageID string) ([]string, error) {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return nil, ErrInvalidID
	}

	segments := strings.Split(packageID, ".")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf(
				"%w: %q", ErrInvalidID, packageID,
			)
		}
	}

	return segments, nil
}

// matchDir returns the stored name of the only directory
// equal to want ignoring case, or "" when none is.
func matchDir(
	entries []host.ContentEntry,
	want string,
) (string, error) {
	var found []string

	for _, e := range entries {
		if e.Type == host.EntryDir &&
			strings.EqualFold(e.Name, want) {
			found = append(found, e.Name)
		}
	}

	switch len(found) {
	case 0:
		return "", nil
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf(
			"%w: %s", ErrAmbiguous, strings.Join(found, ", "),
		)
	}
}

func hasFile(entries []host.ContentEntry) bool {
	for _, e := range entries {
		if e.Type == host.EntryFile {
			return true
		}
	}

	return false
}

func withVersion(loc Location, name string) *Location {
	loc.Version = name
	loc.VersionDir = path.Join(loc.PackageDir, name)

	return &loc
}

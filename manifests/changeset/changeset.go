package changeset

import (
	"errors"
	"slices"
)

// ErrEmpty is returned when a changeset holds no files.
var ErrEmpty = errors.New("changeset has no files")

// File is one file of a changeset. Path is relative to the
// repository root.
type File struct {
	Path    string
	Content string
}

// Changeset is an ordered set of files describing one
// package version.
type Changeset struct {
	PackageID string
	Version   string
	Files     []File
}

// Add sets the content of path. A path already present
// keeps its position.
func (c *Changeset) Add(path string, content string) {
	i := slices.IndexFunc(c.Files, func(f File) bool {
		return f.Path == path
	})
	if i >= 0 {
		c.Files[i].Content = content

		return
	}

	c.Files = append(c.Files, File{Path: path, Content: content})
}

// Paths returns the file paths in order.
func (c *Changeset) Paths() []string {
	paths := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		paths = append(paths, f.Path)
	}

	return paths
}

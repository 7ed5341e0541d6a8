package locator

import (
	"fmt"
	"path"
	"strings"
)

// Layout selects where package directories sit under the
// manifest root.
type Layout int

const (
	// Partitioned keeps packages under
	// <root>/<lower-cased first letter>, as winget-pkgs
	// does.
	Partitioned Layout = iota
	// Flat keeps packages directly under <root>.
	Flat
)

// ParseLayout maps "partitioned" (or "") and "flat" to a
// Layout.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "partitioned":
		return Partitioned, nil
	case "flat":
		return Flat, nil
	default:
		return Partitioned, fmt.Errorf("unknown layout %q", s)
	}
}

// String returns the name ParseLayout accepts.
func (lay Layout) String() string {
	if lay == Flat {
		return "flat"
	}

	return "partitioned"
}

// Dir returns the directory holding the first segment of
// packageID.
func (lay Layout) Dir(root string, packageID string) string {
	if lay == Flat {
		return root
	}

	return PartitionDir(root, packageID)
}

// PackageDir returns the directory of an exactly-cased
// packageID.
func (lay Layout) PackageDir(root string, packageID string) string {
	return path.Join(
		append(
			[]string{lay.Dir(root, packageID)},
			strings.Split(packageID, ".")...,
		)...,
	)
}

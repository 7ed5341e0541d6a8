package changeset

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/byte4ever/manifest_pr/manifests/locator"
)

// manifestHeader holds the identity fields every manifest
// file carries.
type manifestHeader struct {
	PackageIdentifier string `yaml:"PackageIdentifier"`
	PackageVersion    string `yaml:"PackageVersion"`
}

// LoadDir reads every .yaml/.yml file of dir into a
// Changeset. All files must declare the same
// PackageIdentifier and PackageVersion; each lands at
// <package dir under root>/<version>/<file name>, the
// package dir following layout.
func LoadDir(
	dir string,
	root string,
	layout locator.Layout,
) (*Changeset, error) {
	const errCtx = "loading manifest directory"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var names []string

	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.Type().IsRegular() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf(
			"%s: %s: %w", errCtx, dir, ErrEmpty,
		)
	}

	sort.Strings(names)

	var (
		id       manifestHeader
		contents = make(map[string]string, len(names))
	)

	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // dir is caller-provided
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		var hdr manifestHeader
		if err := yaml.Unmarshal(raw, &hdr); err != nil {
			return nil, fmt.Errorf(
				"%s: parse %s: %w", errCtx, name, err,
			)
		}

		if hdr.PackageIdentifier == "" || hdr.PackageVersion == "" {
			return nil, fmt.Errorf(
				"%s: %s: PackageIdentifier and "+
					"PackageVersion must be set",
				errCtx, name,
			)
		}

		if id.PackageIdentifier == "" {
			id = hdr
		} else if hdr != id {
			return nil, fmt.Errorf(
				"%s: %s declares %s %s, expected %s %s",
				errCtx, name,
				hdr.PackageIdentifier, hdr.PackageVersion,
				id.PackageIdentifier, id.PackageVersion,
			)
		}

		contents[name] = string(raw)
	}

	verDir := path.Join(
		layout.PackageDir(root, id.PackageIdentifier),
		id.PackageVersion,
	)

	cs := &Changeset{
		PackageID: id.PackageIdentifier,
		Version:   id.PackageVersion,
	}

	for _, name := range names {
		cs.Add(path.Join(verDir, name), contents[name])
	}

	return cs, nil
}

package locator

import (
	"errors"
	"fmt"

	"github.com/byte4ever/manifest_pr/manifests/host"
)

var (
	// ErrAmbiguous is returned when a segment matches more
	// than one directory differing only by case.
	ErrAmbiguous = errors.New("ambiguous case-insensitive match")

	// ErrInvalidID is returned for empty identifiers or
	// identifiers with empty segments.
	ErrInvalidID = errors.New("invalid package identifier")
)

// NotFoundError reports a package or package version that
// does not exist in the repository.
type NotFoundError struct {
	PackageID string
	Version   string
}

func (e *NotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf(
			"package %s version %s not found",
			e.PackageID, e.Version,
		)
	}

	return fmt.Sprintf("package %s not found", e.PackageID)
}

// Unwrap makes NotFoundError match host.ErrNotFound.
func (e *NotFoundError) Unwrap() error {
	return host.ErrNotFound
}

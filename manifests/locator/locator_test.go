package locator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/manifest_pr/manifests/host"
	"github.com/byte4ever/manifest_pr/manifests/host/hosttest"
	"github.com/byte4ever/manifest_pr/manifests/locator"
)

func newLocator(
	t *testing.T,
	files map[string]string,
) (*locator.Locator, *hosttest.Fake) {
	t.Helper()

	fake := hosttest.NewFake("me")
	repo := fake.AddRepository("org", "pkgs", "main", files)

	loc, err := locator.New(locator.Config{
		Accessor:   fake,
		Repository: repo,
	})
	require.NoError(t, err)

	return loc, fake
}

func TestNew_missing_accessor(t *testing.T) {
	t.Parallel()

	loc, err := locator.New(locator.Config{
		Repository: host.Repository{Owner: "o", Name: "r"},
	})

	assert.Nil(t, loc)
	assert.ErrorContains(t, err, "accessor must be set")
}

func TestNew_missing_repository(t *testing.T) {
	t.Parallel()

	loc, err := locator.New(locator.Config{
		Accessor: hosttest.NewFake("me"),
	})

	assert.Nil(t, loc)
	assert.ErrorContains(t, err, "repository must be set")
}

func TestLocate_case_insensitive_returns_stored_casing(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{
		"manifests/p/Publisher/App/1.0.0/Publisher.App.yaml": "a",
	})

	for _, query := range []string{
		"publisher.app", "PUBLISHER.APP", "Publisher.App",
	} {
		got, err := loc.Locate(context.Background(), query)
		require.NoError(t, err, query)

		assert.Equal(t, "Publisher.App", got.PackageID)
		assert.True(
			t, strings.HasSuffix(got.PackageDir, "/Publisher/App"),
			got.PackageDir,
		)
	}
}

func TestLocate_missing_segment(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{
		"manifests/p/Publisher/App/1.0.0/Publisher.App.yaml": "a",
	})

	_, err := loc.Locate(context.Background(), "publisher.other")

	var nf *locator.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "publisher.other", nf.PackageID)
	assert.ErrorIs(t, err, host.ErrNotFound)
}

func TestLocate_missing_partition(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{
		"manifests/p/Publisher/App/1.0.0/Publisher.App.yaml": "a",
	})

	_, err := loc.Locate(context.Background(), "zeta.app")

	assert.ErrorIs(t, err, host.ErrNotFound)
}

func TestLocate_matches_directories_only(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{
		"manifests/p/Publisher/App":                          "not a dir",
		"manifests/p/Publisher/Tool/1.0/Publisher.Tool.yaml": "t",
	})

	_, err := loc.Locate(context.Background(), "publisher.app")

	assert.ErrorIs(t, err, host.ErrNotFound)
}

func TestLocate_ambiguous_case(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{
		"manifests/p/Publisher/App/1.0/x.yaml": "a",
		"manifests/p/Publisher/APP/1.0/x.yaml": "b",
	})

	_, err := loc.Locate(context.Background(), "publisher.app")

	assert.ErrorIs(t, err, locator.ErrAmbiguous)
}

func TestLocate_invalid_id(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{"x": "y"})

	for _, id := range []string{"", "  ", "a..b", "a."} {
		_, err := loc.Locate(context.Background(), id)
		assert.ErrorIs(t, err, locator.ErrInvalidID, id)
	}
}

func TestLocate_host_failure_is_wrapped(t *testing.T) {
	t.Parallel()

	loc, fake := newLocator(t, map[string]string{"x": "y"})
	fake.FailNext("ListDirectory", host.ErrTransient)

	_, err := loc.Locate(context.Background(), "publisher.app")

	assert.ErrorIs(t, err, host.ErrTransient)
	assert.False(t, errors.Is(err, host.ErrNotFound))
}

func TestResolveVersion_latest_is_numeric(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{
		"manifests/p/Publisher/App/1.9.0/a.yaml":  "a",
		"manifests/p/Publisher/App/1.10.0/a.yaml": "a",
		"manifests/p/Publisher/App/2.0.0/a.yaml":  "a",
	})

	pkg, err := loc.Locate(context.Background(), "publisher.app")
	require.NoError(t, err)

	for _, ver := range []string{"", "latest", "LATEST"} {
		got, err := loc.ResolveVersion(context.Background(), *pkg, ver)
		require.NoError(t, err)

		assert.Equal(t, "2.0.0", got.Version)
		assert.Equal(
			t, "manifests/p/Publisher/App/2.0.0", got.VersionDir,
		)
	}
}

func TestResolveVersion_skips_child_packages(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{
		"manifests/p/Publisher/App/1.0/a.yaml":      "a",
		"manifests/p/Publisher/App/3/Beta/a.yaml":   "b",
		"manifests/p/Publisher/App/Beta/1.0/a.yaml": "b",
	})

	pkg, err := loc.Locate(context.Background(), "publisher.app")
	require.NoError(t, err)

	got, err := loc.ResolveVersion(context.Background(), *pkg, "")
	require.NoError(t, err)

	assert.Equal(t, "1.0", got.Version)
}

func TestResolveVersion_exact_case_insensitive(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{
		"manifests/p/Publisher/App/1.0.0-Beta/a.yaml": "a",
		"manifests/p/Publisher/App/2.0.0/a.yaml":      "a",
	})

	pkg, err := loc.Locate(context.Background(), "publisher.app")
	require.NoError(t, err)

	got, err := loc.ResolveVersion(
		context.Background(), *pkg, "1.0.0-beta",
	)
	require.NoError(t, err)

	assert.Equal(t, "1.0.0-Beta", got.Version)
	assert.Equal(t, "Publisher.App", got.PackageID)
}

func TestResolveVersion_missing_version(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{
		"manifests/p/Publisher/App/1.0.0/a.yaml": "a",
	})

	pkg, err := loc.Locate(context.Background(), "publisher.app")
	require.NoError(t, err)

	_, err = loc.ResolveVersion(context.Background(), *pkg, "9.9")

	var nf *locator.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "9.9", nf.Version)
	assert.ErrorContains(t, err, "version 9.9 not found")
}

func TestReadManifests(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{
		"manifests/p/Publisher/App/1.0.0/Publisher.App.yaml":           "v",
		"manifests/p/Publisher/App/1.0.0/Publisher.App.installer.yaml": "i",
	})

	pkg, err := loc.Locate(context.Background(), "publisher.app")
	require.NoError(t, err)

	ver, err := loc.ResolveVersion(context.Background(), *pkg, "1.0.0")
	require.NoError(t, err)

	got, err := loc.ReadManifests(context.Background(), *ver)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"manifests/p/Publisher/App/1.0.0/Publisher.App.yaml":           "v",
		"manifests/p/Publisher/App/1.0.0/Publisher.App.installer.yaml": "i",
	}, got)
}

func TestReadManifests_unresolved(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{"x": "y"})

	_, err := loc.ReadManifests(
		context.Background(),
		locator.Location{PackageID: "A.B"},
	)

	assert.ErrorContains(t, err, "version not resolved")
}

func TestPackageDir(t *testing.T) {
	t.Parallel()

	assert.Equal(
		t,
		"manifests/m/Microsoft/Edge/Beta",
		locator.PackageDir("manifests", "Microsoft.Edge.Beta"),
	)
	assert.Equal(t, "manifests/m", locator.PartitionDir("manifests", "microsoft"))
}

func TestLayout_PackageDir(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"manifests/m/Microsoft/Edge",
		locator.Partitioned.PackageDir("manifests", "Microsoft.Edge"),
	)
	assert.Equal(t,
		"manifests/Microsoft/Edge",
		locator.Flat.PackageDir("manifests", "Microsoft.Edge"),
	)
}

func TestParseLayout(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]locator.Layout{
		"":            locator.Partitioned,
		"partitioned": locator.Partitioned,
		"Flat":        locator.Flat,
	} {
		got, err := locator.ParseLayout(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := locator.ParseLayout("nested")
	assert.ErrorContains(t, err, "unknown layout")
}

func TestLocate_flat_layout_round_trip(t *testing.T) {
	t.Parallel()

	fake := hosttest.NewFake("me")
	repo := fake.AddRepository("org", "pkgs", "main", map[string]string{
		"manifests/Publisher/App/1.0.0.yaml": "PackageIdentifier: Publisher.App\n",
	})

	loc, err := locator.New(locator.Config{
		Accessor:   fake,
		Repository: repo,
		Layout:     locator.Flat,
	})
	require.NoError(t, err)

	for _, id := range []string{"publisher.app", "PUBLISHER.APP", "Publisher.App"} {
		got, err := loc.Locate(context.Background(), id)
		require.NoError(t, err, id)

		assert.Equal(t, "Publisher.App", got.PackageID)
		assert.True(t, strings.HasSuffix(got.PackageDir, "/Publisher/App"), got.PackageDir)
	}
}

func TestLocate_partitioned_layout_misses_flat_tree(t *testing.T) {
	t.Parallel()

	loc, _ := newLocator(t, map[string]string{
		"manifests/Publisher/App/1.0.0.yaml": "PackageIdentifier: Publisher.App\n",
	})

	_, err := loc.Locate(context.Background(), "publisher.app")

	var nf *locator.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "publisher.app", nf.PackageID)
}

package changeset_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/manifest_pr/manifests/changeset"
	"github.com/byte4ever/manifest_pr/manifests/host"
	"github.com/byte4ever/manifest_pr/manifests/host/hosttest"
)

const oldDir = "manifests/p/Pub/A/1.0.0"

func newRepo(t *testing.T) (*hosttest.Fake, host.Repository) {
	t.Helper()

	fake := hosttest.NewFake("me")
	repo := fake.AddRepository("org", "pkgs", "main", map[string]string{
		"README.md":                    "readme",
		oldDir + "/A.yaml":             "old",
		oldDir + "/A.installer.yaml":   "old installer",
		"manifests/p/Pub/B/1.0/B.yaml": "b",
	})

	return fake, repo
}

func tip(t *testing.T, fake *hosttest.Fake, repo host.Repository, branch string) string {
	t.Helper()

	ref, err := fake.GetReference(context.Background(), repo, branch)
	require.NoError(t, err)

	return ref.SHA
}

func TestBuild_one_tree_one_commit_no_ref_move(t *testing.T) {
	t.Parallel()

	fake, repo := newRepo(t)
	base := tip(t, fake, repo, "main")

	cs := changeset.Changeset{}
	cs.Add("manifests/p/Pub/A/2.0.0/A.yaml", "new")
	cs.Add("manifests/p/Pub/A/2.0.0/A.installer.yaml", "new installer")

	got, err := changeset.NewBuilder(fake).Build(
		context.Background(), repo, base, cs, "Pub.A version 2.0.0",
	)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.Calls("CreateTree"))
	assert.Equal(t, 1, fake.Calls("CreateCommit"))
	assert.Equal(t, 0, fake.Calls("UpdateReference"))
	assert.Equal(t, base, tip(t, fake, repo, "main"))

	assert.Equal(t, base, got.BaseSHA)
	assert.Equal(t, base, fake.Parent(got.SHA))
	assert.Equal(t, "Pub.A version 2.0.0", fake.CommitMessage(got.SHA))

	files, err := fake.Files(repo, got.SHA)
	require.NoError(t, err)
	assert.Equal(t, "new", files["manifests/p/Pub/A/2.0.0/A.yaml"])
	assert.Equal(t, "old", files[oldDir+"/A.yaml"])
	assert.Equal(t, "readme", files["README.md"])
}

func TestBuild_empty(t *testing.T) {
	t.Parallel()

	fake, repo := newRepo(t)

	_, err := changeset.NewBuilder(fake).Build(
		context.Background(), repo, tip(t, fake, repo, "main"),
		changeset.Changeset{}, "msg",
	)

	assert.ErrorIs(t, err, changeset.ErrEmpty)
	assert.Equal(t, 0, fake.Calls("CreateTree"))
}

func TestBuild_tree_failure_creates_no_commit(t *testing.T) {
	t.Parallel()

	fake, repo := newRepo(t)
	fake.FailNext("CreateTree", host.ErrTransient)

	cs := changeset.Changeset{}
	cs.Add("x.yaml", "x")

	_, err := changeset.NewBuilder(fake).Build(
		context.Background(), repo, tip(t, fake, repo, "main"), cs, "m",
	)

	assert.ErrorIs(t, err, host.ErrTransient)
	assert.Equal(t, 0, fake.Calls("CreateCommit"))
}

func TestDeleteDir_then_build_replaces_version(t *testing.T) {
	t.Parallel()

	fake, repo := newRepo(t)
	_, err := fake.CreateReference(
		context.Background(), repo, "work", tip(t, fake, repo, "main"),
	)
	require.NoError(t, err)

	b := changeset.NewBuilder(fake)

	n, err := b.DeleteDir(
		context.Background(), repo, "work", oldDir, "remove 1.0.0",
	)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, fake.Calls("DeleteFile"))

	cs := changeset.Changeset{}
	cs.Add("manifests/p/Pub/A/2.0.0/A.yaml", "new")

	got, err := b.Build(
		context.Background(), repo, tip(t, fake, repo, "work"), cs, "m",
	)
	require.NoError(t, err)

	files, err := fake.Files(repo, got.SHA)
	require.NoError(t, err)

	assert.NotContains(t, files, oldDir+"/A.yaml")
	assert.NotContains(t, files, oldDir+"/A.installer.yaml")
	assert.Contains(t, files, "manifests/p/Pub/A/2.0.0/A.yaml")
	assert.Contains(t, files, "manifests/p/Pub/B/1.0/B.yaml")

	mainFiles, err := fake.Files(repo, "main")
	require.NoError(t, err)
	assert.Contains(t, mainFiles, oldDir+"/A.yaml")
}

func TestDeleteDir_missing(t *testing.T) {
	t.Parallel()

	fake, repo := newRepo(t)

	_, err := changeset.NewBuilder(fake).DeleteDir(
		context.Background(), repo, "main", "manifests/p/Pub/A/9.9", "m",
	)

	assert.ErrorIs(t, err, host.ErrNotFound)
}

func TestChangeset_Add_keeps_order(t *testing.T) {
	t.Parallel()

	cs := changeset.Changeset{}
	cs.Add("b", "1")
	cs.Add("a", "2")
	cs.Add("b", "3")

	assert.Equal(t, []string{"b", "a"}, cs.Paths())
	assert.Equal(t, "3", cs.Files[0].Content)
}

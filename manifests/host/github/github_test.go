package github_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghacc "github.com/byte4ever/manifest_pr/manifests/host/github"
)

func TestNewAccessor_token(t *testing.T) {
	t.Parallel()

	acc, err := ghacc.NewAccessor(ghacc.Config{
		Token: "tok",
	})

	require.NoError(t, err)
	assert.NotNil(t, acc)
}

func TestNewAccessor_missing_credentials(t *testing.T) {
	t.Parallel()

	acc, err := ghacc.NewAccessor(ghacc.Config{
		Owner: "org",
		Repo:  "pkgs",
	})

	assert.Nil(t, acc)
	assert.ErrorContains(t, err, "access token or app id")
}

func TestNewAccessor_app_missing_key(t *testing.T) {
	t.Parallel()

	acc, err := ghacc.NewAccessor(ghacc.Config{
		AppID:          12,
		InstallationID: 34,
	})

	assert.Nil(t, acc)
	assert.ErrorContains(t, err, "private key must be set")
}

func TestNewAccessor_app_missing_installation(t *testing.T) {
	t.Parallel()

	acc, err := ghacc.NewAccessor(ghacc.Config{
		AppID:         12,
		PrivateKeyPEM: privateKeyPEM(t),
	})

	assert.Nil(t, acc)
	assert.ErrorContains(t, err, "installation id or repo owner")
}

func TestNewAccessor_app_bad_key(t *testing.T) {
	t.Parallel()

	acc, err := ghacc.NewAccessor(ghacc.Config{
		AppID:          12,
		InstallationID: 34,
		PrivateKeyPEM:  []byte("not a key"),
	})

	assert.Nil(t, acc)
	assert.ErrorContains(t, err, "parsing app private key")
}

func TestNewAccessor_app(t *testing.T) {
	t.Parallel()

	acc, err := ghacc.NewAccessor(ghacc.Config{
		Owner:         "org",
		Repo:          "pkgs",
		AppID:         12,
		PrivateKeyPEM: privateKeyPEM(t),
	})

	require.NoError(t, err)
	assert.NotNil(t, acc)
}

func TestNewAccessor_enterprise(t *testing.T) {
	t.Parallel()

	acc, err := ghacc.NewAccessor(ghacc.Config{
		Token:          "tok",
		EnterpriseHost: "git.corp.example.com",
	})

	require.NoError(t, err)
	assert.NotNil(t, acc)
}

func TestNewAccessor_bad_base_url(t *testing.T) {
	t.Parallel()

	acc, err := ghacc.NewAccessor(ghacc.Config{
		Token:   "tok",
		BaseURL: "://nope",
	})

	assert.Nil(t, acc)
	assert.ErrorContains(t, err, "base url")
}

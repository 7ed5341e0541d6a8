package config_test

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/manifest_pr/manifests/branchtx"
	"github.com/byte4ever/manifest_pr/manifests/config"
	"github.com/byte4ever/manifest_pr/manifests/host"
	"github.com/byte4ever/manifest_pr/manifests/host/hosttest"
	"github.com/byte4ever/manifest_pr/manifests/locator"
)

const settingsYAML = `
upstream:
  owner: org
  name: pkgs
submitToFork: true
root: manifests
layout: flat
templatePath: .github/pr.md
titleTemplate: "New {PackageIdentifier} {PackageVersion}"
github:
  token: file-token
  appId: 7
  privateKeyPath: /keys/app.pem
  enterpriseHost: git.corp.example.com
retry:
  attempts: 5
  interval: 250ms
`

func files(m map[string]string) func(string) ([]byte, error) {
	return func(name string) ([]byte, error) {
		v, ok := m[name]
		if !ok {
			return nil, fs.ErrNotExist
		}

		return []byte(v), nil
	}
}

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	l := config.Loader{
		Getenv:   env(nil),
		ReadFile: files(map[string]string{"s.yaml": settingsYAML}),
	}

	s, err := l.Load("s.yaml")
	require.NoError(t, err)

	assert.Equal(t, config.Upstream{Owner: "org", Name: "pkgs"}, s.Upstream)
	assert.True(t, s.SubmitToFork)
	assert.Equal(t, "manifests", s.Root)
	assert.Equal(t, "flat", s.Layout)
	assert.Equal(t, ".github/pr.md", s.TemplatePath)
	assert.Equal(t, "New {PackageIdentifier} {PackageVersion}", s.TitleTemplate)
	assert.Equal(t, "file-token", s.GitHub.Token)
	assert.Equal(t, int64(7), s.GitHub.AppID)
	assert.Equal(t, "/keys/app.pem", s.GitHub.PrivateKeyPath)
	assert.Equal(t, "git.corp.example.com", s.GitHub.EnterpriseHost)
	assert.Equal(t, config.Retry{Attempts: 5, Interval: "250ms"}, s.Retry)
}

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	l := config.Loader{
		Getenv: env(map[string]string{
			config.EnvUpstream: "org/pkgs",
			config.EnvToken:    "env-token",
		}),
		ReadFile: files(nil),
	}

	s, err := l.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.Upstream{Owner: "org", Name: "pkgs"}, s.Upstream)
	assert.Equal(t, "env-token", s.GitHub.Token)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Parallel()

	l := config.Loader{
		Getenv: env(map[string]string{
			config.EnvToken:          "env-token",
			config.EnvAppID:          "99",
			config.EnvInstallationID: "42",
			config.EnvPrivateKeyPath: "/env/key.pem",
			config.EnvUpstream:       "other/repo",
		}),
		ReadFile: files(map[string]string{"s.yaml": settingsYAML}),
	}

	s, err := l.Load("s.yaml")
	require.NoError(t, err)

	assert.Equal(t, "env-token", s.GitHub.Token)
	assert.Equal(t, int64(99), s.GitHub.AppID)
	assert.Equal(t, int64(42), s.GitHub.InstallationID)
	assert.Equal(t, "/env/key.pem", s.GitHub.PrivateKeyPath)
	assert.Equal(t, config.Upstream{Owner: "other", Name: "repo"}, s.Upstream)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		env  map[string]string
		want string
	}{
		{
			name: "missing file",
			path: "missing.yaml",
			want: "loading settings",
		},
		{
			name: "malformed file",
			path: "bad.yaml",
			want: "decode bad.yaml",
		},
		{
			name: "app id",
			env:  map[string]string{config.EnvAppID: "abc"},
			want: config.EnvAppID,
		},
		{
			name: "installation id",
			env:  map[string]string{config.EnvInstallationID: "1.5"},
			want: config.EnvInstallationID,
		},
		{
			name: "upstream",
			env:  map[string]string{config.EnvUpstream: "org"},
			want: config.EnvUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := config.Loader{
				Getenv: env(tt.env),
				ReadFile: files(map[string]string{
					"bad.yaml": "upstream: [",
				}),
			}

			_, err := l.Load(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseUpstream(t *testing.T) {
	t.Parallel()

	up, err := config.ParseUpstream("org/pkgs")
	require.NoError(t, err)
	assert.Equal(t, config.Upstream{Owner: "org", Name: "pkgs"}, up)

	for _, v := range []string{"", "org", "/pkgs", "org/", "a/b/c"} {
		_, err := config.ParseUpstream(v)
		assert.ErrorIs(t, err, config.ErrUpstream, v)
	}
}

func TestSettings_GitHubConfig(t *testing.T) {
	t.Parallel()

	t.Run("token", func(t *testing.T) {
		t.Parallel()

		s := config.Settings{
			Upstream: config.Upstream{Owner: "org", Name: "pkgs"},
			GitHub: config.GitHub{
				Token:          "tok",
				AppID:          7,
				PrivateKeyPath: "/unused.pem",
				BaseURL:        "http://127.0.0.1/api/",
			},
		}

		cfg, err := s.GitHubConfig(files(nil))
		require.NoError(t, err)

		assert.Equal(t, "org", cfg.Owner)
		assert.Equal(t, "pkgs", cfg.Repo)
		assert.Equal(t, "tok", cfg.Token)
		assert.Equal(t, "http://127.0.0.1/api/", cfg.BaseURL)
		assert.Nil(t, cfg.PrivateKeyPEM)
	})

	t.Run("app key", func(t *testing.T) {
		t.Parallel()

		s := config.Settings{
			GitHub: config.GitHub{
				AppID:          7,
				InstallationID: 42,
				PrivateKeyPath: "/keys/app.pem",
			},
		}

		cfg, err := s.GitHubConfig(files(map[string]string{
			"/keys/app.pem": "PEM",
		}))
		require.NoError(t, err)

		assert.Equal(t, int64(7), cfg.AppID)
		assert.Equal(t, int64(42), cfg.InstallationID)
		assert.Equal(t, []byte("PEM"), cfg.PrivateKeyPEM)
	})

	t.Run("unreadable key", func(t *testing.T) {
		t.Parallel()

		s := config.Settings{
			GitHub: config.GitHub{
				AppID:          7,
				PrivateKeyPath: "/keys/missing.pem",
			},
		}

		_, err := s.GitHubConfig(files(nil))
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})
}

func TestSettings_PublisherConfig(t *testing.T) {
	t.Parallel()

	acc := hosttest.NewFake("me")

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		s := config.Settings{
			Upstream: config.Upstream{Owner: "org", Name: "pkgs"},
		}

		cfg, err := s.PublisherConfig(acc)
		require.NoError(t, err)

		assert.Same(t, acc, cfg.Accessor)
		assert.Equal(t, host.Repository{Owner: "org", Name: "pkgs"}, cfg.Upstream)
		assert.Equal(t, branchtx.DefaultRetryPolicy(), cfg.Retry)
		assert.Equal(t, locator.Partitioned, cfg.Layout)
	})

	t.Run("explicit", func(t *testing.T) {
		t.Parallel()

		s := config.Settings{
			Upstream:      config.Upstream{Owner: "org", Name: "pkgs"},
			SubmitToFork:  true,
			Root:          "m",
			Layout:        "flat",
			TemplatePath:  "t.md",
			TitleTemplate: "x",
			Retry:         config.Retry{Attempts: 5, Interval: "250ms"},
		}

		cfg, err := s.PublisherConfig(acc)
		require.NoError(t, err)

		assert.True(t, cfg.SubmitToFork)
		assert.Equal(t, "m", cfg.Root)
		assert.Equal(t, locator.Flat, cfg.Layout)
		assert.Equal(t, "t.md", cfg.TemplatePath)
		assert.Equal(t, "x", cfg.TitleTemplate)
		assert.Equal(t, branchtx.RetryPolicy{
			Attempts: 5,
			Interval: 250 * time.Millisecond,
		}, cfg.Retry)
	})

	t.Run("bad retry", func(t *testing.T) {
		t.Parallel()

		for _, r := range []config.Retry{
			{Attempts: -1},
			{Interval: "soon"},
		} {
			s := config.Settings{Retry: r}

			_, err := s.PublisherConfig(acc)
			assert.Error(t, err)
		}

		s := config.Settings{Layout: "nested"}

		_, err := s.PublisherConfig(acc)
		assert.ErrorContains(t, err, "unknown layout")
	})
}

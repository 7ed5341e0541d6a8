package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/byte4ever/manifest_pr/manifests/branchtx"
	"github.com/byte4ever/manifest_pr/manifests/host"
	"github.com/byte4ever/manifest_pr/manifests/host/github"
	"github.com/byte4ever/manifest_pr/manifests/locator"
	"github.com/byte4ever/manifest_pr/manifests/publisher"
)

// Environment variables overriding the settings file.
const (
	EnvToken          = "GITHUB_TOKEN"
	EnvAppID          = "MANIFEST_PR_APP_ID"
	EnvInstallationID = "MANIFEST_PR_INSTALLATION_ID"
	EnvPrivateKeyPath = "MANIFEST_PR_PRIVATE_KEY_PATH"
	EnvUpstream       = "MANIFEST_PR_UPSTREAM"
)

// ErrUpstream is returned for an upstream not written as
// owner/name.
var ErrUpstream = errors.New("upstream must be owner/name")

// Settings is the content of the settings file.
type Settings struct {
	Upstream      Upstream `yaml:"upstream"`
	SubmitToFork  bool     `yaml:"submitToFork"`
	Root          string   `yaml:"root"`
	Layout        string   `yaml:"layout"`
	TemplatePath  string   `yaml:"templatePath"`
	TitleTemplate string   `yaml:"titleTemplate"`
	GitHub        GitHub   `yaml:"github"`
	Retry         Retry    `yaml:"retry"`
}

// Upstream names the shared manifest repository.
type Upstream struct {
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
}

// GitHub holds the API credentials and endpoint.
type GitHub struct {
	Token          string `yaml:"token"`
	AppID          int64  `yaml:"appId"`
	InstallationID int64  `yaml:"installationId"`
	PrivateKeyPath string `yaml:"privateKeyPath"`
	EnterpriseHost string `yaml:"enterpriseHost"`
	BaseURL        string `yaml:"baseURL"`
}

// Retry bounds branch creation attempts. Interval is a
// duration string such as "1s".
type Retry struct {
	Attempts int    `yaml:"attempts"`
	Interval string `yaml:"interval"`
}

// Loader reads settings. Getenv and ReadFile default to
// the os functions.
type Loader struct {
	Getenv   func(string) string
	ReadFile func(string) ([]byte, error)
}

// Load reads the settings file at path, if any, then
// applies environment overrides with os.Getenv.
func Load(path string) (*Settings, error) {
	return Loader{}.Load(path)
}

// Load reads the settings file at path, if any, then
// applies environment overrides.
func (l Loader) Load(path string) (*Settings, error) {
	const errCtx = "loading settings"

	l = l.withDefaults()

	var s Settings

	if path != "" {
		raw, err := l.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		if err := yaml.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf(
				"%s: decode %s: %w", errCtx, path, err,
			)
		}
	}

	if err := l.override(&s); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &s, nil
}

func (l Loader) withDefaults() Loader {
	if l.Getenv == nil {
		l.Getenv = os.Getenv
	}

	if l.ReadFile == nil {
		l.ReadFile = os.ReadFile
	}

	return l
}

func (l Loader) override(s *Settings) error {
	if v := l.Getenv(EnvToken); v != "" {
		s.GitHub.Token = v
	}

	if v := l.Getenv(EnvPrivateKeyPath); v != "" {
		s.GitHub.PrivateKeyPath = v
	}

	if v := l.Getenv(EnvAppID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAppID, err)
		}

		s.GitHub.AppID = id
	}

	if v := l.Getenv(EnvInstallationID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvInstallationID, err)
		}

		s.GitHub.InstallationID = id
	}

	if v := l.Getenv(EnvUpstream); v != "" {
		up, err := ParseUpstream(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvUpstream, err)
		}

		s.Upstream = up
	}

	return nil
}

// ParseUpstream splits "owner/name".
func ParseUpstream(v string) (Upstream, error) {
	owner, name, ok := strings.Cut(v, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Upstream{}, fmt.Errorf("%q: %w", v, ErrUpstream)
	}

	return Upstream{Owner: owner, Name: name}, nil
}

// GitHubConfig returns the accessor settings. The App
// private key is read from PrivateKeyPath when App
// credentials are used.
func (s *Settings) GitHubConfig(
	readFile func(string) ([]byte, error),
) (github.Config, error) {
	const errCtx = "building github settings"

	cfg := github.Config{
		Owner:          s.Upstream.Owner,
		Repo:           s.Upstream.Name,
		Token:          s.GitHub.Token,
		AppID:          s.GitHub.AppID,
		InstallationID: s.GitHub.InstallationID,
		EnterpriseHost: s.GitHub.EnterpriseHost,
		BaseURL:        s.GitHub.BaseURL,
	}

	if cfg.Token != "" || cfg.AppID == 0 || s.GitHub.PrivateKeyPath == "" {
		return cfg, nil
	}

	if readFile == nil {
		readFile = os.ReadFile
	}

	key, err := readFile(s.GitHub.PrivateKeyPath)
	if err != nil {
		return github.Config{}, fmt.Errorf(
			"%s: private key: %w", errCtx, err,
		)
	}

	cfg.PrivateKeyPEM = key

	return cfg, nil
}

// PublisherConfig returns the publisher settings for
// accessor.
func (s *Settings) PublisherConfig(
	accessor host.Accessor,
) (publisher.Config, error) {
	const errCtx = "building publisher settings"

	retry, err := s.Retry.policy()
	if err != nil {
		return publisher.Config{}, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	layout, err := locator.ParseLayout(s.Layout)
	if err != nil {
		return publisher.Config{}, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return publisher.Config{
		Accessor: accessor,
		Upstream: host.Repository{
			Owner: s.Upstream.Owner,
			Name:  s.Upstream.Name,
		},
		SubmitToFork:  s.SubmitToFork,
		Root:          s.Root,
		Layout:        layout,
		TemplatePath:  s.TemplatePath,
		TitleTemplate: s.TitleTemplate,
		Retry:         retry,
	}, nil
}

func (r Retry) policy() (branchtx.RetryPolicy, error) {
	p := branchtx.DefaultRetryPolicy()

	if r.Attempts < 0 {
		return p, fmt.Errorf(
			"retry attempts must not be negative: %d", r.Attempts,
		)
	}

	if r.Attempts > 0 {
		p.Attempts = r.Attempts
	}

	if r.Interval != "" {
		d, err := time.ParseDuration(r.Interval)
		if err != nil {
			return p, fmt.Errorf("retry interval: %w", err)
		}

		p.Interval = d
	}

	return p, nil
}

package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/byte4ever/manifest_pr/manifests/host"
)

// Config holds the settings needed to create an Accessor.
type Config struct {
	// Owner is the user or organisation owning the
	// upstream repository. Used to discover the App
	// installation.
	Owner string
	// Repo is the upstream repository name (without
	// owner).
	Repo string
	// Token is a personal access token. It takes
	// precedence over App credentials.
	Token string
	// AppID identifies the GitHub App.
	AppID int64
	// InstallationID selects the App installation. When
	// zero it is discovered from Owner/Repo.
	InstallationID int64
	// PrivateKeyPEM is the App private key in PEM form.
	PrivateKeyPEM []byte
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
	// BaseURL overrides the API endpoint. Mostly for
	// tests.
	BaseURL string
	// HTTPClient is the base client. Defaults to one
	// using NewTransport.
	HTTPClient *http.Client
}

// Accessor talks to the GitHub REST API.
//
// Pattern: Strategy -- implements host.Accessor.
type Accessor struct {
	client *gh.Client
}

var _ host.Accessor = (*Accessor)(nil)

// NewAccessor validates cfg and returns an Accessor
// ready to issue requests.
func NewAccessor(cfg Config) (*Accessor, error) {
	const errCtx = "creating github accessor"

	if cfg.Token == "" && cfg.AppID == 0 {
		return nil, fmt.Errorf(
			"%s: access token or app id must be set", errCtx,
		)
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Transport: NewTransport()}
	}

	var src oauth2.TokenSource

	if cfg.Token != "" {
		src = oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: cfg.Token},
		)
	} else {
		if len(cfg.PrivateKeyPEM) == 0 {
			return nil, fmt.Errorf(
				"%s: private key must be set", errCtx,
			)
		}

		if cfg.InstallationID == 0 &&
			(cfg.Owner == "" || cfg.Repo == "") {
			return nil, fmt.Errorf(
				"%s: installation id or repo owner and repo must be set",
				errCtx,
			)
		}

		apps, err := newClient(gh.NewClient(base), cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		its, err := newInstallationTokenSource(apps, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		src = oauth2.ReuseTokenSourceWithExpiry(
			nil, its, tokenRefreshMargin,
		)
	}

	ctx := context.WithValue(
		context.Background(), oauth2.HTTPClient, base,
	)

	client, err := newClient(
		gh.NewClient(oauth2.NewClient(ctx, src)), cfg,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &Accessor{client: client}, nil
}

// newClient points client at the endpoint cfg selects.
func newClient(client *gh.Client, cfg Config) (*gh.Client, error) {
	if cfg.BaseURL != "" {
		raw := cfg.BaseURL
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}

		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("base url: %w", err)
		}

		client.BaseURL = u

		return client, nil
	}

	if cfg.EnterpriseHost != "" {
		baseURL := "https://" +
			cfg.EnterpriseHost + "/api/v3/"
		uploadURL := "https://" +
			cfg.EnterpriseHost + "/api/uploads/"

		c, err := client.WithEnterpriseURLs(baseURL, uploadURL)
		if err != nil {
			return nil, fmt.Errorf("enterprise urls: %w", err)
		}

		return c, nil
	}

	return client, nil
}

func toRepository(r *gh.Repository) *host.Repository {
	if r == nil {
		return nil
	}

	return &host.Repository{
		ID:            r.GetID(),
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		DefaultBranch: r.GetDefaultBranch(),
		Parent:        toRepository(r.GetParent()),
	}
}

func toPullRequest(pr *gh.PullRequest) *host.PullRequest {
	out := &host.PullRequest{
		Number:     pr.GetNumber(),
		URL:        pr.GetHTMLURL(),
		State:      pr.GetState(),
		HeadBranch: pr.GetHead().GetRef(),
		BaseBranch: pr.GetBase().GetRef(),
		Body:       pr.GetBody(),
		Merged:     pr.GetMerged(),
	}

	if r := toRepository(pr.GetHead().GetRepo()); r != nil {
		out.HeadRepo = *r
	}

	if r := toRepository(pr.GetBase().GetRepo()); r != nil {
		out.BaseRepo = *r
	}

	return out
}

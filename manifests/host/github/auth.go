package github

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

const (
	// clockSkew backdates the assertion's issued-at.
	clockSkew = 60 * time.Second
	// assertionLifetime is measured from issued-at; GitHub
	// rejects assertions living longer than ten minutes.
	assertionLifetime = 10 * time.Minute
	// tokenRefreshMargin renews installation tokens this
	// long before they expire.
	tokenRefreshMargin = 5 * time.Minute
	tokenTimeout       = 30 * time.Second
)

// SignAppAssertion returns the RS256 JSON web token that
// authenticates appID as a GitHub App at now.
func SignAppAssertion(
	appID int64,
	key *rsa.PrivateKey,
	now time.Time,
) (string, error) {
	const errCtx = "signing app assertion"

	issued := now.Add(-clockSkew)

	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(assertionLifetime)),
		Issuer:    strconv.FormatInt(appID, 10),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).
		SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return signed, nil
}

// installationTokenSource exchanges App credentials for
// installation tokens. It is not safe for concurrent use;
// wrap it in oauth2.ReuseTokenSource.
type installationTokenSource struct {
	client         *gh.Client
	appID          int64
	key            *rsa.PrivateKey
	installationID int64
	owner          string
	repo           string
	now            func() time.Time
}

var _ oauth2.TokenSource = (*installationTokenSource)(nil)

func newInstallationTokenSource(
	client *gh.Client,
	cfg Config,
) (*installationTokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing app private key: %w", err)
	}

	return &installationTokenSource{
		client:         client,
		appID:          cfg.AppID,
		key:            key,
		installationID: cfg.InstallationID,
		owner:          cfg.Owner,
		repo:           cfg.Repo,
		now:            time.Now,
	}, nil
}

// Token implements oauth2.TokenSource.
func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	const errCtx = "exchanging app credentials"

	ctx, cancel := context.WithTimeout(
		context.Background(), tokenTimeout,
	)
	defer cancel()

	assertion, err := SignAppAssertion(s.appID, s.key, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	client := s.client.WithAuthToken(assertion)

	if s.installationID == 0 {
		inst, _, err := client.Apps.FindRepositoryInstallation(
			ctx, s.owner, s.repo,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: find installation for %s/%s: %w",
				errCtx, s.owner, s.repo, classify(err),
			)
		}

		s.installationID = inst.GetID()

		slog.Debug(
			"discovered app installation",
			"repo", s.owner+"/"+s.repo,
			"installation", s.installationID,
		)
	}

	tok, _, err := client.Apps.CreateInstallationToken(
		ctx, s.installationID, nil,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: installation %d: %w",
			errCtx, s.installationID, classify(err),
		)
	}

	return &oauth2.Token{
		AccessToken: tok.GetToken(),
		TokenType:   "Bearer",
		Expiry:      tok.GetExpiresAt().Time,
	}, nil
}

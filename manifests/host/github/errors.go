package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/manifest_pr/manifests/host"
)

// classify wraps err with the host taxonomy sentinel that
// matches the failure, keeping err in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		classified(err) {
		return err
	}

	var (
		rateErr  *gh.RateLimitError
		abuseErr *gh.AbuseRateLimitError
	)

	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %w", host.ErrTransient, err)
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		if sentinel := statusSentinel(respErr); sentinel != nil {
			return fmt.Errorf("%w: %w", sentinel, err)
		}

		return err
	}

	var (
		urlErr *url.Error
		netErr net.Error
	)

	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", host.ErrTransient, err)
	}

	return err
}

func statusSentinel(e *gh.ErrorResponse) error {
	code := e.Response.StatusCode
	msg := strings.ToLower(e.Error())

	switch {
	case code == http.StatusNotFound:
		return host.ErrNotFound
	case code == http.StatusUnauthorized,
		code == http.StatusForbidden:
		return host.ErrPermission
	case code == http.StatusConflict:
		return host.ErrNonFastForward
	case code == http.StatusUnprocessableEntity &&
		strings.Contains(msg, "fast forward"):
		return host.ErrNonFastForward
	case code == http.StatusUnprocessableEntity &&
		strings.Contains(msg, "already exists"):
		return host.ErrAlreadyExists
	case code >= http.StatusInternalServerError:
		return host.ErrTransient
	}

	return nil
}

// classified reports whether err already carries a host
// sentinel, as token exchange failures surfacing through
// the transport do.
func classified(err error) bool {
	for _, sentinel := range []error{
		host.ErrNotFound,
		host.ErrTransient,
		host.ErrNonFastForward,
		host.ErrPermission,
		host.ErrAlreadyExists,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	return false
}

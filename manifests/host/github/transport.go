package github

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/dnscache"
)

var errNoAddress = errors.New("cannot dial any resolved address")

const dnsRefreshInterval = 5 * time.Minute

var (
	resolverOnce   sync.Once
	sharedResolver *dnscache.Resolver
)

// NewTransport returns an HTTP transport resolving host
// names through a process-wide DNS cache, refreshed every
// five minutes. A submission issues dozens of requests to
// the same API host.
func NewTransport() *http.Transport {
	resolverOnce.Do(func() {
		sharedResolver = &dnscache.Resolver{}

		go refreshDNS(
			context.Background(), sharedResolver, dnsRefreshInterval,
		)
	})

	return newTransport(sharedResolver)
}

// refreshDNS refreshes the cached answers of r every
// interval until ctx is done, dropping unused hosts.
func refreshDNS(
	ctx context.Context,
	r *dnscache.Resolver,
	interval time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(true)
		}
	}
}

func newTransport(resolver *dnscache.Resolver) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(
			ctx context.Context,
			network string,
			addr string,
		) (net.Conn, error) {
			h, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}

			ips, err := resolver.LookupHost(ctx, h)
			if err != nil {
				return nil, err
			}

			var lastErr error

			for _, ip := range ips {
				conn, err := dialer.DialContext(
					ctx, network, net.JoinHostPort(ip, port),
				)
				if err == nil {
					return conn, nil
				}

				lastErr = err
			}

			return nil, errors.Join(errNoAddress, lastErr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

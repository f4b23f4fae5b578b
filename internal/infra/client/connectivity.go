package client

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

// Resolver is the subset of net.Resolver used by DNSChecker.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSChecker reports offline when the webhook host cannot be resolved.
// Successful lookups are cached for a short TTL.
type DNSChecker struct {
	host     string
	resolver Resolver
	timeout  time.Duration
	cache    *gocache.Cache
	logger   *zap.Logger
}

// NewDNSChecker creates a checker for the host of targetURL.
func NewDNSChecker(targetURL string, timeout, cacheTTL time.Duration, logger *zap.Logger) (*DNSChecker, error) {
	u, err := url.Parse(targetURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("connectivity target %q has no host", targetURL)
	}
	return &DNSChecker{
		host:     u.Hostname(),
		resolver: net.DefaultResolver,
		timeout:  timeout,
		cache:    gocache.New(cacheTTL, 2*cacheTTL),
		logger:   logger,
	}, nil
}

// WithResolver swaps the resolver (tests).
func (p *DNSChecker) WithResolver(r Resolver) *DNSChecker {
	p.resolver = r
	return p
}

// Check returns domain.ErrOffline when the host does not resolve.
func (p *DNSChecker) Check(ctx context.Context) error {
	if net.ParseIP(p.host) != nil {
		return nil
	}
	if _, ok := p.cache.Get(p.host); ok {
		return nil
	}

	ctx, span := tracer.Start(ctx, "DNSChecker.Check")
	defer span.End()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	addrs, err := p.resolver.LookupHost(ctx, p.host)
	if err == nil && len(addrs) == 0 {
		err = fmt.Errorf("no addresses")
	}
	if err != nil {
		p.logger.Warn("connectivity check failed", zap.String("host", p.host), zap.Error(err))
		return &domain.ErrOffline{Err: fmt.Errorf("resolving %s: %w", p.host, err)}
	}

	p.cache.Set(p.host, addrs, gocache.DefaultExpiration)
	return nil
}

// AlwaysOnline skips the connectivity check.
type AlwaysOnline struct{}

// Check always succeeds.
func (AlwaysOnline) Check(context.Context) error { return nil }

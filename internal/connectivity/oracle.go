// Package connectivity answers whether the backend is reachable right now.
package connectivity

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

// Oracle reports current reachability. Implementations never cache: each call
// re-checks, and any failure reads as offline.
type Oracle interface {
	IsOnline(ctx context.Context) bool
}

// LinkFunc reports whether the device has an active network link
type LinkFunc func() bool

// Checker is online when a non-loopback interface is up and the backend
// health endpoint answers with a non-5xx status before the timeout.
type Checker struct {
	healthURL string
	client    *http.Client
	hasLink   LinkFunc
	logger    *slog.Logger
}

// NewChecker creates a checker that polls healthURL
func NewChecker(healthURL string, timeout time.Duration, logger *slog.Logger) *Checker {
	return &Checker{
		healthURL: healthURL,
		client:    &http.Client{Timeout: timeout},
		hasLink:   HasActiveInterface,
		logger:    logger.With(slog.String("component", "connectivity")),
	}
}

// WithLinkFunc replaces the interface check
func (c *Checker) WithLinkFunc(fn LinkFunc) *Checker {
	c.hasLink = fn
	return c
}

// IsOnline implements Oracle
func (c *Checker) IsOnline(ctx context.Context) bool {
	if !c.hasLink() {
		c.logger.Debug("no active network interface")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		c.logger.Warn("invalid health URL", slog.String("url", c.healthURL), slog.Any("error", err))
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("backend health check failed", slog.Any("error", err))
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}

// HasActiveInterface reports whether any non-loopback interface is up
func HasActiveInterface() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
			return true
		}
	}
	return false
}

// Static is an Oracle with a fixed, switchable answer. It backs forced
// offline mode and tests.
type Static struct {
	online atomic.Bool
}

// NewStatic creates a Static oracle
func NewStatic(online bool) *Static {
	s := &Static{}
	s.online.Store(online)
	return s
}

// IsOnline implements Oracle
func (s *Static) IsOnline(ctx context.Context) bool {
	return s.online.Load()
}

// Set changes the reported state
func (s *Static) Set(online bool) {
	s.online.Store(online)
}

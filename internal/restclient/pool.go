package restclient

import (
	"net/http"
	"sync"
	"time"
)

// pool hands out *http.Client instances backed by a shared *http.Transport,
// sized for the configured worker count. It is rebuilt — generation
// incremented, transport replaced — whenever the signed Authorization header
// changes, so that idle connections authenticated under a stale token are not
// reused silently.
//
// Grounded on the connection-pool shape used elsewhere in this codebase for
// backend clients: a small struct guarding a generation counter and a
// lazily-rebuilt resource, read under RLock in the common case and rebuilt
// under a full Lock only on generation change.
type pool struct {
	mu             sync.RWMutex
	generation     uint64
	lastAuthHeader string
	client         *http.Client
	maxIdlePerHost int
	requestTimeout time.Duration
}

func newPool(maxIdlePerHost int, requestTimeout time.Duration) *pool {
	if maxIdlePerHost < 1024 {
		maxIdlePerHost = 1024
	}
	p := &pool{
		maxIdlePerHost: maxIdlePerHost,
		requestTimeout: requestTimeout,
	}
	p.client = p.buildClient()
	return p
}

func (p *pool) buildClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        p.maxIdlePerHost * 2,
		MaxIdleConnsPerHost: p.maxIdlePerHost,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
	}
}

// clientFor returns the pooled *http.Client to use for a request signed with
// authHeader, rebuilding the pool (new generation, fresh transport) if the
// header differs from the last one observed.
func (p *pool) clientFor(authHeader string) *http.Client {
	p.mu.RLock()
	if authHeader == p.lastAuthHeader {
		c := p.client
		p.mu.RUnlock()
		return c
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if authHeader == p.lastAuthHeader {
		return p.client
	}
	p.generation++
	p.lastAuthHeader = authHeader
	p.client = p.buildClient()
	return p.client
}

// Generation returns the current pool generation, mainly for observability.
func (p *pool) Generation() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generation
}

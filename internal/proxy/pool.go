// Package proxy holds the bounded, ordered sequence of proxy URLs used to
// route outbound fetches.
package proxy

import (
	"fmt"
	"math/rand"
	"net/url"
	"sync"
)

// Pool is a bounded ordered sequence of proxy URLs. An empty pool is a
// valid, disabled pool: both selectors simply return nil.
type Pool struct {
	mu      sync.RWMutex
	entries []*url.URL
	nextIdx int
}

// New builds a Pool from raw proxy URL strings. Malformed entries are
// rejected outright rather than silently dropped, since a bad proxy URL
// in config is a configuration bug.
func New(rawURLs []string) (*Pool, error) {
	p := &Pool{}
	for _, raw := range rawURLs {
		if err := p.AddProxy(raw); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Enabled reports whether the pool has at least one proxy.
func (p *Pool) Enabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries) > 0
}

// Len returns the number of proxies currently held.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// GetRandom returns a uniformly chosen proxy, or nil if the pool is empty.
func (p *Pool) GetRandom() *url.URL {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.entries) == 0 {
		return nil
	}
	return p.entries[rand.Intn(len(p.entries))]
}

// GetNext returns proxies in round-robin order, index advancing modulo the
// pool size on every call: N+1 successive calls over a pool of size N
// yield [p0, p1, ..., p_{N-1}, p0].
func (p *Pool) GetNext() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) == 0 {
		return nil
	}
	u := p.entries[p.nextIdx%len(p.entries)]
	p.nextIdx++
	return u
}

// AddProxy appends a proxy URL, ignoring it if already present.
func (p *Pool) AddProxy(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid proxy URL %q: %w", raw, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, existing := range p.entries {
		if existing.String() == u.String() {
			return nil
		}
	}
	p.entries = append(p.entries, u)
	return nil
}

// RemoveProxy removes a proxy by its string value, if present.
func (p *Pool) RemoveProxy(raw string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.entries {
		if existing.String() == raw {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			return
		}
	}
}

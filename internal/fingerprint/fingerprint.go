// Package fingerprint produces randomized browser-like request attributes:
// a user-agent drawn from a configured pool, a plausible header set, and a
// desktop viewport — the pacing/header-randomization slice of anti-bot
// behavior the spec permits, with TLS-fingerprint and stealth-JS spoofing
// left out of scope.
package fingerprint

import (
	"bufio"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
)

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.8,es;q=0.5",
}

type viewport struct{ width, height int }

var viewports = []viewport{
	{1920, 1080}, {1366, 768}, {1536, 864},
	{1440, 900}, {1280, 720}, {2560, 1440},
}

// Pool holds an immutable set of user-agent strings loaded once at
// startup, per the design note against process-wide mutable singletons —
// callers are expected to construct one Pool and pass it around.
type Pool struct {
	userAgents []string
}

// defaultUserAgent is used when the pool file is empty, mirroring the
// teacher's fallback to a self-identifying UA rather than an empty header.
const defaultUserAgent = "jobwatch/1.0 (+https://github.com/careersignal/jobwatch)"

// LoadPool reads a plain-text, one-UA-per-line pool file. Blank lines are
// ignored.
func LoadPool(path string) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open UA pool %s: %w", path, err)
	}
	defer f.Close()

	var agents []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		agents = append(agents, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read UA pool %s: %w", path, err)
	}
	return &Pool{userAgents: agents}, nil
}

// NewPool builds a Pool directly from a slice, for callers that already
// have the list in memory (tests, embedded defaults).
func NewPool(userAgents []string) *Pool {
	return &Pool{userAgents: append([]string(nil), userAgents...)}
}

// RandomUserAgent draws uniformly from the pool.
func (p *Pool) RandomUserAgent() string {
	if len(p.userAgents) == 0 {
		return defaultUserAgent
	}
	return p.userAgents[rand.Intn(len(p.userAgents))]
}

// RandomHeaders returns a header set with a randomly chosen User-Agent
// plus a fixed collection of browser-like headers. http.Header is a Go
// map, so its own randomized iteration order already gives the "emitted
// in randomized order" behavior the spec calls for wherever the transport
// preserves it.
func (p *Pool) RandomHeaders() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", p.RandomUserAgent())
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))])
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("DNT", "1")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	return h
}

// RandomViewport draws from a fixed list of common desktop resolutions.
func RandomViewport() (width, height int) {
	vp := viewports[rand.Intn(len(viewports))]
	return vp.width, vp.height
}

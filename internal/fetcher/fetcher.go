// Package fetcher implements component E: the single gated fetch path
// that applies the adaptive delay, circuit breaker, fingerprint, and
// proxy pool exactly once per call, then delegates the actual network
// work to one of two transports (static HTTP or headless browser).
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/careersignal/jobwatch/internal/fingerprint"
	"github.com/careersignal/jobwatch/internal/governor"
	"github.com/careersignal/jobwatch/internal/proxy"
	"github.com/careersignal/jobwatch/internal/types"
)

// totalTimeout bounds the whole fetch, static or JS-rendered.
const totalTimeout = 30 * time.Second

// transport performs the actual network request for one gating mode.
// GovernedFetcher is the only caller; a transport never touches the
// governor, the fingerprint pool, or the proxy pool itself (the browser
// transport does draw its own viewport via fingerprint.RandomViewport).
type transport interface {
	fetch(ctx context.Context, target string, headers map[string]string, proxyURL *url.URL) (body string, statusCode int, err error)
}

// GovernedFetcher is the Fetcher the rest of the system depends on. It
// owns the Governor, Fingerprint pool, and ProxyPool for the process and
// applies them uniformly in front of whichever transport a call selects.
type GovernedFetcher struct {
	governor *governor.Governor
	fprint   *fingerprint.Pool
	proxies  *proxy.Pool
	static   transport
	browser  transport
	logger   *slog.Logger
}

// New builds a GovernedFetcher. browser may be nil if headless rendering
// is not configured; a call with jsRender=true against a nil browser
// transport fails closed rather than silently falling back to static. A
// nil logger falls back to slog.Default().
func New(g *governor.Governor, fprint *fingerprint.Pool, proxies *proxy.Pool, static, browser transport, logger *slog.Logger) *GovernedFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &GovernedFetcher{governor: g, fprint: fprint, proxies: proxies, static: static, browser: browser, logger: logger.With("component", "fetcher")}
}

// NewDefault builds a GovernedFetcher with the standard static transport
// always present and a headless browser transport enabled only when
// jsRenderEnabled is set, since launching Chromium has a real cost callers
// may not want to pay on every process.
func NewDefault(g *governor.Governor, fprint *fingerprint.Pool, proxies *proxy.Pool, jsRenderEnabled bool, maxBrowserPages int, logger *slog.Logger) (*GovernedFetcher, error) {
	static := newStaticTransport()

	var browser transport
	if jsRenderEnabled {
		bt, err := newBrowserTransport(maxBrowserPages)
		if err != nil {
			return nil, err
		}
		browser = bt
	}

	return New(g, fprint, proxies, static, browser, logger), nil
}

// Fetch implements the §4.E contract: a null (empty-string, false)
// result is the sole failure signal, never an error return, so callers
// never need to distinguish "blocked by governor" from "4xx" from
// "network exception" — the governor has already observed exactly one
// outcome for every call that passed the circuit check.
func (f *GovernedFetcher) Fetch(ctx context.Context, target string, jsRender bool) (string, bool) {
	domain := hostOf(target)
	if domain == "" {
		f.logger.Warn(types.ErrInvalidURL.Error(), "url", target)
		return "", false
	}

	if !f.governor.Admit(ctx, domain) {
		return "", false
	}

	tr := f.static
	if jsRender {
		tr = f.browser
	}
	if tr == nil {
		return "", false
	}

	headers := headerMap(f.fprint.RandomHeaders())
	selectedProxy := f.proxies.GetRandom()

	fetchCtx, cancel := context.WithTimeout(ctx, totalTimeout)
	defer cancel()

	body, status, err := tr.fetch(fetchCtx, target, headers, selectedProxy)

	switch {
	case err != nil:
		f.governor.Observe(domain, governor.OutcomeTransportFailure, 0)
		f.logFailure(target, &types.FetchError{URL: target, Kind: types.TransportFailure, Err: err})
		return "", false
	case status == 429 || status == 503:
		f.governor.Observe(domain, governor.OutcomeRateLimited, status)
		f.logFailure(target, &types.FetchError{URL: target, StatusCode: status, Kind: types.RateLimited, Err: fmt.Errorf("status %d", status)})
		return "", false
	case status >= 500:
		f.governor.Observe(domain, governor.OutcomeServerError, status)
		f.logFailure(target, &types.FetchError{URL: target, StatusCode: status, Kind: types.HTTPServerError, Err: fmt.Errorf("status %d", status)})
		return "", false
	case status >= 400:
		f.governor.Observe(domain, governor.OutcomeClientError, status)
		f.logFailure(target, &types.FetchError{URL: target, StatusCode: status, Kind: types.HTTPClientError, Err: fmt.Errorf("status %d", status)})
		return "", false
	default:
		f.governor.Observe(domain, governor.OutcomeSuccess, status)
		if body == "" {
			f.logger.Debug(types.ErrEmptyResponse.Error(), "url", target, "status", status)
		}
		return body, true
	}
}

func (f *GovernedFetcher) logFailure(target string, fe *types.FetchError) {
	f.logger.Warn(fe.Error(), "url", target, "kind", fe.Kind)
}

func headerMap(h map[string][]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

package fetcher

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/careersignal/jobwatch/internal/fingerprint"
	"github.com/careersignal/jobwatch/internal/governor"
	"github.com/careersignal/jobwatch/internal/proxy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeTransport struct {
	body   string
	status int
	err    error
	calls  int
}

func (f *fakeTransport) fetch(ctx context.Context, target string, headers map[string]string, proxyURL *url.URL) (string, int, error) {
	f.calls++
	return f.body, f.status, f.err
}

func newTestFetcher(static, browser transport) *GovernedFetcher {
	g := governor.New(time.Millisecond, time.Millisecond, 100, time.Minute)
	fprint := fingerprint.NewPool([]string{"test-agent"})
	proxies, _ := proxy.New(nil)
	return New(g, fprint, proxies, static, browser, testLogger())
}

func TestFetchSuccessReturnsBody(t *testing.T) {
	static := &fakeTransport{body: "<html>ok</html>", status: 200}
	f := newTestFetcher(static, nil)

	body, ok := f.Fetch(context.Background(), "https://example.com/page", false)
	if !ok {
		t.Fatal("expected success")
	}
	if body != "<html>ok</html>" {
		t.Fatalf("body = %q", body)
	}
}

func TestFetchTransportErrorFails(t *testing.T) {
	static := &fakeTransport{err: context.DeadlineExceeded}
	f := newTestFetcher(static, nil)

	_, ok := f.Fetch(context.Background(), "https://example.com/page", false)
	if ok {
		t.Fatal("expected failure on transport error")
	}
}

func TestFetch5xxFails(t *testing.T) {
	static := &fakeTransport{status: 503}
	f := newTestFetcher(static, nil)

	_, ok := f.Fetch(context.Background(), "https://example.com/page", false)
	if ok {
		t.Fatal("expected failure on 503")
	}
}

func TestFetch4xxFails(t *testing.T) {
	static := &fakeTransport{status: 404}
	f := newTestFetcher(static, nil)

	_, ok := f.Fetch(context.Background(), "https://example.com/page", false)
	if ok {
		t.Fatal("expected failure on 404")
	}
}

func TestFetchNilBrowserTransportFailsClosed(t *testing.T) {
	static := &fakeTransport{body: "ok", status: 200}
	f := newTestFetcher(static, nil)

	_, ok := f.Fetch(context.Background(), "https://example.com/page", true)
	if ok {
		t.Fatal("expected jsRender=true against a nil browser transport to fail closed")
	}
	if static.calls != 0 {
		t.Fatalf("expected the static transport to not be used for a JS-render request, calls = %d", static.calls)
	}
}

func TestFetchInvalidURLFails(t *testing.T) {
	static := &fakeTransport{body: "ok", status: 200}
	f := newTestFetcher(static, nil)

	_, ok := f.Fetch(context.Background(), "://not-a-url", false)
	if ok {
		t.Fatal("expected an unparsable target URL to fail")
	}
}

func TestFetchOpenCircuitFailsWithoutCallingTransport(t *testing.T) {
	static := &fakeTransport{body: "ok", status: 200}
	g := governor.New(time.Millisecond, time.Millisecond, 1, time.Minute)
	g.Circuit.RecordFailure("example.com")
	fprint := fingerprint.NewPool([]string{"test-agent"})
	proxies, _ := proxy.New(nil)
	f := New(g, fprint, proxies, static, nil, testLogger())

	_, ok := f.Fetch(context.Background(), "https://example.com/page", false)
	if ok {
		t.Fatal("expected an open circuit to block the fetch")
	}
	if static.calls != 0 {
		t.Fatalf("expected the transport to not be called when the circuit is open, calls = %d", static.calls)
	}
}

func TestHeaderMapTakesFirstValue(t *testing.T) {
	h := map[string][]string{
		"X-Multi": {"first", "second"},
		"X-Empty": {},
	}
	out := headerMap(h)
	if out["X-Multi"] != "first" {
		t.Fatalf("X-Multi = %q, want first", out["X-Multi"])
	}
	if _, ok := out["X-Empty"]; ok {
		t.Fatal("expected an empty value slice to be omitted")
	}
}

func TestHostOfInvalidURL(t *testing.T) {
	if got := hostOf("://bad"); got != "" {
		t.Fatalf("hostOf(invalid) = %q, want empty", got)
	}
}

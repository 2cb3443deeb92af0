package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"
)

const maxBodyBytes = 10 << 20

// staticTransport performs a plain HTTP GET. A single shared cookiejar
// partitions cookies by domain on its own, so there is no per-domain
// session bookkeeping to maintain here.
type staticTransport struct {
	client *http.Client
}

// newStaticTransport builds the static HTTP transport. Proxy selection
// happens once per GovernedFetcher.Fetch call rather than inside the
// transport's own rotation state; the chosen proxy rides in on the
// request context since http.Transport.Proxy is a per-request func.
func newStaticTransport() *staticTransport {
	jar, _ := cookiejar.New(nil)

	tr := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{},
		DisableCompression:  true, // decompression handled explicitly below, including brotli
		Proxy: func(req *http.Request) (*url.URL, error) {
			if u, ok := req.Context().Value(proxyContextKey{}).(*url.URL); ok {
				return u, nil
			}
			return nil, nil
		},
	}

	return &staticTransport{client: &http.Client{Transport: tr, Jar: jar}}
}

type proxyContextKey struct{}

func withProxy(ctx context.Context, proxyURL *url.URL) context.Context {
	if proxyURL == nil {
		return ctx
	}
	return context.WithValue(ctx, proxyContextKey{}, proxyURL)
}

func (t *staticTransport) fetch(ctx context.Context, target string, headers map[string]string, proxyURL *url.URL) (string, int, error) {
	req, err := http.NewRequestWithContext(withProxy(ctx, proxyURL), http.MethodGet, target, nil)
	if err != nil {
		return "", 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	reader, err := decompress(resp)
	if err != nil {
		return "", resp.StatusCode, err
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}

func decompress(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		return flate.NewReader(resp.Body), nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

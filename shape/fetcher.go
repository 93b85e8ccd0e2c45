package shape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Default fetch settings.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultUserAgent      = "semequip/0.1 (+https://github.com/c360studio/semequip)"
	DefaultMaxContentSize = 10 << 20
	maxRedirects          = 5
	acceptHeader          = "text/turtle, application/n-triples;q=0.9, */*;q=0.1"
)

// Document is a retrieved shape document.
type Document struct {
	URL         string
	Body        string
	ContentType string
	StatusCode  int
}

// Fetcher retrieves shape documents. Implementations return either a
// Document or an error describing why retrieval failed; callers decide
// whether to block on the call or run it in their own goroutine.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Document, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (*Document, error)

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) (*Document, error) {
	return f(ctx, url)
}

// FetchConfig configures an HTTPFetcher.
type FetchConfig struct {
	Timeout        time.Duration
	UserAgent      string
	MaxContentSize int64
	Policy         URLPolicy
}

// HTTPFetcher fetches shape documents over HTTP(S).
type HTTPFetcher struct {
	client         *http.Client
	userAgent      string
	maxContentSize int64
	policy         URLPolicy
}

// NewHTTPFetcher creates a fetcher. Zero config fields take defaults.
func NewHTTPFetcher(cfg FetchConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxContentSize <= 0 {
		cfg.MaxContentSize = DefaultMaxContentSize
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	if cfg.Policy.BlockPrivate {
		// Validate resolved addresses too, so a public name that resolves
		// to a private address is rejected.
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, fmt.Errorf("invalid address: %w", err)
			}
			ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, fmt.Errorf("DNS lookup failed: %w", err)
			}
			for _, ipAddr := range ips {
				if IsPrivateIP(ipAddr.IP) {
					return nil, fmt.Errorf("connection to private IP %s is not allowed", ipAddr.IP)
				}
			}
			for _, ipAddr := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ipAddr.IP.String(), port))
				if err == nil {
					return conn, nil
				}
			}
			return nil, fmt.Errorf("failed to connect to any resolved IP")
		}
	}

	policy := cfg.Policy
	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (max %d)", maxRedirects)
				}
				if err := policy.Validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		userAgent:      cfg.UserAgent,
		maxContentSize: cfg.MaxContentSize,
		policy:         policy,
	}
}

// Fetch retrieves the document at url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	if err := f.policy.Validate(url); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > f.maxContentSize {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", f.maxContentSize)
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := decodeBody(raw, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}

	return &Document{
		URL:         resp.Request.URL.String(),
		Body:        string(body),
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
	}, nil
}

// decodeBody transcodes the body to UTF-8 when the response declares a
// different charset. Undeclared bodies are read as-is; Turtle is UTF-8 by
// definition.
func decodeBody(raw []byte, contentType string) ([]byte, error) {
	if contentType == "" {
		return raw, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return raw, nil
	}
	label := strings.ToLower(params["charset"])
	if label == "" || label == "utf-8" || label == "utf8" {
		return raw, nil
	}
	decoded, err := charset.NewReaderLabel(label, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(decoded)
}

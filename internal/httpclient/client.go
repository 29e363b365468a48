// Package httpclient implements the HTTP Client external collaborator:
// content-length/resumability probing and a ranged streaming GET. It is
// grounded on tdm's pkg/protocol/http.HTTPClient (transport setup, HEAD
// request, header application) and internal/protocol/http.Handler (the
// HEAD -> Range-GET -> plain-GET probe fallback chain), narrowed to the
// two operations the moderator's workers actually need.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arjunv/modfetch/internal/logger"
)

// Client is the collaborator contract consumed by the chunk worker.
type Client interface {
	// FetchContentLength probes url and reports its length (UnsetLength
	// sentinel -1 if unknown) and whether it supports byte ranges.
	FetchContentLength(ctx context.Context, url string, headers map[string]string) (length int64, resumable bool, err error)

	// Open issues a GET for [begin, end] (inclusive) and returns a
	// streaming body. begin == -1 requests the whole file unbounded.
	Open(ctx context.Context, url string, begin, end int64, headers map[string]string) (io.ReadCloser, error)
}

// HTTPClient is the production Client, backed by a tuned *http.Transport.
type HTTPClient struct {
	client *http.Client
	config *Config
}

func New(config *Config) *HTTPClient {
	if config == nil {
		config = DefaultConfig()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		MaxConnsPerHost:     config.MaxConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		TLSHandshakeTimeout: config.TLSHandshakeTimeout,
		TLSClientConfig:     config.TLSConfig,
	}
	if config.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(config.ProxyURL)
	}

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.MaxRedirects {
				return fmt.Errorf("too many redirects (max %d)", config.MaxRedirects)
			}
			return nil
		},
	}

	return &HTTPClient{client: client, config: config}
}

func (c *HTTPClient) FetchContentLength(ctx context.Context, url string, headers map[string]string) (int64, bool, error) {
	length, resumable, err := c.probeHEAD(ctx, url, headers)
	if err == nil {
		return length, resumable, nil
	}
	logger.Debugf("HEAD probe failed for %s: %v, falling back to range GET", url, err)

	return c.probeRangeGET(ctx, url, headers)
}

func (c *HTTPClient) probeHEAD(ctx context.Context, url string, headers map[string]string) (int64, bool, error) {
	req, err := c.newRequest(ctx, http.MethodHead, url, headers)
	if err != nil {
		return 0, false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, false, newNetworkError("HEAD", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, false, newHTTPStatusError("HEAD", url, resp.StatusCode)
	}

	resumable := strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes")

	return resp.ContentLength, resumable, nil
}

func (c *HTTPClient) probeRangeGET(ctx context.Context, url string, headers map[string]string) (int64, bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url, headers)
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, false, newNetworkError("GET", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		total := parseContentRangeSize(resp.Header.Get("Content-Range"))
		return total, true, nil
	case http.StatusOK:
		return resp.ContentLength, false, nil
	default:
		return 0, false, newHTTPStatusError("GET", url, resp.StatusCode)
	}
}

func (c *HTTPClient) Open(ctx context.Context, url string, begin, end int64, headers map[string]string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url, headers)
	if err != nil {
		return nil, err
	}

	if begin >= 0 {
		rangeHeader := fmt.Sprintf("bytes=%d-", begin)
		if end >= 0 {
			rangeHeader = fmt.Sprintf("bytes=%d-%d", begin, end)
		}
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newNetworkError("GET", url, err)
	}

	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, newHTTPStatusError("GET", url, resp.StatusCode)
	}

	if begin >= 0 && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, &Error{Type: ErrorTypeRangesUnsupported, Operation: "GET", URL: url}
	}

	return resp.Body, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, url string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request for %s: %w", method, url, err)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	for k, v := range c.config.DefaultHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// parseContentRangeSize parses the "bytes 0-0/1234" Content-Range format.
func parseContentRangeSize(contentRange string) int64 {
	parts := strings.Split(contentRange, "/")
	if len(parts) != 2 {
		return -1
	}

	size, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return -1
	}

	return size
}

package httpclient

import (
	"crypto/tls"
	"net/url"
	"time"
)

// Config tunes the underlying transport, mirroring tdm's
// pkg/protocol/http.ClientConfig.
type Config struct {
	ProxyURL            *url.URL
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration
	MaxRedirects        int

	TLSConfig *tls.Config

	DefaultHeaders map[string]string
	UserAgent      string
}

func DefaultConfig() *Config {
	return &Config{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     16,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxRedirects:        10,
		UserAgent:           "modfetch/1.0",
	}
}

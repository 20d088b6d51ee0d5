// Package session owns the HTTP state of one gateway client: cookies, the
// bearer header and the relaxed TLS settings internal deployments need.
package session

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
)

// Session is not safe for concurrent use: the cookie jar is shared by every
// request and login replaces its contents.
type Session struct {
	BaseURL string
	Token   string

	timeout   time.Duration
	transport http.RoundTripper
	client    *http.Client
}

type Option func(*Session)

func WithBearerToken(token string) Option {
	token = strings.TrimSpace(token)
	return func(s *Session) {
		s.Token = token
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTransport replaces the base transport. The bearer header is still added.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Session) {
		s.transport = rt
	}
}

func New(baseURL string, opts ...Option) (*Session, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute, got %q", baseURL)
	}
	s := &Session{BaseURL: baseURL, timeout: defaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	base := s.transport
	if base == nil {
		base = insecureTransport()
	}
	s.client = &http.Client{
		Jar:       jar,
		Timeout:   s.timeout,
		Transport: bearerRoundTripper{Base: base, Token: s.Token},
	}
	return s, nil
}

func insecureTransport() http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	// Admin panels are commonly served with self-signed certificates.
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return t
}

type bearerRoundTripper struct {
	Base  http.RoundTripper
	Token string
}

func (rt bearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.Token == "" {
		return rt.Base.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	out.Header = req.Header.Clone()
	out.Header.Set("Authorization", "Bearer "+rt.Token)
	return rt.Base.RoundTrip(out)
}

// Response is a fully read HTTP answer.
type Response struct {
	StatusCode int
	Body       []byte
}

// Do sends a request relative to BaseURL. body, when not nil, is sent as JSON.
// Only transport failures are returned as errors; any status code is a Response.
func (s *Session) Do(ctx context.Context, method, path string, query url.Values, body []byte) (*Response, error) {
	target := s.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: b}, nil
}

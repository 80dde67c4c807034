package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"shelfnav/internal/config"
	"shelfnav/internal/logging"
)

// ErrUnauthenticated marks a fetch rejected by the server's auth gate. The
// server reports the reserved not-found status for unauthenticated listing
// and index requests, because real 404s are not otherwise expected; that
// repurposing is part of the wire contract and preserved here.
var ErrUnauthenticated = errors.New("not authenticated")

// Client talks to the library server. Sessions are cookie-based, so one
// Client carries one logical login for its lifetime.
type Client struct {
	cfg  *config.Config
	log  *logging.Logger
	http *http.Client
}

func New(cfg *config.Config, log *logging.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Network.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: !cfg.Network.TLSVerify,
		},
	}
	return &Client{
		cfg: cfg,
		log: log,
		http: &http.Client{
			Transport: tr,
			Jar:       jar,
			Timeout:   timeout,
		},
	}, nil
}

// absolute resolves a server path or absolute URL against the configured
// base.
func (c *Client) absolute(pathOrURL string) string {
	if strings.Contains(pathOrURL, "://") {
		return pathOrURL
	}
	return strings.TrimSuffix(c.cfg.Server.BaseURL, "/") + pathOrURL
}

func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if ua := c.cfg.Network.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	return c.http.Do(req)
}

// FetchListing retrieves the raw HTML of a directory page by server path.
// A 404 means the session is not authenticated, never a missing directory.
func (c *Client) FetchListing(ctx context.Context, listingPath string) (string, error) {
	target := c.absolute(listingPath)
	c.log.Debugf("fetch listing %s", logging.SanitizeURL(target))
	resp, err := c.get(ctx, target)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("listing %s: unexpected status: %s", listingPath, resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FetchIndex retrieves the raw whole-library JSON index. Same 404 auth
// convention as listings.
func (c *Client) FetchIndex(ctx context.Context) ([]byte, error) {
	target := c.absolute(c.cfg.Server.IndexPath)
	c.log.Debugf("fetch index %s", logging.SanitizeURL(target))
	resp, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index: unexpected status: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// FetchFile retrieves one file's binary content by server path or absolute
// URL. File fetches do not get the 404 auth treatment: a failed file is
// reported as-is and handled by the caller.
func (c *Client) FetchFile(ctx context.Context, fileURL string) ([]byte, error) {
	target := c.absolute(fileURL)
	c.log.Debugf("fetch file %s", logging.SanitizeURL(target))
	resp, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Login POSTs user/password form credentials to the login endpoint. On
// success the session cookie lands in the jar and subsequent fetches are
// authenticated; on failure the unauthenticated state stays engaged.
func (c *Client) Login(ctx context.Context, user, password string) error {
	form := url.Values{}
	form.Set("user", user)
	form.Set("password", password)
	body := form.Encode()
	c.log.Debugf("login as %s: %s", user, logging.SanitizeForm(body))

	target := c.absolute(c.cfg.Server.LoginPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if ua := c.cfg.Network.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("login failed: %s", resp.Status)
	}
	return nil
}

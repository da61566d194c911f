// Package hub retrieves single files from a Hugging Face compatible hub and
// keeps them in a local cache, returning the cached path to the caller.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/withObsrvr/econ-index-fetcher/internal/metrics"
)

// DefaultEndpoint is the public Hugging Face hub.
const DefaultEndpoint = "https://huggingface.co"

// Options configures a Client.
type Options struct {
	Endpoint   string        // defaults to DefaultEndpoint
	Token      string        // sent as a bearer token when set
	Revision   string        // defaults to "main"
	CacheDir   string        // required
	Timeout    time.Duration // per request; zero means none
	UserAgent  string
	HTTPClient *http.Client // overrides the gzip-aware default client
	Metrics    *metrics.Metrics
}

// Client fetches repo files through the cache.
type Client struct {
	endpoint  *url.URL
	token     string
	revision  string
	userAgent string
	cache     *Cache
	http      *http.Client
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// Result describes one Retrieve call.
type Result struct {
	Path   string // local cache path
	Commit string // commit the revision resolved to
	Cached bool   // served without a network request
	Bytes  int64  // bytes downloaded; zero on a cache hit
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	if opts.CacheDir == "" {
		return nil, fmt.Errorf("hub: CacheDir required")
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("hub: parse endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("hub: endpoint %q must be http or https", endpoint)
	}

	revision := opts.Revision
	if revision == "" {
		revision = "main"
	}
	if err := validateRelative("revision", revision); err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: gzhttp.Transport(http.DefaultTransport),
			Timeout:   opts.Timeout,
		}
	}
	// Copy so the redirect hook does not leak into a caller-owned client.
	hc := *httpClient
	hc.CheckRedirect = recordFirstHop(httpClient.CheckRedirect)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "econ-index-fetch"
	}

	return &Client{
		endpoint:  u,
		token:     opts.Token,
		revision:  revision,
		userAgent: userAgent,
		cache:     NewCache(opts.CacheDir),
		http:      &hc,
		metrics:   opts.Metrics,
		log:       slog.With("component", "hub"),
	}, nil
}

// FileURL returns the resolve URL for filename at the client's revision.
func (c *Client) FileURL(repoID, filename string, kind RepoKind) (string, error) {
	return resolveURL(c.endpoint, kind, repoID, c.revision, filename)
}

// Retrieve returns a local path holding filename from repoID, downloading it
// into the cache when it is not already there.
func (c *Client) Retrieve(ctx context.Context, repoID, filename string, kind RepoKind) (string, error) {
	res, err := c.RetrieveFile(ctx, repoID, filename, kind)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

// RetrieveFile is Retrieve with details about how the file was obtained.
func (c *Client) RetrieveFile(ctx context.Context, repoID, filename string, kind RepoKind) (*Result, error) {
	if err := ValidateRepoID(repoID); err != nil {
		return nil, err
	}
	if err := validateRelative("filename", filename); err != nil {
		return nil, err
	}
	rawURL, err := c.FileURL(repoID, filename, kind)
	if err != nil {
		return nil, err
	}

	log := c.log.With("repo", repoID, "file", filename, "revision", c.revision)

	if p, ok, err := c.cache.Lookup(kind, repoID, c.revision, filename); err != nil {
		return nil, err
	} else if ok {
		commit, _, _ := c.cache.ResolveRef(kind, repoID, c.revision)
		log.Debug("cache hit", "path", p)
		c.metrics.ObserveCacheHit()
		return &Result{Path: p, Commit: commit, Cached: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	hop := &firstHop{}
	req = req.WithContext(context.WithValue(ctx, firstHopKey{}, hop))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(c.endpoint, rawURL, resp)
	}

	// Files behind the CDN come back as a redirect; only the hub's own
	// reply carries the commit.
	commit := hop.header.Get("X-Repo-Commit")
	if commit == "" {
		commit = resp.Header.Get("X-Repo-Commit")
	}
	if validateRelative("commit", commit) != nil {
		commit = c.revision
	}

	p, n, err := c.cache.Store(kind, repoID, c.revision, commit, filename, resp.Body)
	if err != nil {
		return nil, err
	}

	c.metrics.ObserveDownload(n)
	log.Info("downloaded", "bytes", n, "commit", commit, "duration", time.Since(start).String())
	return &Result{Path: p, Commit: commit, Bytes: n}, nil
}

type firstHopKey struct{}

// firstHop holds the headers of the first response in a redirect chain.
type firstHop struct {
	header http.Header
}

// recordFirstHop wraps a CheckRedirect policy so the headers of the hub's
// redirect response are kept on the request's firstHop.
func recordFirstHop(next func(*http.Request, []*http.Request) error) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if hop, ok := req.Context().Value(firstHopKey{}).(*firstHop); ok && hop.header == nil && req.Response != nil {
			hop.header = req.Response.Header
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
}

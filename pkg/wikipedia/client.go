// Package wikipedia fetches plain-text articles from the MediaWiki Action API
// by exact title.
package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/sells-group/warehouse-rag/internal/resilience"
)

const (
	defaultBaseURL   = "https://en.wikipedia.org"
	defaultUserAgent = "warehouse-rag/1.0"
)

// ErrPageNotFound is returned when no article has exactly the requested
// title, or the title names a disambiguation page.
var ErrPageNotFound = errors.New("wikipedia: page not found")

// Client defines the article lookups used by the query pipeline.
type Client interface {
	GetPage(ctx context.Context, title string) (*Page, error)
}

// Page is a fetched article.
type Page struct {
	PageID  int    `json:"pageid"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Extract string `json:"extract"`
}

// APIError is returned when the API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wikipedia: HTTP %d: %s", e.StatusCode, e.Body)
}

// Slug returns the URL path segment for title: NFC-normalized with spaces
// replaced by underscores.
func Slug(title string) string {
	return strings.ReplaceAll(norm.NFC.String(strings.TrimSpace(title)), " ", "_")
}

// ArticleURL returns the canonical article URL for title under baseURL.
func ArticleURL(baseURL, title string) string {
	return strings.TrimRight(baseURL, "/") + "/wiki/" + url.PathEscape(Slug(title))
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent header. Wikimedia rejects anonymous
// clients.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithRetryPolicy overrides the retry policy for page reads.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	retry     resilience.Policy
}

// NewClient creates a new MediaWiki client.
func NewClient(opts ...Option) Client {
	retry := resilience.DefaultPolicy()
	retry.OnRetry = resilience.LogRetry("wikipedia", "get page")

	c := &httpClient{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		http:      &http.Client{Timeout: 30 * time.Second},
		retry:     retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queryResponse struct {
	Query struct {
		Pages []struct {
			PageID    int               `json:"pageid"`
			Title     string            `json:"title"`
			Missing   bool              `json:"missing"`
			Invalid   bool              `json:"invalid"`
			Extract   string            `json:"extract"`
			FullURL   string            `json:"fullurl"`
			PageProps map[string]string `json:"pageprops"`
		} `json:"pages"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// GetPage fetches the plain-text extract of the article titled exactly
// title. Redirects are followed and the resolved title is reported; no
// suggestion is attempted and disambiguation pages are refused.
func (c *httpClient) GetPage(ctx context.Context, title string) (*Page, error) {
	title = norm.NFC.String(strings.TrimSpace(title))
	if title == "" {
		return nil, eris.Wrap(ErrPageNotFound, "wikipedia: empty title")
	}

	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("formatversion", "2")
	q.Set("prop", "extracts|pageprops|info")
	q.Set("inprop", "url")
	q.Set("explaintext", "1")
	q.Set("ppprop", "disambiguation")
	q.Set("redirects", "1")
	q.Set("titles", title)

	resp, err := resilience.Do(ctx, c.retry, func(ctx context.Context) (*queryResponse, error) {
		var out queryResponse
		if err := c.get(ctx, "/w/api.php?"+q.Encode(), &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "wikipedia: get page %q", title)
	}
	if resp.Error != nil {
		return nil, eris.Errorf("wikipedia: get page %q: %s: %s", title, resp.Error.Code, resp.Error.Info)
	}
	if len(resp.Query.Pages) == 0 {
		return nil, eris.Wrapf(ErrPageNotFound, "wikipedia: %q", title)
	}

	p := resp.Query.Pages[0]
	if p.Missing || p.Invalid {
		return nil, eris.Wrapf(ErrPageNotFound, "wikipedia: %q", title)
	}
	if _, ok := p.PageProps["disambiguation"]; ok {
		return nil, eris.Wrapf(ErrPageNotFound, "wikipedia: %q is a disambiguation page", title)
	}

	pageURL := p.FullURL
	if pageURL == "" {
		pageURL = ArticleURL(c.baseURL, p.Title)
	}
	return &Page{
		PageID:  p.PageID,
		Title:   p.Title,
		URL:     pageURL,
		Extract: p.Extract,
	}, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resilience.ClassifyHTTP(&APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

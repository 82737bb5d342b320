// Package tensorlake is a client for the Tensorlake Document AI v2 API:
// file upload, parsing, page classification and structured extraction.
package tensorlake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/warehouse-rag/internal/resilience"
)

// Default base URL for the Document AI v2 API.
const defaultBaseURL = "https://api.tensorlake.ai/documents/v2"

// ChunkingSection splits parsed documents on section boundaries.
const ChunkingSection = "section"

// Client defines the Document AI operations used by the pipelines.
type Client interface {
	UploadFile(ctx context.Context, name string, content []byte) (*UploadResponse, error)
	Parse(ctx context.Context, req ParseRequest) (*JobResponse, error)
	Classify(ctx context.Context, req ClassifyRequest) (*JobResponse, error)
	Extract(ctx context.Context, req ExtractRequest) (*JobResponse, error)
	GetParseResult(ctx context.Context, parseID string) (*ParseResult, error)
}

// UploadResponse is the response from PUT /files.
type UploadResponse struct {
	FileID string `json:"file_id"`
}

// JobResponse is returned by every endpoint that starts an asynchronous job.
type JobResponse struct {
	ParseID string `json:"parse_id"`
}

// ParsingOptions tunes how a document is split.
type ParsingOptions struct {
	ChunkingStrategy string `json:"chunking_strategy,omitempty"`
}

// ParseRequest is the body for POST /parse. Exactly one of FileID and
// FileURL is set.
type ParseRequest struct {
	FileID         string          `json:"file_id,omitempty"`
	FileURL        string          `json:"file_url,omitempty"`
	MimeType       string          `json:"mime_type,omitempty"`
	ParsingOptions *ParsingOptions `json:"parsing_options,omitempty"`
}

// PageClassConfig describes one class pages can be tagged with.
type PageClassConfig struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ClassifyRequest is the body for POST /classify.
type ClassifyRequest struct {
	FileID              string            `json:"file_id,omitempty"`
	FileURL             string            `json:"file_url,omitempty"`
	PageClassifications []PageClassConfig `json:"page_classifications"`
}

// StructuredExtractionOptions names a JSON schema to extract.
type StructuredExtractionOptions struct {
	SchemaName string          `json:"schema_name"`
	JSONSchema json.RawMessage `json:"json_schema"`
}

// ExtractRequest is the body for POST /extract. PageRange is a comma
// separated list of 1-based page numbers.
type ExtractRequest struct {
	FileID                      string                        `json:"file_id,omitempty"`
	FileURL                     string                        `json:"file_url,omitempty"`
	PageRange                   string                        `json:"page_range,omitempty"`
	StructuredExtractionOptions []StructuredExtractionOptions `json:"structured_extraction_options"`
}

// ParseStatus is the lifecycle state of a job.
type ParseStatus string

const (
	StatusPending    ParseStatus = "pending"
	StatusProcessing ParseStatus = "processing"
	StatusSuccessful ParseStatus = "successful"
	StatusFailure    ParseStatus = "failure"
)

// ParseResult is the response from GET /parse/{id}.
type ParseResult struct {
	ParseID        string           `json:"parse_id"`
	Status         ParseStatus      `json:"status"`
	Error          string           `json:"error,omitempty"`
	Chunks         []Chunk          `json:"chunks,omitempty"`
	PageClasses    []PageClass      `json:"page_classes,omitempty"`
	StructuredData []StructuredData `json:"structured_data,omitempty"`
}

// Chunk is one parsed chunk of a document.
type Chunk struct {
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
}

// PageClass lists the pages tagged with a class.
type PageClass struct {
	PageClass   string `json:"page_class"`
	PageNumbers []int  `json:"page_numbers"`
}

// StructuredData is one extracted record. Data is either an object or a
// list of objects matching the schema.
type StructuredData struct {
	SchemaName  string          `json:"schema_name"`
	Data        json.RawMessage `json:"data"`
	PageNumbers json.RawMessage `json:"page_numbers,omitempty"`
}

// APIError is returned when Tensorlake responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tensorlake: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
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

// WithRetryPolicy overrides the retry policy applied to status reads.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.Policy
}

// NewClient creates a new Tensorlake client.
func NewClient(apiKey string, opts ...Option) Client {
	retry := resilience.DefaultPolicy()
	retry.OnRetry = resilience.LogRetry("tensorlake", "get parse result")

	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) UploadFile(ctx context.Context, name string, content []byte) (*UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, eris.Wrap(err, "tensorlake: create form file")
	}
	if _, err := part.Write(content); err != nil {
		return nil, eris.Wrap(err, "tensorlake: write form file")
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "tensorlake: close multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/files", &body)
	if err != nil {
		return nil, eris.Wrap(err, "tensorlake: create request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var resp UploadResponse
	if err := c.do(req, &resp); err != nil {
		return nil, eris.Wrapf(err, "tensorlake: upload %s", name)
	}
	return &resp, nil
}

func (c *httpClient) Parse(ctx context.Context, req ParseRequest) (*JobResponse, error) {
	var resp JobResponse
	if err := c.post(ctx, "/parse", req, &resp); err != nil {
		return nil, eris.Wrap(err, "tensorlake: start parse")
	}
	return &resp, nil
}

func (c *httpClient) Classify(ctx context.Context, req ClassifyRequest) (*JobResponse, error) {
	var resp JobResponse
	if err := c.post(ctx, "/classify", req, &resp); err != nil {
		return nil, eris.Wrap(err, "tensorlake: start classify")
	}
	return &resp, nil
}

func (c *httpClient) Extract(ctx context.Context, req ExtractRequest) (*JobResponse, error) {
	var resp JobResponse
	if err := c.post(ctx, "/extract", req, &resp); err != nil {
		return nil, eris.Wrap(err, "tensorlake: start extract")
	}
	return &resp, nil
}

// GetParseResult reads the state of a job, retrying transient failures.
func (c *httpClient) GetParseResult(ctx context.Context, parseID string) (*ParseResult, error) {
	resp, err := resilience.Do(ctx, c.retry, func(ctx context.Context) (*ParseResult, error) {
		var out ParseResult
		if err := c.get(ctx, "/parse/"+parseID, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "tensorlake: get parse result %s", parseID)
	}
	return resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}

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

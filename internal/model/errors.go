package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEmptyQuery rejects a blank question before any service is called.
var ErrEmptyQuery = errors.New("query must not be empty")

// ErrNoDataExtracted is returned when a structured extraction finished
// without producing a record. It marks a skipped document, not a failure.
var ErrNoDataExtracted = errors.New("no structured data extracted")

// ErrSearchUnavailable is returned by a retrieval tier the warehouse cannot
// serve, so the caller moves on to the next tier.
var ErrSearchUnavailable = errors.New("search capability unavailable")

// UpstreamServiceError wraps any failure of an external service.
type UpstreamServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamServiceError) Unwrap() error {
	return e.Err
}

// NewUpstreamError tags err as a failure of service while performing op.
func NewUpstreamError(service, op string, err error) *UpstreamServiceError {
	return &UpstreamServiceError{Service: service, Op: op, Err: err}
}

// ArticleNotFoundError is returned when no article title matches exactly.
type ArticleNotFoundError struct {
	Title  string
	Reason string
}

func (e *ArticleNotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("article %q not found: %s", e.Title, e.Reason)
	}
	return fmt.Sprintf("article %q not found", e.Title)
}

// PartialClassificationError lists the documents whose classification
// request failed. The remaining documents proceed.
type PartialClassificationError struct {
	Failed map[string]error
}

func (e *PartialClassificationError) Error() string {
	urls := make([]string, 0, len(e.Failed))
	for u := range e.Failed {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return fmt.Sprintf("classification failed for %d document(s): %s", len(urls), strings.Join(urls, ", "))
}

// IsUpstream reports whether err is, or wraps, an UpstreamServiceError.
func IsUpstream(err error) bool {
	var ue *UpstreamServiceError
	return errors.As(err, &ue)
}

// IsArticleNotFound reports whether err is, or wraps, an ArticleNotFoundError.
func IsArticleNotFound(err error) bool {
	var nf *ArticleNotFoundError
	return errors.As(err, &nf)
}

package model

import (
	"fmt"
	"strings"
)

// Article is the full text of an article fetched from the article source.
type Article struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// ArticleChunk is one section-aligned slice of an article as stored in the
// chunk table. ChunkID is the table's primary key.
type ArticleChunk struct {
	ChunkID string `json:"chunk_id"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	Index   int    `json:"index"`
}

// ChunkID derives the primary key for the chunk at index of title.
func ChunkID(title string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", title, index)
}

// NewArticleChunks assigns ids and indexes to the ordered chunk texts of title.
func NewArticleChunks(title string, texts []string) []ArticleChunk {
	chunks := make([]ArticleChunk, len(texts))
	for i, text := range texts {
		chunks[i] = ArticleChunk{
			ChunkID: ChunkID(title, i),
			Title:   title,
			Text:    text,
			Index:   i,
		}
	}
	return chunks
}

// RetrievedChunk is a chunk returned by a search tier, with the tier's score
// when the tier ranks results.
type RetrievedChunk struct {
	Title string  `json:"title"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// SearchTier names the retrieval strategy that produced a context.
type SearchTier string

const (
	SearchTierIndex      SearchTier = "search_index"
	SearchTierSimilarity SearchTier = "similarity"
	SearchTierSubstring  SearchTier = "substring"
	SearchTierSample     SearchTier = "sample"
	SearchTierNone       SearchTier = "none"
)

const (
	// ContextSeparator delimits chunk blocks in a retrieval context.
	ContextSeparator = "\n\n---\n\n"

	// NoContentMarker is the context used when the chunk table is empty.
	NoContentMarker = "No Wikipedia content available in the database."
)

// RetrievalContext is the per-query context handed to the answer generator.
// It is never persisted.
type RetrievalContext struct {
	Tier   SearchTier       `json:"tier"`
	Chunks []RetrievedChunk `json:"chunks,omitempty"`
	Text   string           `json:"-"`
}

// NewRetrievalContext renders chunks as "[From: <title>]\n<text>" blocks in
// order, joined by ContextSeparator.
func NewRetrievalContext(tier SearchTier, chunks []RetrievedChunk) RetrievalContext {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf("[From: %s]\n%s", c.Title, c.Text)
	}
	return RetrievalContext{
		Tier:   tier,
		Chunks: chunks,
		Text:   strings.Join(blocks, ContextSeparator),
	}
}

// String returns the rendered context text.
func (rc RetrievalContext) String() string {
	return rc.Text
}

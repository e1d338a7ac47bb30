// Package retriever indexes PDF travel documents and answers similarity
// queries over them. Chunks live in two places: a chromem-go vector index
// for semantic search and a sqlite FTS5 table for keyword search; queries
// merge both.
package retriever

import "context"

// Retriever is the query-side entry point used by the doc_search tool.
type Retriever struct {
	searcher *HybridSearcher
	topK     int
}

func New(searcher *HybridSearcher, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{searcher: searcher, topK: topK}
}

// Search returns the topK most relevant chunks for the query.
func (r *Retriever) Search(ctx context.Context, query string) ([]SearchResult, error) {
	return r.searcher.Search(ctx, query, r.topK)
}

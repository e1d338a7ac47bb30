package retriever

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"strings"

	"voyago/internal/db"
	"voyago/internal/embedding"
)

// SearchResult represents a single chunk match from hybrid search.
type SearchResult struct {
	ChunkID string
	Content string
	Source  string
	Page    int
	Score   float32
}

// HybridSearcher combines FTS5 keyword search over the chunk table with
// cosine similarity from the vector index.
type HybridSearcher struct {
	conn         *sql.DB
	index        *VectorIndex
	embedder     embedding.Provider // nil = FTS5-only mode
	vectorWeight float32
	ftsWeight    float32
}

func NewHybridSearcher(database *db.DB, index *VectorIndex, embedder embedding.Provider, vectorWeight, ftsWeight float32) *HybridSearcher {
	if embedder == nil || index == nil {
		// FTS-only mode: all weight on FTS.
		ftsWeight = 1.0
		vectorWeight = 0.0
	}
	return &HybridSearcher{
		conn:         database.Conn(),
		index:        index,
		embedder:     embedder,
		vectorWeight: vectorWeight,
		ftsWeight:    ftsWeight,
	}
}

// Search performs hybrid FTS5 + vector search, merging results.
func (h *HybridSearcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	type scored struct {
		result SearchResult
		fts    float32
		vec    float32
	}
	merged := make(map[string]*scored)

	// FTS5 keyword search.
	ftsResults, err := h.ftsSearch(ctx, query)
	if err != nil {
		slog.Debug("fts search error", "error", err)
	} else {
		for _, r := range ftsResults {
			merged[r.ChunkID] = &scored{result: r, fts: r.Score}
		}
	}

	// Vector search (if embedder available).
	if h.embedder != nil && h.index != nil {
		vecResults, err := h.vectorSearch(ctx, query)
		if err != nil {
			slog.Debug("vector search error", "error", err)
		} else {
			for _, r := range vecResults {
				if s, ok := merged[r.ChunkID]; ok {
					s.vec = r.Score
				} else {
					merged[r.ChunkID] = &scored{result: r, vec: r.Score}
				}
			}
		}
	}

	// Compute final scores and sort.
	results := make([]SearchResult, 0, len(merged))
	for _, s := range merged {
		r := s.result
		r.Score = h.vectorWeight*s.vec + h.ftsWeight*s.fts
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ftsSearch runs an FTS5 MATCH query with BM25 scoring, normalized to [0, 1].
func (h *HybridSearcher) ftsSearch(ctx context.Context, query string) ([]SearchResult, error) {
	const q = `
		SELECT c.id, c.content, c.source, c.page, bm25(chunks_fts) AS rank
		FROM chunks_fts f
		JOIN chunks c ON c.id = f.rowid
		WHERE chunks_fts MATCH ?
		ORDER BY rank
		LIMIT 50
	`

	rows, err := h.conn.QueryContext(ctx, q, escapeFTS5Query(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type raw struct {
		result SearchResult
		rank   float32
	}
	var raws []raw
	var minRank, maxRank float32
	first := true

	for rows.Next() {
		var r raw
		var id int64
		if err := rows.Scan(&id, &r.result.Content, &r.result.Source, &r.result.Page, &r.rank); err != nil {
			return nil, err
		}
		r.result.ChunkID = chunkID(id)
		// BM25 returns negative scores (more negative = better match).
		r.rank = -r.rank
		if first || r.rank < minRank {
			minRank = r.rank
		}
		if first || r.rank > maxRank {
			maxRank = r.rank
		}
		first = false
		raws = append(raws, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Normalize to [0, 1].
	span := maxRank - minRank
	results := make([]SearchResult, 0, len(raws))
	for _, r := range raws {
		var score float32
		if span > 0 {
			score = (r.rank - minRank) / span
		} else if len(raws) > 0 {
			score = 1.0
		}
		r.result.Score = score
		results = append(results, r.result)
	}

	return results, nil
}

// vectorSearch embeds the query and looks up nearest chunks in the index.
func (h *HybridSearcher) vectorSearch(ctx context.Context, query string) ([]SearchResult, error) {
	vecs, err := h.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, nil
	}

	hits, err := h.index.Query(ctx, vecs[0], 50)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Score <= 0 {
			continue
		}
		results = append(results, SearchResult{
			ChunkID: hit.ID,
			Content: hit.Content,
			Source:  hit.Source,
			Page:    hit.Page,
			Score:   hit.Score,
		})
	}
	return results, nil
}

// escapeFTS5Query quotes each term in the query to prevent FTS5 syntax errors
// from special characters like ?, *, AND, OR, NOT, etc.
func escapeFTS5Query(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return query
	}
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

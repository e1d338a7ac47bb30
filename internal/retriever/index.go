package retriever

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
)

// VectorIndex is a persistent chromem-go collection of document chunks.
// Embeddings are always supplied by the caller, so the collection never
// invokes its own embedding function.
type VectorIndex struct {
	db  *chromem.DB
	col *chromem.Collection
}

// Record is one chunk to be indexed.
type Record struct {
	ID        string
	Content   string
	Source    string
	Page      int
	Embedding []float32
}

// Hit is a vector search match.
type Hit struct {
	ID      string
	Content string
	Source  string
	Page    int
	Score   float32
}

func OpenIndex(path, collection string) (*VectorIndex, error) {
	vdb, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector index at %s: %w", path, err)
	}
	col, err := vdb.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", collection, err)
	}
	return &VectorIndex{db: vdb, col: col}, nil
}

func (ix *VectorIndex) Add(ctx context.Context, records []Record) error {
	for _, rec := range records {
		doc := chromem.Document{
			ID:      rec.ID,
			Content: rec.Content,
			Metadata: map[string]string{
				"source": rec.Source,
				"page":   strconv.Itoa(rec.Page),
			},
			Embedding: rec.Embedding,
		}
		if err := ix.col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("indexing chunk %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Query returns the topK nearest chunks by cosine similarity. topK is
// clamped to the collection size; an empty collection yields no hits.
func (ix *VectorIndex) Query(ctx context.Context, vec []float32, topK int) ([]Hit, error) {
	if n := ix.col.Count(); topK > n {
		topK = n
	}
	if topK <= 0 {
		return nil, nil
	}

	results, err := ix.col.QueryEmbedding(ctx, vec, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		page, _ := strconv.Atoi(res.Metadata["page"])
		hits = append(hits, Hit{
			ID:      res.ID,
			Content: res.Content,
			Source:  res.Metadata["source"],
			Page:    page,
			Score:   res.Similarity,
		})
	}
	return hits, nil
}

// DeleteSource removes all chunks indexed for a source document.
func (ix *VectorIndex) DeleteSource(ctx context.Context, source string) error {
	return ix.col.Delete(ctx, map[string]string{"source": source}, nil)
}

func (ix *VectorIndex) Count() int {
	return ix.col.Count()
}

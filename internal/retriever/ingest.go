package retriever

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"voyago/internal/db"
	"voyago/internal/embedding"
)

const embedBatchSize = 64

// Ingestor builds the chunk indexes from a directory of PDF documents.
// Files whose content hash is unchanged since the last run are skipped, so
// re-running ingestion against an unchanged corpus is cheap.
type Ingestor struct {
	queries  *db.Queries
	index    *VectorIndex
	embedder embedding.Provider
	chunker  *Chunker
	docsPath string
}

type IngestStats struct {
	Documents int
	Skipped   int
	Chunks    int
}

func NewIngestor(database *db.DB, index *VectorIndex, embedder embedding.Provider, chunker *Chunker, docsPath string) *Ingestor {
	return &Ingestor{
		queries:  db.New(database.Conn()),
		index:    index,
		embedder: embedder,
		chunker:  chunker,
		docsPath: docsPath,
	}
}

func (g *Ingestor) Run(ctx context.Context) (*IngestStats, error) {
	paths, err := FindPDFs(g.docsPath)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		slog.Warn("no PDF documents found", "path", g.docsPath)
	}

	stats := &IngestStats{}
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		n, err := g.ingestFile(ctx, rel)
		if err != nil {
			return stats, fmt.Errorf("ingesting %s: %w", rel, err)
		}
		if n < 0 {
			stats.Skipped++
			continue
		}
		stats.Documents++
		stats.Chunks += n
	}
	return stats, nil
}

// ingestFile indexes one document. Returns the number of chunks written, or
// -1 if the file was unchanged and skipped.
func (g *Ingestor) ingestFile(ctx context.Context, rel string) (int, error) {
	full := filepath.Join(g.docsPath, rel)

	data, err := os.ReadFile(full)
	if err != nil {
		return 0, err
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(data))

	existing, err := g.queries.GetDocumentByPath(ctx, rel)
	if err == nil && existing.ContentHash == hash {
		slog.Debug("document unchanged, skipping", "path", rel)
		return -1, nil
	}
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}

	pages, err := LoadPDF(full)
	if err != nil {
		return 0, err
	}

	type pending struct {
		page    int
		content string
	}
	var chunks []pending
	for _, pt := range pages {
		for _, content := range g.chunker.Split(pt.Text) {
			chunks = append(chunks, pending{page: pt.Page, content: content})
		}
	}
	slog.Info("document parsed", "path", rel, "pages", len(pages), "chunks", len(chunks))

	// Embed through the cache in batches.
	vectors := make([][]float32, 0, len(chunks))
	for i := 0; i < len(chunks); i += embedBatchSize {
		end := min(i+embedBatchSize, len(chunks))
		texts := make([]string, 0, end-i)
		for _, c := range chunks[i:end] {
			texts = append(texts, c.content)
		}
		vecs, err := g.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embedding chunks: %w", err)
		}
		vectors = append(vectors, vecs...)
	}

	// Replace any previous version of this document in both indexes.
	docID, err := g.queries.UpsertDocument(ctx, db.UpsertDocumentParams{
		Path:        rel,
		ContentHash: hash,
		Pages:       int64(len(pages)),
		ChunkCount:  int64(len(chunks)),
	})
	if err != nil {
		return 0, err
	}
	if err := g.queries.DeleteChunksByDocument(ctx, docID); err != nil {
		return 0, err
	}
	if err := g.index.DeleteSource(ctx, rel); err != nil {
		return 0, err
	}

	records := make([]Record, 0, len(chunks))
	for i, c := range chunks {
		id, err := g.queries.InsertChunk(ctx, db.InsertChunkParams{
			DocumentID: docID,
			Source:     rel,
			Page:       int64(c.page),
			Content:    c.content,
		})
		if err != nil {
			return 0, err
		}
		records = append(records, Record{
			ID:        chunkID(id),
			Content:   c.content,
			Source:    rel,
			Page:      c.page,
			Embedding: vectors[i],
		})
	}

	if err := g.index.Add(ctx, records); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// chunkID renders a sqlite chunk rowid as the vector index document ID, so
// hybrid search can merge hits from both indexes.
func chunkID(id int64) string {
	return strconv.FormatInt(id, 10)
}

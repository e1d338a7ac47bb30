package db

import (
	"context"
	"database/sql"
	"time"
)

// Queries wraps all SQL statements used by the stores. Methods follow the
// table + verb naming of the schema so call sites read like intent.
type Queries struct {
	conn *sql.DB
}

func New(conn *sql.DB) *Queries {
	return &Queries{conn: conn}
}

type Session struct {
	ID           string
	Channel      string
	Summary      sql.NullString
	SummaryUpTo  sql.NullInt64
	CreatedAt    time.Time
	LastActivity time.Time
}

type Turn struct {
	ID           int64
	SessionID    string
	UserMessage  string
	ResponseJson string
	Model        sql.NullString
	CreatedAt    time.Time
}

type Document struct {
	ID          int64
	Path        string
	ContentHash string
	Pages       int64
	ChunkCount  int64
	IngestedAt  time.Time
}

type EmbeddingCacheEntry struct {
	ContentHash string
	EmbedModel  string
	Embedding   []byte
	CreatedAt   time.Time
}

type UpsertSessionParams struct {
	ID      string
	Channel string
}

func (q *Queries) UpsertSession(ctx context.Context, arg UpsertSessionParams) error {
	_, err := q.conn.ExecContext(ctx, `
		INSERT INTO sessions (id, channel) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET last_activity = CURRENT_TIMESTAMP`,
		arg.ID, arg.Channel)
	return err
}

func (q *Queries) GetSession(ctx context.Context, id string) (Session, error) {
	row := q.conn.QueryRowContext(ctx, `
		SELECT id, channel, summary, summary_up_to, created_at, last_activity
		FROM sessions WHERE id = ?`, id)
	var s Session
	err := row.Scan(&s.ID, &s.Channel, &s.Summary, &s.SummaryUpTo, &s.CreatedAt, &s.LastActivity)
	return s, err
}

type ListSessionsRow struct {
	Session
	MessageCount int64
}

func (q *Queries) ListSessions(ctx context.Context) ([]ListSessionsRow, error) {
	rows, err := q.conn.QueryContext(ctx, `
		SELECT s.id, s.channel, s.summary, s.summary_up_to, s.created_at, s.last_activity,
		       COUNT(t.id)
		FROM sessions s
		LEFT JOIN turns t ON t.session_id = s.id
		GROUP BY s.id
		ORDER BY s.last_activity DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListSessionsRow
	for rows.Next() {
		var r ListSessionsRow
		if err := rows.Scan(&r.ID, &r.Channel, &r.Summary, &r.SummaryUpTo,
			&r.CreatedAt, &r.LastActivity, &r.MessageCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// DeleteIdleSessions removes sessions whose last activity is older than the
// cutoff and returns how many were deleted.
func (q *Queries) DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_activity < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type UpdateSessionSummaryParams struct {
	Summary     sql.NullString
	SummaryUpTo sql.NullInt64
	ID          string
}

func (q *Queries) UpdateSessionSummary(ctx context.Context, arg UpdateSessionSummaryParams) error {
	_, err := q.conn.ExecContext(ctx,
		`UPDATE sessions SET summary = ?, summary_up_to = ? WHERE id = ?`,
		arg.Summary, arg.SummaryUpTo, arg.ID)
	return err
}

type InsertTurnParams struct {
	SessionID    string
	UserMessage  string
	ResponseJson string
	Model        sql.NullString
}

func (q *Queries) InsertTurn(ctx context.Context, arg InsertTurnParams) error {
	_, err := q.conn.ExecContext(ctx, `
		INSERT INTO turns (session_id, user_message, response_json, model)
		VALUES (?, ?, ?, ?)`,
		arg.SessionID, arg.UserMessage, arg.ResponseJson, arg.Model)
	if err != nil {
		return err
	}
	_, err = q.conn.ExecContext(ctx,
		`UPDATE sessions SET last_activity = CURRENT_TIMESTAMP WHERE id = ?`, arg.SessionID)
	return err
}

func (q *Queries) GetTurnsBySession(ctx context.Context, sessionID string) ([]Turn, error) {
	return q.queryTurns(ctx, `
		SELECT id, session_id, user_message, response_json, model, created_at
		FROM turns WHERE session_id = ? ORDER BY id`, sessionID)
}

type GetTurnsAfterParams struct {
	SessionID string
	AfterID   int64
}

func (q *Queries) GetTurnsAfter(ctx context.Context, arg GetTurnsAfterParams) ([]Turn, error) {
	return q.queryTurns(ctx, `
		SELECT id, session_id, user_message, response_json, model, created_at
		FROM turns WHERE session_id = ? AND id > ? ORDER BY id`,
		arg.SessionID, arg.AfterID)
}

func (q *Queries) queryTurns(ctx context.Context, query string, args ...any) ([]Turn, error) {
	rows, err := q.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserMessage,
			&t.ResponseJson, &t.Model, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) CountTurnsBySession(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := q.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM turns WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

func (q *Queries) DeleteTurnsBySession(ctx context.Context, sessionID string) error {
	if _, err := q.conn.ExecContext(ctx,
		`DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	_, err := q.conn.ExecContext(ctx,
		`UPDATE sessions SET summary = NULL, summary_up_to = NULL WHERE id = ?`, sessionID)
	return err
}

func (q *Queries) GetDocumentByPath(ctx context.Context, path string) (Document, error) {
	row := q.conn.QueryRowContext(ctx, `
		SELECT id, path, content_hash, pages, chunk_count, ingested_at
		FROM documents WHERE path = ?`, path)
	var d Document
	err := row.Scan(&d.ID, &d.Path, &d.ContentHash, &d.Pages, &d.ChunkCount, &d.IngestedAt)
	return d, err
}

func (q *Queries) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := q.conn.QueryContext(ctx, `
		SELECT id, path, content_hash, pages, chunk_count, ingested_at
		FROM documents ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Path, &d.ContentHash, &d.Pages, &d.ChunkCount, &d.IngestedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type UpsertDocumentParams struct {
	Path        string
	ContentHash string
	Pages       int64
	ChunkCount  int64
}

func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) (int64, error) {
	var id int64
	err := q.conn.QueryRowContext(ctx, `
		INSERT INTO documents (path, content_hash, pages, chunk_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			pages = excluded.pages,
			chunk_count = excluded.chunk_count,
			ingested_at = CURRENT_TIMESTAMP
		RETURNING id`,
		arg.Path, arg.ContentHash, arg.Pages, arg.ChunkCount).Scan(&id)
	return id, err
}

func (q *Queries) DeleteChunksByDocument(ctx context.Context, documentID int64) error {
	_, err := q.conn.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id = ?`, documentID)
	return err
}

type InsertChunkParams struct {
	DocumentID int64
	Source     string
	Page       int64
	Content    string
}

func (q *Queries) InsertChunk(ctx context.Context, arg InsertChunkParams) (int64, error) {
	var id int64
	err := q.conn.QueryRowContext(ctx, `
		INSERT INTO chunks (document_id, source, page, content)
		VALUES (?, ?, ?, ?) RETURNING id`,
		arg.DocumentID, arg.Source, arg.Page, arg.Content).Scan(&id)
	return id, err
}

func (q *Queries) GetEmbeddingCache(ctx context.Context, contentHash string) (EmbeddingCacheEntry, error) {
	row := q.conn.QueryRowContext(ctx, `
		SELECT content_hash, embed_model, embedding, created_at
		FROM embedding_cache WHERE content_hash = ?`, contentHash)
	var e EmbeddingCacheEntry
	err := row.Scan(&e.ContentHash, &e.EmbedModel, &e.Embedding, &e.CreatedAt)
	return e, err
}

type UpsertEmbeddingCacheParams struct {
	ContentHash string
	EmbedModel  string
	Embedding   []byte
}

func (q *Queries) UpsertEmbeddingCache(ctx context.Context, arg UpsertEmbeddingCacheParams) error {
	_, err := q.conn.ExecContext(ctx, `
		INSERT INTO embedding_cache (content_hash, embed_model, embedding)
		VALUES (?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET
			embed_model = excluded.embed_model,
			embedding = excluded.embedding`,
		arg.ContentHash, arg.EmbedModel, arg.Embedding)
	return err
}

// PruneEmbeddingCache keeps the most recent maxEntries rows.
func (q *Queries) PruneEmbeddingCache(ctx context.Context, maxEntries int64) error {
	_, err := q.conn.ExecContext(ctx, `
		DELETE FROM embedding_cache WHERE content_hash NOT IN (
			SELECT content_hash FROM embedding_cache
			ORDER BY created_at DESC LIMIT ?
		)`, maxEntries)
	return err
}

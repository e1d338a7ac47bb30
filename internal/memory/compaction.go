package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"voyago/internal/config"
	"voyago/internal/db"
	"voyago/internal/history"
	"voyago/internal/llm"

	"github.com/openai/openai-go/v3/responses"
)

// Compactor summarizes older conversation turns to keep context windows
// manageable. Summarized turns stay in the database; recall replays only
// the turns after the cutoff.
type Compactor struct {
	queries  *db.Queries
	provider llm.Provider
	cfg      config.CompactionConfig
}

func NewCompactor(database *db.DB, provider llm.Provider, cfg config.CompactionConfig) *Compactor {
	return &Compactor{
		queries:  db.New(database.Conn()),
		provider: provider,
		cfg:      cfg,
	}
}

// MaybeCompact checks if a session has exceeded the turn threshold and
// summarizes older turns if so.
func (c *Compactor) MaybeCompact(ctx context.Context, sessionID string) {
	count, err := c.queries.CountTurnsBySession(ctx, sessionID)
	if err != nil {
		slog.Debug("compaction: count error", "session_id", sessionID, "error", err)
		return
	}

	if int(count) < c.cfg.TurnThreshold {
		return
	}

	session, err := c.queries.GetSession(ctx, sessionID)
	if err != nil {
		slog.Debug("compaction: get session error", "session_id", sessionID, "error", err)
		return
	}

	var afterID int64
	if session.SummaryUpTo.Valid {
		afterID = session.SummaryUpTo.Int64
	}
	turns, err := c.queries.GetTurnsAfter(ctx, db.GetTurnsAfterParams{
		SessionID: sessionID,
		AfterID:   afterID,
	})
	if err != nil {
		slog.Debug("compaction: get turns error", "session_id", sessionID, "error", err)
		return
	}

	if len(turns) <= c.cfg.KeepRecent {
		return
	}

	toSummarize := turns[:len(turns)-c.cfg.KeepRecent]
	cutoffID := toSummarize[len(toSummarize)-1].ID

	// Build text from turns to summarize, folding in any prior summary.
	var b strings.Builder
	if session.Summary.Valid && session.Summary.String != "" {
		fmt.Fprintf(&b, "Previous summary:\n%s\n\n", session.Summary.String)
	}
	b.WriteString("New turns to incorporate:\n")
	for _, turn := range toSummarize {
		fmt.Fprintf(&b, "User: %s\n", turn.UserMessage)
		for _, text := range history.AssistantTexts(turn.ResponseJson) {
			fmt.Fprintf(&b, "Assistant: %s\n", text)
		}
	}

	summary, err := c.summarize(ctx, b.String())
	if err != nil {
		slog.Debug("compaction: summarize error", "session_id", sessionID, "error", err)
		return
	}

	err = c.queries.UpdateSessionSummary(ctx, db.UpdateSessionSummaryParams{
		Summary:     sql.NullString{String: summary, Valid: true},
		SummaryUpTo: sql.NullInt64{Int64: cutoffID, Valid: true},
		ID:          sessionID,
	})
	if err != nil {
		slog.Debug("compaction: update summary error", "session_id", sessionID, "error", err)
		return
	}

	slog.Info("compaction: summarized turns",
		"session_id", sessionID,
		"turns_summarized", len(toSummarize),
		"cutoff_id", cutoffID,
	)
}

func (c *Compactor) summarize(ctx context.Context, text string) (string, error) {
	prompt := "Summarize the following conversation concisely, preserving key facts, decisions, and context needed for continuity. Output only the summary, no preamble.\n\n" + text

	input := []responses.ResponseInputItemUnionParam{
		responses.ResponseInputItemParamOfMessage(prompt, "user"),
	}

	resp, err := c.provider.ChatStream(ctx, input, nil, func(string) {})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	var summary strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" {
			msg := item.AsMessage()
			for _, part := range msg.Content {
				if part.Type == "output_text" {
					summary.WriteString(part.AsOutputText().Text)
				}
			}
		}
	}

	return summary.String(), nil
}

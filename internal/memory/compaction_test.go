package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"voyago/internal/config"
	"voyago/internal/db"

	"github.com/openai/openai-go/v3/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSummarizer struct {
	summary string
	calls   int
	prompt  string
}

func (f *fakeSummarizer) ChatStream(_ context.Context, input []responses.ResponseInputItemUnionParam, _ []responses.ToolUnionParam, _ func(string)) (*responses.Response, error) {
	f.calls++
	if len(input) > 0 && input[0].OfMessage != nil {
		f.prompt = input[0].OfMessage.Content.OfString.Value
	}
	raw := fmt.Sprintf(`{
		"id": "resp_sum",
		"model": "gpt-4o-mini",
		"output": [{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"status": "completed",
			"content": [{"type": "output_text", "text": %q, "annotations": []}]
		}]
	}`, f.summary)
	var resp responses.Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func newCompactionDB(t *testing.T) (*db.DB, *db.Queries) {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate())
	t.Cleanup(func() { database.Close() })
	return database, db.New(database.Conn())
}

func seedTurns(t *testing.T, queries *db.Queries, sessionID string, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, queries.UpsertSession(ctx, db.UpsertSessionParams{ID: sessionID, Channel: "api"}))
	for i := range n {
		require.NoError(t, queries.InsertTurn(ctx, db.InsertTurnParams{
			SessionID:    sessionID,
			UserMessage:  fmt.Sprintf("question %d", i+1),
			ResponseJson: fmt.Sprintf(`{"output":[{"id":"m%d","type":"message","role":"assistant","status":"completed","content":[{"type":"output_text","text":"answer %d","annotations":[]}]}]}`, i+1, i+1),
		}))
	}
}

func TestMaybeCompactBelowThreshold(t *testing.T) {
	database, queries := newCompactionDB(t)
	seedTurns(t, queries, "s1", 3)

	provider := &fakeSummarizer{summary: "unused"}
	c := NewCompactor(database, provider, config.CompactionConfig{TurnThreshold: 10, KeepRecent: 2})
	c.MaybeCompact(context.Background(), "s1")

	assert.Zero(t, provider.calls)
	session, err := queries.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, session.Summary.Valid)
}

func TestMaybeCompactSummarizesOldTurns(t *testing.T) {
	database, queries := newCompactionDB(t)
	seedTurns(t, queries, "s1", 6)

	provider := &fakeSummarizer{summary: "The user asked six travel questions."}
	c := NewCompactor(database, provider, config.CompactionConfig{TurnThreshold: 5, KeepRecent: 2})
	c.MaybeCompact(context.Background(), "s1")

	require.Equal(t, 1, provider.calls)
	assert.Contains(t, provider.prompt, "question 1")
	assert.Contains(t, provider.prompt, "answer 4")
	assert.NotContains(t, provider.prompt, "question 5", "recent turns stay out of the summary")

	session, err := queries.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, session.Summary.Valid)
	assert.Equal(t, "The user asked six travel questions.", session.Summary.String)
	require.True(t, session.SummaryUpTo.Valid)

	// Only the kept turns come after the cutoff.
	turns, err := queries.GetTurnsAfter(context.Background(), db.GetTurnsAfterParams{
		SessionID: "s1",
		AfterID:   session.SummaryUpTo.Int64,
	})
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "question 5", turns[0].UserMessage)
}

func TestMaybeCompactFoldsPriorSummary(t *testing.T) {
	database, queries := newCompactionDB(t)
	seedTurns(t, queries, "s1", 6)

	provider := &fakeSummarizer{summary: "first summary"}
	cfg := config.CompactionConfig{TurnThreshold: 5, KeepRecent: 2}
	c := NewCompactor(database, provider, cfg)
	c.MaybeCompact(context.Background(), "s1")
	require.Equal(t, 1, provider.calls)

	// More turns arrive past the threshold again.
	for i := 6; i < 12; i++ {
		require.NoError(t, queries.InsertTurn(context.Background(), db.InsertTurnParams{
			SessionID:    "s1",
			UserMessage:  fmt.Sprintf("question %d", i+1),
			ResponseJson: `{"output":[]}`,
		}))
	}

	provider.summary = "second summary"
	c.MaybeCompact(context.Background(), "s1")
	require.Equal(t, 2, provider.calls)
	assert.Contains(t, provider.prompt, "Previous summary:\nfirst summary")

	session, err := queries.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "second summary", session.Summary.String)
}

func TestMaybeCompactNothingNewToSummarize(t *testing.T) {
	database, queries := newCompactionDB(t)
	seedTurns(t, queries, "s1", 6)

	provider := &fakeSummarizer{summary: "summary"}
	c := NewCompactor(database, provider, config.CompactionConfig{TurnThreshold: 5, KeepRecent: 2})
	c.MaybeCompact(context.Background(), "s1")
	require.Equal(t, 1, provider.calls)

	// No new turns: everything after the cutoff fits within KeepRecent.
	c.MaybeCompact(context.Background(), "s1")
	assert.Equal(t, 1, provider.calls)
}

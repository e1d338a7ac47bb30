package memory

import (
	"context"

	"voyago/internal/history"

	"github.com/openai/openai-go/v3/responses"
)

// ConversationMemory recalls the conversation history for a session,
// summary-aware when the session has been compacted.
type ConversationMemory struct {
	store *history.Store
}

func NewConversationMemory(store *history.Store) *ConversationMemory {
	return &ConversationMemory{store: store}
}

func (m *ConversationMemory) Recall(ctx context.Context, sessionID string) ([]responses.ResponseInputItemUnionParam, error) {
	return m.store.LoadInputHistory(ctx, sessionID)
}

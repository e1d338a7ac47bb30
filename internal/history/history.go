package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"voyago/internal/db"

	"github.com/openai/openai-go/v3/responses"
)

type Store struct {
	q *db.Queries
}

func NewStore(database *db.DB) *Store {
	return &Store{q: db.New(database.Conn())}
}

func (s *Store) EnsureSession(ctx context.Context, sessionID, channel string) error {
	return s.q.UpsertSession(ctx, db.UpsertSessionParams{
		ID:      sessionID,
		Channel: channel,
	})
}

func (s *Store) SaveTurn(ctx context.Context, sessionID, userMessage string, resp *responses.Response) error {
	raw := resp.RawJSON()
	return s.q.InsertTurn(ctx, db.InsertTurnParams{
		SessionID:    sessionID,
		UserMessage:  userMessage,
		ResponseJson: raw,
		Model:        sql.NullString{String: resp.Model, Valid: resp.Model != ""},
	})
}

// LoadInputHistory reconstructs the conversation as input items for the next
// LLM call. When the session has been compacted, the stored summary replaces
// everything up to the cutoff and only later turns are replayed verbatim.
func (s *Store) LoadInputHistory(ctx context.Context, sessionID string) ([]responses.ResponseInputItemUnionParam, error) {
	var items []responses.ResponseInputItemUnionParam
	var afterID int64

	session, err := s.q.GetSession(ctx, sessionID)
	switch {
	case err == sql.ErrNoRows:
		// New session, nothing to load.
	case err != nil:
		return nil, err
	case session.Summary.Valid && session.Summary.String != "":
		summary := fmt.Sprintf("[Conversation summary]\n%s", session.Summary.String)
		items = append(items, responses.ResponseInputItemParamOfMessage(summary, "developer"))
		if session.SummaryUpTo.Valid {
			afterID = session.SummaryUpTo.Int64
		}
	}

	turns, err := s.q.GetTurnsAfter(ctx, db.GetTurnsAfterParams{
		SessionID: sessionID,
		AfterID:   afterID,
	})
	if err != nil {
		return nil, err
	}

	for _, turn := range turns {
		// Add user message.
		items = append(items, responses.ResponseInputItemParamOfMessage(turn.UserMessage, "user"))

		// Deserialize the stored response.
		var resp responses.Response
		if err := json.Unmarshal([]byte(turn.ResponseJson), &resp); err != nil {
			slog.Warn("skipping turn with invalid response JSON", "turn_id", turn.ID, "error", err)
			continue
		}

		// Convert output items to input items.
		items = append(items, OutputToInput(resp.Output)...)
	}

	return items, nil
}

// AssistantTexts extracts the assistant's output_text parts from a stored
// response JSON blob.
func AssistantTexts(responseJSON string) []string {
	var resp responses.Response
	if err := json.Unmarshal([]byte(responseJSON), &resp); err != nil {
		return nil
	}
	var texts []string
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		msg := item.AsMessage()
		for _, part := range msg.Content {
			if part.Type == "output_text" {
				texts = append(texts, part.AsOutputText().Text)
			}
		}
	}
	return texts
}

// OutputToInput converts response output items into input item params
// for the next API call. Each output type's ToParam() does a lossless
// round-trip via RawJSON.
func OutputToInput(output []responses.ResponseOutputItemUnion) []responses.ResponseInputItemUnionParam {
	var items []responses.ResponseInputItemUnionParam
	for _, item := range output {
		switch item.Type {
		case "message":
			v := item.AsMessage().ToParam()
			items = append(items, responses.ResponseInputItemUnionParam{OfOutputMessage: &v})
		case "function_call":
			v := item.AsFunctionCall().ToParam()
			items = append(items, responses.ResponseInputItemUnionParam{OfFunctionCall: &v})
		case "reasoning":
			v := item.AsReasoning().ToParam()
			items = append(items, responses.ResponseInputItemUnionParam{OfReasoning: &v})
		case "web_search_call":
			v := item.AsWebSearchCall().ToParam()
			items = append(items, responses.ResponseInputItemUnionParam{OfWebSearchCall: &v})
		case "file_search_call":
			v := item.AsFileSearchCall().ToParam()
			items = append(items, responses.ResponseInputItemUnionParam{OfFileSearchCall: &v})
		default:
			slog.Debug("skipping unknown output item type", "type", item.Type)
		}
	}
	return items
}

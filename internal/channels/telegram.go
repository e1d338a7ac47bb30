package channels

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"voyago/internal/agent"
)

const (
	telegramAPIBase      = "https://api.telegram.org/bot%s"
	telegramSendMsg      = "/sendMessage"
	telegramChatAction   = "/sendChatAction"
	telegramActionTyping = "typing"
)

// Telegram serves the assistant over a Telegram bot webhook. Each chat maps
// to its own session, so conversation context survives between messages.
type Telegram struct {
	botToken     string
	allowedUsers []int64
	runner       agent.Runner
	apiURL       string
}

func NewTelegram(botToken string, allowedUsers []int64, runner agent.Runner) *Telegram {
	return &Telegram{
		botToken:     botToken,
		allowedUsers: allowedUsers,
		runner:       runner,
		apiURL:       fmt.Sprintf(telegramAPIBase, botToken),
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook/telegram", t.handleWebhook)
}

type telegramUpdate struct {
	Message *telegramMessage `json:"message"`
}

type telegramMessage struct {
	Chat telegramChat `json:"chat"`
	From telegramUser `json:"from"`
	Text string       `json:"text"`
}

type telegramChat struct {
	ID int64 `json:"id"`
}

type telegramUser struct {
	ID int64 `json:"id"`
}

type telegramSendRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *Telegram) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update telegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Error("telegram: failed to decode update", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if len(t.allowedUsers) > 0 && !slices.Contains(t.allowedUsers, update.Message.From.ID) {
		slog.Warn("telegram: message from unauthorized user", "user_id", update.Message.From.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	chatID := update.Message.Chat.ID
	text := update.Message.Text

	slog.Info("telegram: received message", "chat_id", chatID)

	t.sendTyping(chatID)

	sessionID := fmt.Sprintf("telegram:%d", chatID)

	var answer strings.Builder
	err := t.runner.Run(r.Context(), sessionID, text, func(ev agent.Event) {
		if ev.Type == agent.EventToken {
			if s, ok := ev.Data.(string); ok {
				answer.WriteString(s)
			}
		}
	})
	if err != nil {
		slog.Error("telegram: agent run failed", "chat_id", chatID, "error", err)
		answer.Reset()
		answer.WriteString("Sorry, I ran into an error. Please try again.")
	}

	if answer.Len() == 0 {
		answer.WriteString("I have no answer for that, sorry.")
	}

	if err := t.sendMessage(chatID, answer.String()); err != nil {
		slog.Error("telegram: failed to send message", "chat_id", chatID, "error", err)
	}

	w.WriteHeader(http.StatusOK)
}

func (t *Telegram) sendTyping(chatID int64) {
	body, _ := json.Marshal(map[string]any{
		"chat_id": chatID,
		"action":  telegramActionTyping,
	})
	resp, err := http.Post(t.apiURL+telegramChatAction, "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Warn("telegram: failed to send typing action", "chat_id", chatID, "error", err)
		return
	}
	resp.Body.Close()
}

func (t *Telegram) sendMessage(chatID int64, text string) error {
	body, err := json.Marshal(telegramSendRequest{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return err
	}

	resp, err := http.Post(t.apiURL+telegramSendMsg, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned %d", resp.StatusCode)
	}
	return nil
}

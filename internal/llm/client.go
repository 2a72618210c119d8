// Package llm generates buyer-side negotiation replies through the DeepSeek
// chat-completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/procurebot/backend/internal/domain"
)

// Fallback replies returned instead of errors. The conversation must never
// stall on an upstream failure; a failed call degrades to one apology turn.
const (
	fallbackReply = "Sorry, there was a problem with the DeepSeek response."
	emptyReply    = "Sorry, I'm unable to provide a response at the moment."
)

const defaultTimeout = 60 * time.Second

// ReplyGenerator produces an automated buyer-side reply for a transcript.
// Implementations must always return a usable reply string, never an error.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, chat []domain.ChatMessage, target *domain.TargetDetails, stage int, mode string) string
}

// Client calls the DeepSeek chat-completions endpoint.
type Client struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a DeepSeek client. apiURL is the full chat-completions
// endpoint; apiKey may be empty, in which case every call falls back.
func NewClient(apiURL, apiKey, model string) *Client {
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
	MaxTokens   int                     `json:"max_tokens"`
	TopP        float64                 `json:"top_p"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateReply builds the stage-aware prompt, sends one completion request
// and returns the reply text. Any transport, authentication or
// malformed-response failure yields the fixed fallback string; no retry.
func (c *Client) GenerateReply(ctx context.Context, chat []domain.ChatMessage, target *domain.TargetDetails, stage int, mode string) string {
	reply, err := c.complete(ctx, chat, target, stage, mode)
	if err != nil {
		slog.Warn("DeepSeek completion failed", "error", err)
		return fallbackReply
	}
	if reply == "" {
		return emptyReply
	}
	return reply
}

func (c *Client) complete(ctx context.Context, chat []domain.ChatMessage, target *domain.TargetDetails, stage int, mode string) (string, error) {
	payload := chatCompletionRequest{
		Model:       c.model,
		Messages:    buildMessages(chat, target, stage, mode),
		Temperature: 0.2,
		MaxTokens:   500,
		TopP:        0.4,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a short error snippet for the log, then discard.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion status %d: %s", resp.StatusCode, snippet)
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

// buildMessages maps the transcript onto the completion interface's two-role
// scheme: buyer-side traffic (including previous automated replies) becomes
// the assistant, everything from the supplier side becomes the user.
func buildMessages(chat []domain.ChatMessage, target *domain.TargetDetails, stage int, mode string) []chatCompletionMessage {
	messages := make([]chatCompletionMessage, 0, len(chat)+1)
	messages = append(messages, chatCompletionMessage{
		Role:    "system",
		Content: BuildSystemPrompt(target, stage, mode),
	})
	for _, msg := range chat {
		role := "user"
		if msg.IsBuyerSide() {
			role = "assistant"
		}
		messages = append(messages, chatCompletionMessage{
			Role:    role,
			Content: fmt.Sprintf("%s: %s", msg.Sender, msg.Text),
		})
	}
	return messages
}

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/procurebot/backend/internal/domain"
)

func TestGenerateReplySuccess(t *testing.T) {
	var gotAuth string
	var gotPayload chatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("failed to decode request payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"choices":[{"message":{"content":"Please share a cost breakup."}}]}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "deepseek-chat")
	chat := []domain.ChatMessage{{Sender: domain.SenderSupplier, Text: "Our quote is 550"}}

	reply := client.GenerateReply(context.Background(), chat, sampleTarget(), 1, "")
	if reply != "Please share a cost breakup." {
		t.Errorf("unexpected reply: %q", reply)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotPayload.Model != "deepseek-chat" {
		t.Errorf("expected model deepseek-chat, got %q", gotPayload.Model)
	}
	if gotPayload.Temperature != 0.2 || gotPayload.MaxTokens != 500 || gotPayload.TopP != 0.4 {
		t.Errorf("unexpected decoding params: %+v", gotPayload)
	}
}

func TestGenerateReplyServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "deepseek-chat")
	reply := client.GenerateReply(context.Background(), nil, nil, 1, "")
	if reply != fallbackReply {
		t.Errorf("expected fallback reply, got %q", reply)
	}
}

func TestGenerateReplyMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(`{not json`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "deepseek-chat")
	reply := client.GenerateReply(context.Background(), nil, nil, 1, "")
	if reply != fallbackReply {
		t.Errorf("expected fallback reply, got %q", reply)
	}
}

func TestGenerateReplyEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(`{"choices":[]}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "deepseek-chat")
	reply := client.GenerateReply(context.Background(), nil, nil, 1, "")
	if reply != fallbackReply {
		t.Errorf("expected fallback reply, got %q", reply)
	}
}

func TestGenerateReplyUnreachable(t *testing.T) {
	// Closed server: the transport error must not propagate.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "test-key", "deepseek-chat")
	reply := client.GenerateReply(context.Background(), nil, nil, 1, "")
	if reply == "" {
		t.Error("reply must never be empty")
	}
	if reply != fallbackReply {
		t.Errorf("expected fallback reply, got %q", reply)
	}
}

func TestGenerateReplyEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "deepseek-chat")
	reply := client.GenerateReply(context.Background(), nil, nil, 1, "")
	if reply != emptyReply {
		t.Errorf("expected empty-content fallback, got %q", reply)
	}
}

package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindscope/backend/internal/analysis/crisis"
	api "github.com/zhouzirui/mindscope/backend/internal/inference"
	"github.com/zhouzirui/mindscope/backend/internal/model/chat"
)

type stubReplier struct {
	reply   string
	err     error
	calls   int
	history []chat.Turn
}

func (s *stubReplier) Reply(_ context.Context, _ string, history []chat.Turn) (string, error) {
	s.calls++
	s.history = history
	return s.reply, s.err
}

func setupRouter(replier Replier) *chi.Mux {
	r := chi.NewRouter()
	New(replier).RegisterRoutes(r)
	return r
}

func post(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHealth(t *testing.T) {
	r := setupRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || !body["ok"] {
		t.Fatalf("unexpected body %v (%v)", body, err)
	}
}

func TestAnalyzeRequiresText(t *testing.T) {
	resp := post(t, setupRouter(nil), "/analyze", map[string]string{"text": "   "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body api.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error != "text is required" {
		t.Fatalf("unexpected error %q", body.Error)
	}
}

func TestAnalyzeLabels(t *testing.T) {
	r := setupRouter(nil)

	resp := post(t, r, "/analyze", map[string]string{"text": "I am so happy and grateful today"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body api.AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Sentiment != "positive" {
		t.Fatalf("expected positive, got %q", body.Sentiment)
	}
	if body.Scores.Compound < 0.05 {
		t.Fatalf("expected positive compound, got %v", body.Scores.Compound)
	}

	resp = post(t, r, "/analyze", map[string]string{"text": "I feel terrible and sad"})
	body = api.AnalyzeResponse{}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Sentiment != "negative" {
		t.Fatalf("expected negative, got %q", body.Sentiment)
	}
}

func TestChatRequiresMessage(t *testing.T) {
	stub := &stubReplier{reply: "hi"}
	resp := post(t, setupRouter(stub), "/chat", map[string]string{"message": ""})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if stub.calls != 0 {
		t.Fatalf("replier should not be called")
	}
}

func TestChatCrisisShortCircuits(t *testing.T) {
	stub := &stubReplier{reply: "hi"}
	resp := post(t, setupRouter(stub), "/chat", map[string]string{"message": "I want to die"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body api.ChatResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if !body.Crisis || body.Reply != crisis.Response {
		t.Fatalf("expected crisis response, got %+v", body)
	}
	if stub.calls != 0 {
		t.Fatalf("replier should not be called on crisis input")
	}
}

func TestChatReplyAndHistoryFilter(t *testing.T) {
	stub := &stubReplier{reply: "Tell me more."}
	resp := post(t, setupRouter(stub), "/chat", api.ChatRequest{
		Message: "rough day",
		History: []chat.Turn{
			{Role: "user", Content: "hi"},
			{Role: "tool", Content: "drop me"},
			{Role: "Assistant", Content: "hello"},
		},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body api.ChatResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Reply != "Tell me more." || body.Crisis {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(stub.history) != 2 || stub.history[1].Role != chat.RoleAssistant {
		t.Fatalf("unexpected history passed to replier: %+v", stub.history)
	}
}

func TestChatEmptyReplyUsesDefault(t *testing.T) {
	resp := post(t, setupRouter(&stubReplier{reply: "  "}), "/chat", map[string]string{"message": "hey"})
	var body api.ChatResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Reply != DefaultReply {
		t.Fatalf("expected default reply, got %q", body.Reply)
	}
}

func TestChatBackendFailure(t *testing.T) {
	for name, replier := range map[string]Replier{
		"error": &stubReplier{err: errors.New("connection refused")},
		"nil":   nil,
	} {
		resp := post(t, setupRouter(replier), "/chat", map[string]string{"message": "hey"})
		if resp.Code != http.StatusBadGateway {
			t.Fatalf("%s: expected 502, got %d", name, resp.Code)
		}
		var body api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error != "LLM backend unavailable" {
			t.Fatalf("%s: unexpected error %q", name, body.Error)
		}
	}
}

func TestBatchSkipsEmptyAndEchoesTimestamp(t *testing.T) {
	resp := post(t, setupRouter(nil), "/batch", map[string]any{
		"items": []map[string]any{
			{"text": "great news", "ts": 1700000000000},
			{"text": "  "},
			{"text": "awful", "ts": "2024-01-01T00:00:00Z"},
		},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body api.BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(body.Results))
	}
	if body.Results[0].Label != "positive" || body.Results[1].Label != "negative" {
		t.Fatalf("unexpected labels %+v", body.Results)
	}
	if ts, ok := body.Results[0].TS.(float64); !ok || ts != 1700000000000 {
		t.Fatalf("unexpected ts %v", body.Results[0].TS)
	}
	if ts, ok := body.Results[1].TS.(string); !ok || ts != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected ts %v", body.Results[1].TS)
	}
}

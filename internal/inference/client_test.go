package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zhouzirui/mindscope/backend/internal/model/chat"
)

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/analyze" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "great day" {
			t.Errorf("unexpected text %q", req.Text)
		}
		fmt.Fprint(w, `{"sentiment":"positive","scores":{"positive":0.7,"neutral":0.3,"negative":0,"compound":0.6}}`)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL+"/", time.Second).Analyze(context.Background(), "great day")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Sentiment != "positive" || got.Scores.Positive != 0.7 || got.Scores.Compound != 0.6 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestAnalyzeFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"text is required"}`)
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		},
		"missing label": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		},
	}

	for name, handler := range cases {
		srv := httptest.NewServer(handler)
		_, err := NewClient(srv.URL, time.Second).Analyze(context.Background(), "x")
		srv.Close()

		var svcErr *ServiceError
		if !errors.As(err, &svcErr) {
			t.Fatalf("%s: expected ServiceError, got %v", name, err)
		}
		if name == "status" && (svcErr.Status != http.StatusBadRequest || svcErr.Message != "text is required") {
			t.Fatalf("%s: unexpected error %+v", name, svcErr)
		}
	}
}

func TestAnalyzeNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Analyze(context.Background(), "x")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Status != 0 {
		t.Fatalf("expected transport ServiceError, got %v", err)
	}
}

func TestConverseTrimsHistoryAndFillsEmptyReply(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"reply":"  ","crisis":true}`)
	}))
	defer srv.Close()

	history := []chat.Turn{{Role: "system", Content: "ignored"}}
	for i := 0; i < 20; i++ {
		history = append(history, chat.Turn{Role: chat.RoleUser, Content: fmt.Sprint(i)})
	}

	resp, err := NewClient(srv.URL, time.Second).Converse(context.Background(), "hello", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Reply != chat.EmptyReply || !resp.Crisis {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got.Message != "hello" || len(got.History) != MaxHistory || got.History[0].Content != "8" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, 20*time.Millisecond).Converse(context.Background(), "hi", nil)
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError on timeout, got %v", err)
	}
}

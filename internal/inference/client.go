// Package inference calls the sentiment and chat backend. Calls are single
// attempts: no retry, no backoff.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/mindscope/backend/internal/model/analysis"
	"github.com/zhouzirui/mindscope/backend/internal/model/chat"
)

// ServiceError is returned for any failed call: transport error, non-2xx
// status or malformed body.
type ServiceError struct {
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s returned HTTP %d: %s", e.Endpoint, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s returned HTTP %d", e.Endpoint, e.Status)
	default:
		return fmt.Sprintf("%s request failed: %v", e.Endpoint, e.Err)
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

var errMalformed = errors.New("malformed response body")

// Client talks to one backend base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client whose calls time out after timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Analyze scores text.
func (c *Client) Analyze(ctx context.Context, text string) (analysis.Result, error) {
	var out AnalyzeResponse
	if err := c.post(ctx, "/analyze", AnalyzeRequest{Text: text}, &out); err != nil {
		return analysis.Result{}, err
	}
	if out.Sentiment == "" {
		return analysis.Result{}, &ServiceError{Endpoint: "/analyze", Err: fmt.Errorf("%w: missing sentiment", errMalformed)}
	}
	return out, nil
}

// Converse sends message with the last MaxHistory turns. A blank reply is
// replaced by chat.EmptyReply.
func (c *Client) Converse(ctx context.Context, message string, history []chat.Turn) (ChatResponse, error) {
	req := ChatRequest{Message: message, History: TrimHistory(history)}

	var out ChatResponse
	if err := c.post(ctx, "/chat", req, &out); err != nil {
		return ChatResponse{}, err
	}
	if strings.TrimSpace(out.Reply) == "" {
		out.Reply = chat.EmptyReply
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &ServiceError{Endpoint: endpoint, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return &ServiceError{Endpoint: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &ServiceError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &apiErr)
		return &ServiceError{Endpoint: endpoint, Status: resp.StatusCode, Message: apiErr.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServiceError{Endpoint: endpoint, Err: fmt.Errorf("%w: %v", errMalformed, err)}
	}
	return nil
}

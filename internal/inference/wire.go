package inference

import (
	"github.com/zhouzirui/mindscope/backend/internal/model/analysis"
	"github.com/zhouzirui/mindscope/backend/internal/model/chat"
)

// MaxHistory is the number of recent turns sent with a chat request.
const MaxHistory = 12

// AnalyzeRequest is the /analyze body.
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// AnalyzeResponse is the /analyze reply.
type AnalyzeResponse = analysis.Result

// ChatRequest is the /chat body.
type ChatRequest struct {
	Message string      `json:"message"`
	History []chat.Turn `json:"history"`
}

// ChatResponse is the /chat reply.
type ChatResponse struct {
	Reply  string `json:"reply"`
	Crisis bool   `json:"crisis"`
}

// BatchItem is one /batch input; TS is echoed back untouched.
type BatchItem struct {
	Text string `json:"text"`
	TS   any    `json:"ts,omitempty"`
}

// BatchRequest is the /batch body.
type BatchRequest struct {
	Items []BatchItem `json:"items"`
}

// BatchResult is one scored /batch item.
type BatchResult struct {
	Text   string          `json:"text"`
	TS     any             `json:"ts"`
	Scores analysis.Scores `json:"scores"`
	Label  string          `json:"label"`
}

// BatchResponse is the /batch reply.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TrimHistory keeps the last MaxHistory user/assistant turns.
func TrimHistory(history []chat.Turn) []chat.Turn {
	out := make([]chat.Turn, 0, len(history))
	for _, turn := range history {
		if turn.Role == chat.RoleUser || turn.Role == chat.RoleAssistant {
			out = append(out, turn)
		}
	}
	if len(out) > MaxHistory {
		out = out[len(out)-MaxHistory:]
	}
	return out
}

package inference

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindscope/backend/internal/analysis/crisis"
	"github.com/zhouzirui/mindscope/backend/internal/analysis/sentiment"
	api "github.com/zhouzirui/mindscope/backend/internal/inference"
	"github.com/zhouzirui/mindscope/backend/internal/logging"
	"github.com/zhouzirui/mindscope/backend/internal/model/analysis"
	"github.com/zhouzirui/mindscope/backend/internal/model/chat"
	"github.com/zhouzirui/mindscope/backend/pkg/utils"
)

// DefaultReply 在模型返回空内容时使用。
const DefaultReply = "I'm here with you. Could you share a bit more about how you're feeling?"

const maxBodyBytes = 1 << 20

var errNoReplier = errors.New("no chat model configured")

// Replier 生成陪伴回复。
type Replier interface {
	Reply(ctx context.Context, message string, history []chat.Turn) (string, error)
}

// Handler 推理服务的HTTP处理器
type Handler struct {
	replier Replier
}

// New 创建推理处理器。replier 为 nil 时 /chat 返回 502。
func New(replier Replier) *Handler {
	return &Handler{replier: replier}
}

// RegisterRoutes 注册推理相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Post("/analyze", h.handleAnalyze)
	r.Post("/chat", h.handleChat)
	r.Post("/batch", h.handleBatch)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleAnalyze 计算单条文本的情感
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var payload api.AnalyzeRequest
	if err := utils.DecodeJSON(w, r, maxBodyBytes, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	utils.RespondJSON(w, http.StatusOK, score(text))
}

// handleChat 生成陪伴回复，危机内容直接返回支持性回复。
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload api.ChatRequest
	if err := utils.DecodeJSON(w, r, maxBodyBytes, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "Message is required")
		return
	}

	if crisis.Detect(message) {
		logging.L().Infow("[inference] crisis phrase detected, short-circuiting")
		utils.RespondJSON(w, http.StatusOK, api.ChatResponse{Reply: crisis.Response, Crisis: true})
		return
	}

	reply, err := h.reply(r.Context(), message, validTurns(payload.History))
	if err != nil {
		logging.L().Errorw("[inference] llm backend error", "error", err)
		utils.RespondError(w, http.StatusBadGateway, "LLM backend unavailable")
		return
	}
	if strings.TrimSpace(reply) == "" {
		reply = DefaultReply
	}

	utils.RespondJSON(w, http.StatusOK, api.ChatResponse{Reply: reply, Crisis: false})
}

// handleBatch 批量打分，空文本被跳过，ts 原样返回。
func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var payload api.BatchRequest
	if err := utils.DecodeJSON(w, r, maxBodyBytes, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results := make([]api.BatchResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		verdict := score(text)
		results = append(results, api.BatchResult{
			Text:   text,
			TS:     item.TS,
			Scores: verdict.Scores,
			Label:  verdict.Sentiment,
		})
	}

	utils.RespondJSON(w, http.StatusOK, api.BatchResponse{Results: results})
}

func (h *Handler) reply(ctx context.Context, message string, history []chat.Turn) (string, error) {
	if h.replier == nil {
		return "", errNoReplier
	}
	return h.replier.Reply(ctx, message, history)
}

func score(text string) analysis.Result {
	s := sentiment.Analyze(text)
	return analysis.Result{
		Sentiment: string(sentiment.LabelFor(s.Compound)),
		Scores: analysis.Scores{
			Positive: s.Positive,
			Neutral:  s.Neutral,
			Negative: s.Negative,
			Compound: s.Compound,
		},
	}
}

// validTurns 丢弃未知角色的历史条目。
func validTurns(history []chat.Turn) []chat.Turn {
	out := make([]chat.Turn, 0, len(history))
	for _, turn := range history {
		if !chat.ValidRole(turn.Role) {
			continue
		}
		turn.Role = strings.ToLower(turn.Role)
		out = append(out, turn)
	}
	return out
}

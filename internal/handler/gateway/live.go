package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindscope/backend/internal/gateway"
	"github.com/zhouzirui/mindscope/backend/internal/logging"
	"github.com/zhouzirui/mindscope/backend/internal/screen"
	"github.com/zhouzirui/mindscope/backend/pkg/utils"
)

const (
	heartbeatInterval = 15 * time.Second
	liveBuffer        = 16
)

// liveOpened 是流建立后的第一条无名数据块。
type liveOpened struct {
	Type   string      `json:"type"`
	Screen screen.Name `json:"screen"`
}

// liveFeed 把一个会话的屏幕帧转发到 channel。
type liveFeed struct {
	client *gateway.Client
	frames chan gateway.Outbound
	cancel context.CancelFunc
}

func openLiveFeed(parent context.Context, opts gateway.Options, name screen.Name, buffer int) (*liveFeed, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	f := &liveFeed{
		frames: make(chan gateway.Outbound, buffer),
		cancel: cancel,
	}
	f.client = gateway.NewClient(opts, func(msg gateway.Outbound) {
		if msg.Type != gateway.TypeScreen || msg.Screen != name {
			return
		}
		select {
		case f.frames <- msg:
		case <-ctx.Done():
		}
	})
	f.client.Start(ctx)
	return f, ctx
}

// close 先取消 ctx，让阻塞在 frames 上的 loop 退出，再拆除会话。
func (f *liveFeed) close() {
	f.cancel()
	f.client.Close()
}

// handleLive 以 SSE 推送 history 或 patterns 页面的实时状态，直到客户端断开。
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	name := screen.Name(chi.URLParam(r, "screen"))
	if name != screen.History && name != screen.Patterns {
		utils.RespondError(w, http.StatusNotFound, "unknown live screen")
		return
	}

	token := bearerToken(r)
	if token == "" {
		utils.RespondError(w, http.StatusUnauthorized, "missing token")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	feed, ctx := openLiveFeed(r.Context(), h.opts, name, liveBuffer)
	defer feed.close()
	client := feed.client

	if !client.Restore(ctx, token) {
		utils.RespondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if err := client.Navigate(ctx, name); err != nil {
		logging.L().Warnw("[sse] navigate failed", "screen", name, "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to open screen")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEChunk(w, flusher, liveOpened{Type: "open", Screen: name}); err != nil {
		return
	}

	logging.L().Infow("[sse] live stream opened", "screen", name)
	defer logging.L().Infow("[sse] live stream closed", "screen", name)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
			return
		case msg := <-feed.frames:
			if err := utils.SendSSEEvent(w, flusher, string(msg.Screen), msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}

// bearerToken 读取 Authorization 头，其次是 ?token= 参数（EventSource 无法设置请求头）。
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		const prefix = "Bearer "
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			return strings.TrimSpace(auth[len(prefix):])
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

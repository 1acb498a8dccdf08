package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/mindscope/backend/internal/gateway"
	gatewayHandler "github.com/zhouzirui/mindscope/backend/internal/handler/gateway"
	inferenceHandler "github.com/zhouzirui/mindscope/backend/internal/handler/inference"
	middlewarePkg "github.com/zhouzirui/mindscope/backend/internal/middleware"
	"github.com/zhouzirui/mindscope/backend/pkg/utils"
)

func baseRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	return r
}

// NewGatewayRouter wires the client-facing routes.
func NewGatewayRouter(opts gateway.Options) http.Handler {
	r := baseRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Route("/api", func(api chi.Router) {
		gatewayHandler.New(opts).RegisterRoutes(api)
	})

	return r
}

// NewInferenceRouter wires the sentiment and chat backend. replier may be nil
// when no model is configured.
func NewInferenceRouter(replier inferenceHandler.Replier) http.Handler {
	r := baseRouter()
	inferenceHandler.New(replier).RegisterRoutes(r)
	return r
}

package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var corsHandler = cors.Handler(cors.Options{
	AllowedOrigins:       []string{"*"},
	AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	AllowedHeaders:       []string{"Authorization", "Content-Type"},
	MaxAge:               300,
	OptionsSuccessStatus: http.StatusNoContent,
})

// CORS 允许浏览器前端跨域访问，预检请求直接返回 204。
func CORS(next http.Handler) http.Handler {
	return corsHandler(next)
}

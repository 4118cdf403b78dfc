// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/coursetrack/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	LearnerFinder     middleware.LearnerFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	RecordHTTPStatus  func(statusCode int)

	// サービス
	AuthService      AuthServiceInterface
	ProgressService  ProgressServiceInterface
	DirectoryService DirectoryServiceInterface

	// /metrics ハンドラー（nilの場合はルートを登録しない）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → StatusMetrics
//	→ (認証ルートのみ) Principal → RateLimit(General)
//
// /login、/health、/metricsは認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.RecordHTTPStatus != nil {
		r.Use(middleware.NewStatusMetricsMiddleware(deps.RecordHTTPStatus))
	}

	authHandler := NewAuthHandler(deps.AuthService)
	progressHandler := NewProgressHandler(deps.ProgressService)
	userHandler := NewUserHandler(deps.DirectoryService)

	// --- 認証不要のルート ---

	r.Post("/login", authHandler.Login)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Principal → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewPrincipalMiddleware(deps.LearnerFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 進捗同期（principalは自分自身のレコードのみ更新できる）
		r.Put("/users/{id}/progress", progressHandler.MarkCompleted)
		r.Put("/users/{id}/starred", progressHandler.ToggleStar)

		// PUT /users/{id}/notes - ノート保存（専用レート制限を追加）
		r.With(deps.RateLimiter.NoteSaveMiddleware()).Put("/users/{id}/notes", progressHandler.SaveNote)

		// ユーザーディレクトリ管理（管理者専用）
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin())

			r.Get("/users", userHandler.List)
			r.Post("/users", userHandler.Create)
			r.Delete("/users/{id}", userHandler.Delete)
		})
	})

	return r
}

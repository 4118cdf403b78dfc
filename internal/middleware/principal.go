// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/coursetrack/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストにprincipal IDを格納するためのキー。
var principalContextKey = contextKey("principal_id")

// roleContextKey はリクエストコンテキストにロールを格納するためのキー。
var roleContextKey = contextKey("principal_role")

// LearnerFinder はprincipalの解決に必要なインターフェース。
// repository.LearnerRepositoryの部分集合として定義する。
type LearnerFinder interface {
	FindByID(ctx context.Context, id string) (*model.Learner, error)
}

// NewPrincipalMiddleware はAuthorizationヘッダー（Bearer <principal-id>）から
// principalを解決するミドルウェアを返す。
// IDは外部のidentityコラボレーターが発行した不透明な識別子として扱い、
// 存在確認以上の検証は行わない（セキュリティ機構ではなくセッション識別）。
// 解決済みのprincipal IDとロールをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewPrincipalMiddleware(finder LearnerFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. AuthorizationヘッダーからBearerトークンを取得
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 2. principalの存在を確認
			learner, err := finder.FindByID(r.Context(), token)
			if err != nil {
				slog.Error("failed to resolve principal",
					slog.String("error", err.Error()),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if learner == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 3. principal IDとロールをコンテキストに注入
			ctx := context.WithValue(r.Context(), principalContextKey, learner.ID)
			ctx = context.WithValue(ctx, roleContextKey, learner.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin は管理者ロールを要求するミドルウェアを返す。
// NewPrincipalMiddlewareの後に配置すること。
func RequireAdmin() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(roleContextKey).(model.Role)
			if !ok || role != model.RoleAdmin {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext はリクエストコンテキストからprincipal IDを取得する。
// principalミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(principalContextKey).(string)
	if !ok || id == "" {
		return "", fmt.Errorf("principal ID not found in context")
	}
	return id, nil
}

// ContextWithPrincipal はコンテキストにprincipal IDとロールを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, id string, role model.Role) context.Context {
	ctx = context.WithValue(ctx, principalContextKey, id)
	return context.WithValue(ctx, roleContextKey, role)
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// 形式が不正な場合は空文字列を返す。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/coursetrack/internal/model"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0 / 60.0),
		GeneralBurst:    2,
		NoteSaveRate:    rate.Limit(1.0 / 60.0),
		NoteSaveBurst:   1,
		CleanupInterval: time.Minute,
	}
}

func authedRequest(principalID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(ContextWithPrincipal(req.Context(), principalID, model.RoleStudent))
}

// TestRateLimiter_AllowsWithinBurst はバースト内のリクエストが通過する
// ことをテストする。
func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest("learner-1"))
		if rec.Code != http.StatusOK {
			t.Errorf("リクエスト%d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
}

// TestRateLimiter_RejectsOverBurst はバースト超過が429とRetry-Afterを返す
// ことをテストする。
func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.NoteSaveMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("learner-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("1回目: status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("learner-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("2回目: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-Afterヘッダーがありません")
	}
}

// TestRateLimiter_IsolatesPrincipals はprincipalごとに独立したバケットを
// 持つことをテストする。
func TestRateLimiter_IsolatesPrincipals(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.NoteSaveMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("learner-1"))

	// learner-1のバケットが尽きてもlearner-2は通過する
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("learner-2"))
	if rec.Code != http.StatusOK {
		t.Errorf("別principal: status = %d, want %d", rec.Code, http.StatusOK)
	}

	if got := rl.NoteSaveLimiterCount(); got != 2 {
		t.Errorf("NoteSaveLimiterCount() = %d, want 2", got)
	}
}

// TestRateLimiter_GeneralAndNoteSaveAreIndependent はAPI全般とノート保存の
// バケットが独立していることをテストする。
func TestRateLimiter_GeneralAndNoteSaveAreIndependent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	noteHandler := rl.NoteSaveMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	generalHandler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	// ノート保存のバケットを使い切る
	rec := httptest.NewRecorder()
	noteHandler.ServeHTTP(rec, authedRequest("learner-1"))
	rec = httptest.NewRecorder()
	noteHandler.ServeHTTP(rec, authedRequest("learner-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("ノート保存2回目: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}

	// API全般のバケットは影響を受けない
	rec = httptest.NewRecorder()
	generalHandler.ServeHTTP(rec, authedRequest("learner-1"))
	if rec.Code != http.StatusOK {
		t.Errorf("API全般: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// TestRateLimiter_RequiresPrincipal はprincipalなしのリクエストが401になる
// ことをテストする。
func TestRateLimiter_RequiresPrincipal(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// TestLimiterPool_Cleanup は期限切れエントリがクリーンアップされることをテストする。
func TestLimiterPool_Cleanup(t *testing.T) {
	pool := &limiterPool{
		limiters: make(map[string]*principalLimiter),
		rateVal:  rate.Limit(1),
		burst:    1,
	}

	pool.getOrCreate("learner-1")
	pool.limiters["learner-1"].lastAccess = time.Now().Add(-time.Hour)
	pool.getOrCreate("learner-2")

	pool.cleanup(30 * time.Minute)

	if got := pool.count(); got != 1 {
		t.Errorf("count() = %d, want 1（期限切れエントリを削除）", got)
	}
	if _, exists := pool.limiters["learner-2"]; !exists {
		t.Error("有効なエントリが削除されました")
	}
}

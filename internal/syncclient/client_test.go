package syncclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// mockSyncMetrics は同期メトリクスの計上を記録するモック。
type mockSyncMetrics struct {
	mu        sync.Mutex
	failures  []string
	latencies int
}

func (m *mockSyncMetrics) RecordSyncFailure(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, operation)
}

func (m *mockSyncMetrics) RecordSyncLatency(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testRecord() Record {
	return Record{
		ID:        "learner-1",
		Username:  "hanako",
		Role:      "student",
		Completed: []string{"lec-1"},
		Starred:   []string{},
		Notes:     map[string]string{},
		CheckIns:  []string{"2026-08-31"},
	}
}

// TestClient_Login はログイン成功時にprincipal IDが保持され、レコードが
// ローカルビューに反映されることをテストする。
func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			t.Errorf("リクエスト = %s %s, want POST /login", r.Method, r.URL.Path)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("リクエストボディのデコードに失敗: %v", err)
		}
		if body["username"] != "hanako" {
			t.Errorf("username = %q, want %q", body["username"], "hanako")
		}

		json.NewEncoder(w).Encode(testRecord())
	}))
	defer server.Close()

	client := NewClient(server.Client(), testLogger(), nil, server.URL)

	record, err := client.Login(context.Background(), "hanako", "secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if record.ID != "learner-1" {
		t.Errorf("record.ID = %q, want %q", record.ID, "learner-1")
	}
	if got := client.PrincipalID(); got != "learner-1" {
		t.Errorf("PrincipalID() = %q, want %q", got, "learner-1")
	}
	if !client.View().HasCompleted("lec-1") {
		t.Error("View().HasCompleted(lec-1) = false, want true")
	}
}

// TestClient_ReportCompletion は完了報告が正しいパスとBearerヘッダーで
// 送信され、レスポンスでビューが置き換わることをテストする。
func TestClient_ReportCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			json.NewEncoder(w).Encode(Record{ID: "learner-1"})
			return
		}

		if r.Method != http.MethodPut || r.URL.Path != "/users/learner-1/progress" {
			t.Errorf("リクエスト = %s %s, want PUT /users/learner-1/progress", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer learner-1" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer learner-1")
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["lectureId"] != "lec-2" {
			t.Errorf("lectureId = %q, want %q", body["lectureId"], "lec-2")
		}

		record := testRecord()
		record.Completed = []string{"lec-1", "lec-2"}
		json.NewEncoder(w).Encode(record)
	}))
	defer server.Close()

	client := NewClient(server.Client(), testLogger(), nil, server.URL)
	if _, err := client.Login(context.Background(), "hanako", "secret"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := client.ReportCompletion(context.Background(), "lec-2"); err != nil {
		t.Fatalf("ReportCompletion returned error: %v", err)
	}

	if !client.View().HasCompleted("lec-2") {
		t.Error("View().HasCompleted(lec-2) = false, want true（サーバーレコードで置き換え）")
	}
}

// TestClient_DoesNotRetryOnServerError はサーバーエラー時にリトライせず、
// 失敗メトリクスが計上されることをテストする。
func TestClient_DoesNotRetryOnServerError(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	m := &mockSyncMetrics{}
	client := NewClient(server.Client(), testLogger(), m, server.URL)

	if _, err := client.Login(context.Background(), "hanako", "secret"); err == nil {
		t.Fatal("Login returned nil, want error")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 1 {
		t.Errorf("リクエスト試行回数 = %d, want 1（リトライしない）", attempts)
	}
	if len(m.failures) != 1 || m.failures[0] != "login" {
		t.Errorf("失敗メトリクス = %v, want [login]", m.failures)
	}
	if m.latencies != 1 {
		t.Errorf("レイテンシ計上回数 = %d, want 1", m.latencies)
	}
}

// TestClient_ToggleStarConvergesToServerState は古いローカルビューからの
// トグルでもサーバー権威のレコードに収束することをテストする。
func TestClient_ToggleStarConvergesToServerState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			json.NewEncoder(w).Encode(Record{ID: "learner-1", Starred: []string{"lec-9"}})
			return
		}

		// サーバー側では既にスター済みだったため、トグルで解除される
		record := testRecord()
		record.Starred = []string{}
		json.NewEncoder(w).Encode(record)
	}))
	defer server.Close()

	client := NewClient(server.Client(), testLogger(), nil, server.URL)
	if _, err := client.Login(context.Background(), "hanako", "secret"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	record, err := client.ToggleStar(context.Background(), "lec-9")
	if err != nil {
		t.Fatalf("ToggleStar returned error: %v", err)
	}

	if len(record.Starred) != 0 {
		t.Errorf("record.Starred = %v, want 空", record.Starred)
	}
	if client.View().HasStarred("lec-9") {
		t.Error("View().HasStarred(lec-9) = true, want false（サーバー状態に収束）")
	}
}

// TestClient_SaveNote はノート保存のリクエスト形式とビュー更新をテストする。
func TestClient_SaveNote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			json.NewEncoder(w).Encode(Record{ID: "learner-1"})
			return
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "要復習" {
			t.Errorf("text = %q, want %q", body["text"], "要復習")
		}

		record := testRecord()
		record.Notes = map[string]string{"lec-1": "要復習"}
		json.NewEncoder(w).Encode(record)
	}))
	defer server.Close()

	client := NewClient(server.Client(), testLogger(), nil, server.URL)
	if _, err := client.Login(context.Background(), "hanako", "secret"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if _, err := client.SaveNote(context.Background(), "lec-1", "要復習"); err != nil {
		t.Fatalf("SaveNote returned error: %v", err)
	}

	if got := client.View().Note("lec-1"); got != "要復習" {
		t.Errorf("View().Note(lec-1) = %q, want %q", got, "要復習")
	}
}

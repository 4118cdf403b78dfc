package config

import (
	"testing"
	"time"
)

// TestLoad_RequiredVariables は必須環境変数が未設定の場合にエラーになる
// ことをテストする。
func TestLoad_RequiredVariables(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("Load returned nil, want error（DATABASE_URL未設定）")
	}
}

// TestLoad_Defaults は任意の環境変数が未設定の場合にデフォルト値が使われる
// ことをテストする。
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/coursetrack_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want 120", cfg.RateLimitGeneral)
	}
	if cfg.RateLimitNoteSave != 30 {
		t.Errorf("RateLimitNoteSave = %d, want 30", cfg.RateLimitNoteSave)
	}
	if cfg.WatchTickInterval != 3*time.Second {
		t.Errorf("WatchTickInterval = %v, want %v", cfg.WatchTickInterval, 3*time.Second)
	}
	if cfg.WatchDefaultDuration != 30*time.Minute {
		t.Errorf("WatchDefaultDuration = %v, want %v", cfg.WatchDefaultDuration, 30*time.Minute)
	}
	if cfg.WatchCompletionRatio != 0.80 {
		t.Errorf("WatchCompletionRatio = %v, want 0.80", cfg.WatchCompletionRatio)
	}
}

// TestLoad_Overrides は環境変数による上書きをテストする。
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/coursetrack_test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("WATCH_TICK_INTERVAL", "5s")
	t.Setenv("WATCH_COMPLETION_RATIO", "0.9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "9090")
	}
	if cfg.WatchTickInterval != 5*time.Second {
		t.Errorf("WatchTickInterval = %v, want %v", cfg.WatchTickInterval, 5*time.Second)
	}
	if cfg.WatchCompletionRatio != 0.9 {
		t.Errorf("WatchCompletionRatio = %v, want 0.9", cfg.WatchCompletionRatio)
	}
}

// TestLoad_InvalidCompletionRatio は範囲外の完了割合がデフォルト値に
// フォールバックすることをテストする。
func TestLoad_InvalidCompletionRatio(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/coursetrack_test")

	for _, ratio := range []string{"0", "-0.5", "1.5", "abc"} {
		t.Setenv("WATCH_COMPLETION_RATIO", ratio)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.WatchCompletionRatio != 0.80 {
			t.Errorf("ratio=%q: WatchCompletionRatio = %v, want 0.80", ratio, cfg.WatchCompletionRatio)
		}
	}
}

// TestLoadTrack はtrackサブコマンド用の読み込みがDATABASE_URLを要求しない
// ことをテストする。
func TestLoadTrack(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SYNC_BASE_URL", "http://api.example.com")

	cfg := LoadTrack()

	if cfg.SyncBaseURL != "http://api.example.com" {
		t.Errorf("SyncBaseURL = %q, want %q", cfg.SyncBaseURL, "http://api.example.com")
	}
	if cfg.SyncTimeout != 10*time.Second {
		t.Errorf("SyncTimeout = %v, want %v", cfg.SyncTimeout, 10*time.Second)
	}
}

// Package syncclient は進捗同期APIのクライアントを提供する。
// ログインと進捗マージ操作の呼び出し、サーバー権威レコードの
// ローカルビューへの反映を含む。
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Record はサーバーが返す学習者レコード。
// 全操作のレスポンスはこの完全なレコードであり、クライアントは
// 差分適用ではなくこれで自身のビューを置き換える。
type Record struct {
	ID        string            `json:"id"`
	Username  string            `json:"username"`
	Role      string            `json:"role"`
	Completed []string          `json:"completed"`
	Starred   []string          `json:"starred"`
	Notes     map[string]string `json:"notes"`
	CheckIns  []string          `json:"checkIns"`
}

// HasCompleted は講義が完了済みかを返す。
func (r *Record) HasCompleted(lectureID string) bool {
	for _, id := range r.Completed {
		if id == lectureID {
			return true
		}
	}
	return false
}

// SyncMetrics は同期リクエストのメトリクス計上インターフェース。
type SyncMetrics interface {
	RecordSyncFailure(operation string)
	RecordSyncLatency(duration time.Duration)
}

// Client は進捗同期APIのクライアント。
// 各操作は1回だけ試行し、失敗してもリトライしない（全操作が冪等なため、
// 呼び出し元は安全に再実行できる）。成功時はサーバー権威のレコードを
// LocalViewに反映する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    SyncMetrics
	baseURL    string
	view       *LocalView

	principalID string
}

// NewClient はClientの新しいインスタンスを生成する。
// metricsはnil可。
func NewClient(httpClient *http.Client, logger *slog.Logger, metrics SyncMetrics, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
		baseURL:    baseURL,
		view:       NewLocalView(),
	}
}

// View はローカルビューを返す。
func (c *Client) View() *LocalView {
	return c.view
}

// PrincipalID はログイン済みのprincipal IDを返す。未ログインなら空文字列。
func (c *Client) PrincipalID() string {
	return c.principalID
}

// Login は資格情報でログインし、学習者レコードを取得する。
// 以降の操作はこのレコードのIDをprincipalとして送信する。
func (c *Client) Login(ctx context.Context, username, password string) (*Record, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	record, err := c.do(ctx, http.MethodPost, "/login", body, "login")
	if err != nil {
		return nil, err
	}

	c.principalID = record.ID
	c.view.Apply(record)

	return record, nil
}

// ReportCompletion は講義完了をサーバーに報告する。
// 既に完了済みの場合もサーバー側でno-opとなり同じレコードが返る。
func (c *Client) ReportCompletion(ctx context.Context, lectureID string) error {
	body := map[string]string{
		"lectureId": lectureID,
	}

	path := fmt.Sprintf("/users/%s/progress", c.principalID)
	record, err := c.do(ctx, http.MethodPut, path, body, "progress")
	if err != nil {
		return err
	}

	c.view.Apply(record)
	return nil
}

// ToggleStar は講義のスター状態を反転する。
// サーバーが返す権威あるレコードでローカルビューを置き換えるため、
// 古いビューからのトグルでもレスポンス適用後に正しい状態へ収束する。
func (c *Client) ToggleStar(ctx context.Context, lectureID string) (*Record, error) {
	body := map[string]string{
		"lectureId": lectureID,
	}

	path := fmt.Sprintf("/users/%s/starred", c.principalID)
	record, err := c.do(ctx, http.MethodPut, path, body, "starred")
	if err != nil {
		return nil, err
	}

	c.view.Apply(record)
	return record, nil
}

// SaveNote は講義のノートを保存する。last write wins。
func (c *Client) SaveNote(ctx context.Context, lectureID, text string) (*Record, error) {
	body := map[string]string{
		"lectureId": lectureID,
		"text":      text,
	}

	path := fmt.Sprintf("/users/%s/notes", c.principalID)
	record, err := c.do(ctx, http.MethodPut, path, body, "notes")
	if err != nil {
		return nil, err
	}

	c.view.Apply(record)
	return record, nil
}

// do はJSONリクエストを1回実行し、学習者レコードをデコードして返す。
// リトライは行わない。
func (c *Client) do(ctx context.Context, method, path string, body any, operation string) (*Record, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.principalID != "" {
		req.Header.Set("Authorization", "Bearer "+c.principalID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.RecordSyncLatency(time.Since(start))
	}
	if err != nil {
		c.recordFailure(operation, err.Error())
		return nil, fmt.Errorf("同期リクエストの実行に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordFailure(operation, fmt.Sprintf("http status %d", resp.StatusCode))
		return nil, fmt.Errorf("同期APIがステータス %d を返しました", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure(operation, err.Error())
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var record Record
	if err := json.Unmarshal(respBody, &record); err != nil {
		c.recordFailure(operation, err.Error())
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return &record, nil
}

// recordFailure は同期失敗をメトリクスとログに記録する。
func (c *Client) recordFailure(operation, reason string) {
	if c.metrics != nil {
		c.metrics.RecordSyncFailure(operation)
	}
	c.logger.Error("進捗同期に失敗しました",
		slog.String("operation", operation),
		slog.String("reason", reason),
	)
}

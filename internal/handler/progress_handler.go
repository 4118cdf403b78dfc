package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/coursetrack/internal/middleware"
	"github.com/hitoshi/coursetrack/internal/model"
)

// ProgressServiceInterface は進捗ハンドラーが必要とするサービスインターフェース。
// 4操作はすべて冪等で、更新後の完全な学習者レコードを返す。
type ProgressServiceInterface interface {
	// MarkCompleted は講義をcompleted集合に追加する。既に存在する場合はno-op。
	MarkCompleted(ctx context.Context, principalID, lectureID string) (*model.Learner, error)
	// ToggleStar はスター状態を反転する。
	ToggleStar(ctx context.Context, principalID, lectureID string) (*model.Learner, error)
	// SaveNote はノートを上書き保存する（last write wins）。
	SaveNote(ctx context.Context, principalID, lectureID, text string) (*model.Learner, error)
}

// ProgressHandler は進捗同期のHTTPハンドラー。
type ProgressHandler struct {
	service ProgressServiceInterface
}

// NewProgressHandler はProgressHandlerを生成する。
func NewProgressHandler(service ProgressServiceInterface) *ProgressHandler {
	return &ProgressHandler{
		service: service,
	}
}

// --- リクエスト/レスポンス型 ---

// progressRequest は進捗更新リクエストのボディ。
type progressRequest struct {
	LectureID string `json:"lectureId"`
}

// noteRequest はノート保存リクエストのボディ。
type noteRequest struct {
	LectureID string `json:"lectureId"`
	Text      string `json:"text"`
}

// learnerResponse は学習者レコードの統一レスポンス。
// completed/starredは重複なしの順序付きリスト、notesは講義IDキーのオブジェクト、
// checkInsはYYYY-MM-DD文字列のリストとしてシリアライズする。
// パスワードハッシュは含めない。
type learnerResponse struct {
	ID        string            `json:"id"`
	Username  string            `json:"username"`
	Role      string            `json:"role"`
	Completed []string          `json:"completed"`
	Starred   []string          `json:"starred"`
	Notes     map[string]string `json:"notes"`
	CheckIns  []string          `json:"checkIns"`
}

// toLearnerResponse はドメインのLearnerをレスポンス型に変換する。
// nilスライス/マップは空値に正規化し、JSONでnullにならないようにする。
func toLearnerResponse(l *model.Learner) learnerResponse {
	resp := learnerResponse{
		ID:        l.ID,
		Username:  l.Username,
		Role:      string(l.Role),
		Completed: l.Completed,
		Starred:   l.Starred,
		Notes:     l.Notes,
		CheckIns:  l.CheckIns,
	}
	if resp.Completed == nil {
		resp.Completed = []string{}
	}
	if resp.Starred == nil {
		resp.Starred = []string{}
	}
	if resp.Notes == nil {
		resp.Notes = map[string]string{}
	}
	if resp.CheckIns == nil {
		resp.CheckIns = []string{}
	}
	return resp
}

// MarkCompleted は講義の完了を記録する。
// PUT /users/:id/progress
func (h *ProgressHandler) MarkCompleted(w http.ResponseWriter, r *http.Request) {
	principalID, ok := h.resolvePrincipal(w, r)
	if !ok {
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}
	if req.LectureID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidLectureIDError())
		return
	}

	learner, err := h.service.MarkCompleted(r.Context(), principalID, req.LectureID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeLearnerResponse(w, learner)
}

// ToggleStar は講義のスター状態を反転する。
// PUT /users/:id/starred
func (h *ProgressHandler) ToggleStar(w http.ResponseWriter, r *http.Request) {
	principalID, ok := h.resolvePrincipal(w, r)
	if !ok {
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}
	if req.LectureID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidLectureIDError())
		return
	}

	learner, err := h.service.ToggleStar(r.Context(), principalID, req.LectureID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeLearnerResponse(w, learner)
}

// SaveNote は講義のノートを保存する。
// PUT /users/:id/notes
func (h *ProgressHandler) SaveNote(w http.ResponseWriter, r *http.Request) {
	principalID, ok := h.resolvePrincipal(w, r)
	if !ok {
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}
	if req.LectureID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidLectureIDError())
		return
	}

	learner, err := h.service.SaveNote(r.Context(), principalID, req.LectureID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeLearnerResponse(w, learner)
}

// resolvePrincipal は認証済みprincipalを取得し、パス上のIDとの一致を検証する。
// principalは自分自身のレコードのみ更新できる。
func (h *ProgressHandler) resolvePrincipal(w http.ResponseWriter, r *http.Request) (string, bool) {
	principalID, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return "", false
	}

	if pathID := chi.URLParam(r, "id"); pathID != "" && pathID != principalID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return "", false
	}

	return principalID, true
}

// --- 共通ヘルパー ---

// writeLearnerResponse は学習者レコードをJSONで書き込む。
func writeLearnerResponse(w http.ResponseWriter, l *model.Learner) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toLearnerResponse(l))
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeUnauthorizedResponse は401の統一レスポンスを書き込む。
func writeUnauthorizedResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidBodyResponse はリクエストボディ不正の統一レスポンスを書き込む。
func writeInvalidBodyResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeLearnerNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidLectureID, model.ErrCodeInvalidUsername, model.ErrCodeDuplicateUsername:
		return http.StatusBadRequest
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

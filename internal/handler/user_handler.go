package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/coursetrack/internal/model"
)

// DirectoryServiceInterface はユーザー管理ハンドラーが必要とするサービスインターフェース。
type DirectoryServiceInterface interface {
	Create(ctx context.Context, username, password string, role model.Role) (*model.Learner, error)
	List(ctx context.Context) ([]*model.Learner, error)
	Delete(ctx context.Context, id string) error
}

// UserHandler はユーザーディレクトリ管理（管理者専用）のHTTPハンドラー。
type UserHandler struct {
	service DirectoryServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service DirectoryServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// createUserRequest はアカウント作成リクエストのボディ。
type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// List は全学習者を返す。
// GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	learners, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]learnerResponse, 0, len(learners))
	for _, l := range learners {
		resp = append(resp, toLearnerResponse(l))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Create は学習者アカウントを作成する。
// POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	learner, err := h.service.Create(r.Context(), req.Username, req.Password, model.Role(req.Role))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toLearnerResponse(learner))
}

// Delete は学習者アカウントを削除する。
// DELETE /users/:id
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "学習者IDが指定されていません。",
			Category: "validation",
			Action:   "IDを指定してください。",
		})
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/tubehub/internal/middleware"
	"github.com/hitoshi/tubehub/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetCurrent は現在のユーザーの公開射影を返す。
	GetCurrent(ctx context.Context, userID string) (*model.PublicUser, error)
	// UpdateProfile は表示名とメールアドレスを更新する。
	UpdateProfile(ctx context.Context, userID, fullName, email string) (*model.PublicUser, error)
	// UpdateAvatar はローカルファイルをアップロードしてアバター参照を置き換える。
	UpdateAvatar(ctx context.Context, userID, localPath string) (*model.PublicUser, error)
	// UpdateAvatarFromURL は外部URLの画像を取り込んでアバター参照を置き換える。
	UpdateAvatarFromURL(ctx context.Context, userID, rawURL string) (*model.PublicUser, error)
	// UpdateCoverImage はローカルファイルをアップロードしてカバー参照を置き換える。
	UpdateCoverImage(ctx context.Context, userID, localPath string) (*model.PublicUser, error)
}

// UserHandler はプロフィール管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// updateAccountRequest はプロフィール更新リクエストのボディ。
type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// importAvatarRequest はURL取り込みによるアバター更新リクエストのボディ。
type importAvatarRequest struct {
	URL string `json:"url"`
}

// CurrentUser は現在のユーザー情報を返す。
// GET /api/v1/users/current-user
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetCurrent(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateAccount は表示名とメールアドレスの更新を処理する。
// PATCH /api/v1/users/update-account
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, req.FullName, req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateAvatar はアバター画像の更新を処理する。
// PATCH /api/v1/users/update-avatar
// multipart/form-dataのavatarファイル、またはJSONボディのURL取り込みに対応する。
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	// JSONボディの場合は外部URLからの取り込み
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req importAvatarRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeInvalidRequestBody(w)
			return
		}

		user, err := h.service.UpdateAvatarFromURL(r.Context(), userID, req.URL)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	path, cleanup, err := saveFormFile(r, "avatar")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer cleanup()

	user, err := h.service.UpdateAvatar(r.Context(), userID, path)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateCoverImage はカバー画像の更新を処理する。
// PATCH /api/v1/users/update-cover-image (multipart/form-data)
func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	path, cleanup, err := saveFormFile(r, "coverImage")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer cleanup()

	user, err := h.service.UpdateCoverImage(r.Context(), userID, path)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

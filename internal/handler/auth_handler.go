package handler

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/hitoshi/tubehub/internal/auth"
	"github.com/hitoshi/tubehub/internal/middleware"
	"github.com/hitoshi/tubehub/internal/model"
)

// maxMultipartMemory はマルチパート解析時にメモリに保持する上限（バイト）。
// 超過分は自動的に一時ファイルへ書き出される。
const maxMultipartMemory = 10 << 20

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録する。
	Register(ctx context.Context, input auth.RegisterInput) (*model.PublicUser, error)
	// Login は認証情報を検証してトークンペアを発行する。
	Login(ctx context.Context, usernameOrEmail, password string) (*auth.LoginResult, error)
	// Logout は保存済みリフレッシュトークンをクリアする。
	Logout(ctx context.Context, userID string) error
	// Refresh はリフレッシュトークンを検証して新しいトークンペアを発行する。
	Refresh(ctx context.Context, presentedToken string) (*model.TokenPair, error)
	// ChangePassword は現在のパスワードを検証して新しいパスワードに置き換える。
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// AuthHandlerConfig は認証ハンドラーのCookie設定。
type AuthHandlerConfig struct {
	CookieSecure    bool
	CookieDomain    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AuthHandler は認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// loginRequest はログインリクエストのボディ。
// usernameとemailはどちらか一方があればよい。
type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	User         *model.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

// refreshRequest はトークン再発行リクエストのボディ。
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// changePasswordRequest はパスワード変更リクエストのボディ。
type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Register は新規ユーザー登録を処理する。
// POST /api/v1/users/register (multipart/form-data)
// avatarファイルは必須、coverImageファイルは任意。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	input := auth.RegisterInput{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}

	// アップロードファイルを一時ファイルに書き出し、処理後に削除する。
	// ファイル未添付は空パスとして扱い、サービス層の必須チェックに委ねる。
	avatarPath, cleanupAvatar, err := saveFormFile(r, "avatar")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer cleanupAvatar()
	input.AvatarPath = avatarPath

	coverPath, cleanupCover, err := saveFormFile(r, "coverImage")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer cleanupCover()
	input.CoverPath = coverPath

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login はログインを処理する。
// POST /api/v1/users/login
// 成功時はトークンペアをHTTP Only Cookieとレスポンスボディの両方で返す。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	result, err := h.service.Login(r.Context(), identifier, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setAuthCookies(w, result.Tokens)
	writeJSON(w, http.StatusOK, loginResponse{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	})
}

// Logout はログアウトを処理する。
// POST /api/v1/users/logout
// 保存済みリフレッシュトークンを失効させ、Cookieを破棄する。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Logout(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.clearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// RefreshToken はトークンペアの再発行を処理する。
// POST /api/v1/users/refresh-token
// リフレッシュトークンはCookieまたはリクエストボディから読み取る（Cookie優先）。
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var presented string
	if cookie, err := r.Cookie(middleware.RefreshTokenCookieName); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	pair, err := h.service.Refresh(r.Context(), presented)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setAuthCookies(w, *pair)
	writeJSON(w, http.StatusOK, pair)
}

// ChangePassword はパスワード変更を処理する。
// POST /api/v1/users/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// setAuthCookies はトークンペアをHTTP Only Cookieに設定する。
func (h *AuthHandler) setAuthCookies(w http.ResponseWriter, pair model.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(h.config.AccessTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(h.config.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAuthCookies はトークンCookieを破棄する。
func (h *AuthHandler) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookieName, middleware.RefreshTokenCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   h.config.CookieDomain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.config.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// saveFormFile はマルチパートフォームのファイルを一時ファイルに書き出す。
// フィールドが存在しない場合は空パスを返し、エラーにしない。
func saveFormFile(r *http.Request, field string) (string, func(), error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", func() {}, nil
		}
		return "", func() {}, err
	}
	defer file.Close()

	return writeTempFile(file)
}

// writeTempFile はアップロードされたファイルを一時ファイルに書き出し、
// パスと削除用のクリーンアップ関数を返す。
func writeTempFile(file multipart.File) (string, func(), error) {
	tmp, err := os.CreateTemp("", "tubehub-upload-*")
	if err != nil {
		return "", func() {}, err
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", func() {}, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", func() {}, err
	}

	path := tmp.Name()
	cleanup := func() { os.Remove(path) }
	return path, cleanup, nil
}

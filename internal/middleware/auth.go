// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/tubehub/internal/auth"
	"github.com/hitoshi/tubehub/internal/model"
)

// AccessTokenCookieName はアクセストークンを保持するHTTP Only Cookieの名前。
const AccessTokenCookieName = "access_token"

// RefreshTokenCookieName はリフレッシュトークンを保持するHTTP Only Cookieの名前。
const RefreshTokenCookieName = "refresh_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// TokenVerifier はアクセストークンの検証に必要なインターフェース。
// auth.TokenServiceの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string, kind auth.TokenKind) (string, error)
}

// UserFinder は認証主体の存在確認に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewAuthMiddleware はアクセストークンを検証するミドルウェアを返す。
// トークンはCookieまたはAuthorization: Bearerヘッダーから読み取り、
// 両方に存在する場合はCookieを優先する。
// 検証後にユーザーの存在を確認し、認証済みユーザーをコンテキストに注入する。
// 失敗理由によらず同一の401レスポンスを返す。
func NewAuthMiddleware(verifier TokenVerifier, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookie優先でトークンを取り出す
			tokenString := extractAccessToken(r)
			if tokenString == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. 署名・期限・種別を検証する
			userID, err := verifier.Verify(tokenString, auth.KindAccess)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. トークンが指す主体が現存するか確認する
			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to find user for access token",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if user == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 4. 認証済みユーザーをコンテキストに注入
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractAccessToken はCookieとAuthorizationヘッダーからアクセストークンを取り出す。
// 両方に異なる値が存在する場合はCookieを優先し、警告ログを残す。
func extractAccessToken(r *http.Request) string {
	var cookieToken string
	if cookie, err := r.Cookie(AccessTokenCookieName); err == nil {
		cookieToken = cookie.Value
	}

	var headerToken string
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		headerToken = strings.TrimPrefix(h, "Bearer ")
	}

	if cookieToken != "" {
		if headerToken != "" && headerToken != cookieToken {
			slog.Warn("conflicting credentials in cookie and authorization header",
				slog.String("path", r.URL.Path),
			)
		}
		return cookieToken
	}
	return headerToken
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not found in context")
	}
	return user, nil
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	user, err := UserFromContext(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

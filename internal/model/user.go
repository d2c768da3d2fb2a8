// Package model はドメインモデルを定義する。
package model

import "time"

// User は登録済みアカウントを表す。
// PasswordHashとRefreshTokenはリポジトリ層とauthサービス層のみが扱い、
// API応答には含めない（Publicで射影する）。
type User struct {
	ID           string
	Username     string // 小文字に正規化して保存する
	Email        string
	FullName     string
	AvatarURL    string
	CoverURL     string
	PasswordHash string
	RefreshToken string // 有効な値は常に最大1つ。空文字はログアウト状態
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser はAPI応答に安全に含められるユーザーの射影。
// 認証情報（パスワードハッシュ、リフレッシュトークン）は含まない。
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	AvatarURL string    `json:"avatar"`
	CoverURL  string    `json:"coverImage,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public は認証情報を取り除いた射影を返す。
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		CoverURL:  u.CoverURL,
		CreatedAt: u.CreatedAt,
	}
}

// OwnerSummary は動画に埋め込むチャンネル所有者の最小射影。
type OwnerSummary struct {
	FullName  string `json:"fullName"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar"`
}

// TokenPair はアクセストークンとリフレッシュトークンの組。
// アクセストークンは永続化しない。リフレッシュトークンの永続化コピーは
// 失効管理のためUserレコードが保持する。
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Package auth は認証情報の検証、トークン発行、セッションのライフサイクル管理を提供する。
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher はパスワードの一方向ハッシュ化と照合を提供する。
// bcryptはソルト付きの低速ハッシュであり、照合は入力内容に対して
// 一定時間で行われる。
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher はデフォルトコストのPasswordHasherを生成する。
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcrypt.DefaultCost}
}

// Hash は平文パスワードのbcryptダイジェストを返す。
func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// Verify は平文パスワードがダイジェストと一致するかを返す。
// ダイジェストが不正な形式の場合もfalseを返す（フェイルクローズ）。
func (h *PasswordHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

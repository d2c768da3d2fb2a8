package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind はトークンの種別を表す。
// 種別ごとに署名シークレットとTTLを分離する。
type TokenKind int

const (
	// KindAccess は短命のアクセストークン。リクエスト単位の認証に使用する。
	KindAccess TokenKind = iota
	// KindRefresh は長命のリフレッシュトークン。トークンペアの再発行のみに使用する。
	KindRefresh
)

// ErrInvalidToken はトークン検証の失敗を表す。
// 署名不一致、期限切れ、不正形式、種別違いのいずれでも同一のエラーを返し、
// 呼び出し側に失敗理由を区別させない。
var ErrInvalidToken = errors.New("invalid token")

// TokenConfig はトークン発行の設定。プロセス起動後は変更しない。
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenService は署名付き・期限付きトークンの発行と検証を提供する。
// 検証は純粋関数であり、ストアへの副作用を持たない。
type TokenService struct {
	config TokenConfig
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(config TokenConfig) *TokenService {
	return &TokenService{config: config}
}

// secretAndTTL は種別に対応するシークレットとTTLを返す。
func (s *TokenService) secretAndTTL(kind TokenKind) ([]byte, time.Duration) {
	if kind == KindRefresh {
		return s.config.RefreshSecret, s.config.RefreshTTL
	}
	return s.config.AccessSecret, s.config.AccessTTL
}

// Issue は指定ユーザーIDを主体とする署名付きトークンを発行する。
// issuedAtは秒精度のため、同一秒内の連続発行でも出力が一意になるよう
// 発行ごとに一意なjtiを付与する（ローテーション時の新旧判別に必要）。
func (s *TokenService) Issue(userID string, kind TokenKind) (string, error) {
	secret, ttl := s.secretAndTTL(kind)
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、主体のユーザーIDを返す。
// 署名不一致、期限切れ、不正形式、および誤った種別のトークン
// （種別ごとにシークレットが異なるため署名不一致になる）は
// すべてErrInvalidTokenとして扱う。
func (s *TokenService) Verify(tokenString string, kind TokenKind) (string, error) {
	secret, _ := s.secretAndTTL(kind)

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		// HMAC以外の署名方式（none等）を拒否する
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

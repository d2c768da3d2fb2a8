package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tubehub/internal/model"
	"github.com/hitoshi/tubehub/internal/repository"
)

// Uploader はメディアストアへのアップロードインターフェース。
// media.Clientの部分集合として定義する。
type Uploader interface {
	// Upload はローカルファイルをメディアストアにアップロードし、公開URLを返す。
	Upload(ctx context.Context, localPath string) (string, error)
}

// TextSanitizer はユーザー入力テキストのサニタイズインターフェース。
type TextSanitizer interface {
	SanitizeText(s string) string
}

// Metrics は認証系メトリクスの記録インターフェース。
type Metrics interface {
	RecordRegistration()
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordTokenRefresh()
	RecordRefreshReuseRejected()
}

// RegisterInput は新規登録の入力。
// AvatarPathは必須、CoverPathは任意のローカルファイルパス。
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	AvatarPath string
	CoverPath  string
}

// LoginResult はログイン成功時の応答。
type LoginResult struct {
	User   *model.PublicUser
	Tokens model.TokenPair
}

// Service はセッションライフサイクル（登録、ログイン、ログアウト、
// トークン再発行、パスワード変更）のビジネスロジックを提供する。
type Service struct {
	users     repository.UserRepository
	hasher    *PasswordHasher
	tokens    *TokenService
	uploader  Uploader
	sanitizer TextSanitizer
	metrics   Metrics
}

// NewService はServiceを生成する。sanitizerとmetricsはnil許容。
func NewService(
	users repository.UserRepository,
	hasher *PasswordHasher,
	tokens *TokenService,
	uploader Uploader,
	sanitizer TextSanitizer,
	metrics Metrics,
) *Service {
	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		uploader:  uploader,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// Register は新規ユーザーを登録する。
// 必須項目の検証 → 重複確認 → アバターアップロード → パスワードハッシュ化 →
// 永続化の順に行い、エラー時はレコードを一切作成しない。
// 戻り値の射影に認証情報は含まれない。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.PublicUser, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := strings.TrimSpace(input.Email)
	username := strings.ToLower(strings.TrimSpace(input.Username))
	password := input.Password

	// 1. 必須項目の検証
	switch {
	case fullName == "":
		return nil, model.NewValidationError("fullName")
	case email == "":
		return nil, model.NewValidationError("email")
	case username == "":
		return nil, model.NewValidationError("username")
	case password == "":
		return nil, model.NewValidationError("password")
	}

	if s.sanitizer != nil {
		fullName = s.sanitizer.SanitizeText(fullName)
	}

	// 2. ユーザー名・メールアドレスの重複確認
	existing, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの重複確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewUserExistsError()
	}

	// 3. アバターは必須、カバーは任意
	if input.AvatarPath == "" {
		return nil, model.NewValidationError("avatar")
	}
	avatarURL, err := s.uploader.Upload(ctx, input.AvatarPath)
	if err != nil {
		slog.Error("avatar upload failed", slog.String("error", err.Error()))
		return nil, model.NewUploadFailedError()
	}

	coverURL := ""
	if input.CoverPath != "" {
		coverURL, err = s.uploader.Upload(ctx, input.CoverPath)
		if err != nil {
			slog.Error("cover upload failed", slog.String("error", err.Error()))
			return nil, model.NewUploadFailedError()
		}
	}

	// 4. パスワードのハッシュ化と永続化
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		AvatarURL:    avatarURL,
		CoverURL:     coverURL,
		PasswordHash: passwordHash,
		RefreshToken: "",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}
	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user.Public(), nil
}

// Login は認証情報を検証してトークンペアを発行する。
// ユーザー不在とパスワード不一致は区別せず、同一の認証エラーを返す。
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (*LoginResult, error) {
	identifier := strings.TrimSpace(usernameOrEmail)
	if identifier == "" || password == "" {
		s.recordLoginFailure()
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, strings.ToLower(identifier), identifier)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		s.recordLoginFailure()
		return nil, model.NewUnauthorizedError()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.recordLoginFailure()
		slog.Warn("login failed", slog.String("user_id", user.ID))
		return nil, model.NewUnauthorizedError()
	}

	pair, err := s.rotateTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}
	slog.Info("user logged in", slog.String("user_id", user.ID))

	return &LoginResult{User: user.Public(), Tokens: pair}, nil
}

// Logout は保存済みリフレッシュトークンを無条件にクリアする。冪等。
// アクセストークンは短命のため失効処理を行わない。
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.users.UpdateRefreshToken(ctx, userID, ""); err != nil {
		return fmt.Errorf("リフレッシュトークンのクリアに失敗しました: %w", err)
	}
	slog.Info("user logged out", slog.String("user_id", userID))
	return nil
}

// Refresh は提示されたリフレッシュトークンを検証し、新しいトークンペアを発行する。
// 提示トークンが保存値と完全一致しない場合（使用済みトークンの再利用を含む）は
// 認証エラーを返す。成功時は必ずローテーションし、使用済みトークンを失効させる。
func (s *Service) Refresh(ctx context.Context, presentedToken string) (*model.TokenPair, error) {
	userID, err := s.tokens.Verify(presentedToken, KindRefresh)
	if err != nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	// 保存値との完全一致を要求することで、ローテーション済みトークンの
	// 再利用とログアウト後の利用を拒否する
	if user.RefreshToken == "" || user.RefreshToken != presentedToken {
		if s.metrics != nil {
			s.metrics.RecordRefreshReuseRejected()
		}
		slog.Warn("superseded refresh token rejected", slog.String("user_id", user.ID))
		return nil, model.NewUnauthorizedError()
	}

	pair, err := s.rotateTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordTokenRefresh()
	}
	return &pair, nil
}

// ChangePassword は現在のパスワードを検証して新しいパスワードに置き換える。
// トークンはローテーションせず、既存セッションは有効なまま残る。
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return model.NewValidationError("newPassword")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUnauthorizedError()
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return model.NewUnauthorizedError()
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		return fmt.Errorf("パスワードの更新に失敗しました: %w", err)
	}

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// rotateTokens は新しいトークンペアを発行し、リフレッシュトークンを永続化する。
// ここでの上書きにより、以前に発行したリフレッシュトークンは即座に無効になる。
// 「有効なリフレッシュトークンは常に最大1つ」の不変条件はこの1箇所で成立させる。
func (s *Service) rotateTokens(ctx context.Context, userID string) (model.TokenPair, error) {
	accessToken, err := s.tokens.Issue(userID, KindAccess)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("アクセストークンの発行に失敗しました: %w", err)
	}

	refreshToken, err := s.tokens.Issue(userID, KindRefresh)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("リフレッシュトークンの発行に失敗しました: %w", err)
	}

	if err := s.users.UpdateRefreshToken(ctx, userID, refreshToken); err != nil {
		return model.TokenPair{}, fmt.Errorf("リフレッシュトークンの保存に失敗しました: %w", err)
	}

	return model.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) recordLoginFailure() {
	if s.metrics != nil {
		s.metrics.RecordLoginFailure()
	}
}

// Package user はプロフィール管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/tubehub/internal/model"
	"github.com/hitoshi/tubehub/internal/repository"
)

// Uploader はメディアストアへのアップロードインターフェース。
// media.Clientの部分集合として定義する。
type Uploader interface {
	// Upload はローカルファイルをアップロードして公開URLを返す。
	Upload(ctx context.Context, localPath string) (string, error)
	// ImportURL は外部URLの画像を取り込んで公開URLを返す。
	ImportURL(ctx context.Context, rawURL string) (string, error)
}

// TextSanitizer はユーザー入力テキストのサニタイズインターフェース。
type TextSanitizer interface {
	SanitizeText(s string) string
}

// Service はプロフィール参照・更新のサービス層。
type Service struct {
	users     repository.UserRepository
	uploader  Uploader
	sanitizer TextSanitizer
}

// NewService はServiceを生成する。sanitizerはnil許容。
func NewService(users repository.UserRepository, uploader Uploader, sanitizer TextSanitizer) *Service {
	return &Service{
		users:     users,
		uploader:  uploader,
		sanitizer: sanitizer,
	}
}

// GetCurrent は現在のユーザーの公開射影を返す。
func (s *Service) GetCurrent(ctx context.Context, userID string) (*model.PublicUser, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// UpdateProfile は表示名とメールアドレスを更新する。
// 両方とも空の場合はValidationErrorを返す。
func (s *Service) UpdateProfile(ctx context.Context, userID, fullName, email string) (*model.PublicUser, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" && email == "" {
		return nil, model.NewValidationError("fullName or email")
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 片方のみ指定された場合は既存値を維持する
	if fullName == "" {
		fullName = user.FullName
	} else if s.sanitizer != nil {
		fullName = s.sanitizer.SanitizeText(fullName)
	}
	if email == "" {
		email = user.Email
	}

	// メールアドレスの変更時は他ユーザーとの重複を確認する
	if email != user.Email {
		existing, err := s.users.FindByUsernameOrEmail(ctx, "", email)
		if err != nil {
			return nil, fmt.Errorf("メールアドレスの重複確認に失敗しました: %w", err)
		}
		if existing != nil && existing.ID != userID {
			return nil, model.NewUserExistsError()
		}
	}

	if err := s.users.UpdateProfile(ctx, userID, fullName, email); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	user.FullName = fullName
	user.Email = email
	return user.Public(), nil
}

// UpdateAvatar はローカルファイルをアップロードしてアバター参照を置き換える。
func (s *Service) UpdateAvatar(ctx context.Context, userID, localPath string) (*model.PublicUser, error) {
	if localPath == "" {
		return nil, model.NewValidationError("avatar")
	}
	return s.updateImage(ctx, userID, localPath, "", s.users.UpdateAvatarURL)
}

// UpdateAvatarFromURL は外部URLの画像を取り込んでアバター参照を置き換える。
func (s *Service) UpdateAvatarFromURL(ctx context.Context, userID, rawURL string) (*model.PublicUser, error) {
	if rawURL == "" {
		return nil, model.NewValidationError("avatar")
	}
	return s.updateImage(ctx, userID, "", rawURL, s.users.UpdateAvatarURL)
}

// UpdateCoverImage はローカルファイルをアップロードしてカバー参照を置き換える。
func (s *Service) UpdateCoverImage(ctx context.Context, userID, localPath string) (*model.PublicUser, error) {
	if localPath == "" {
		return nil, model.NewValidationError("coverImage")
	}
	return s.updateImage(ctx, userID, localPath, "", s.users.UpdateCoverURL)
}

// updateImage はアップロードまたはURL取り込みで得たURLを永続化する共通処理。
func (s *Service) updateImage(
	ctx context.Context,
	userID, localPath, rawURL string,
	persist func(ctx context.Context, id, url string) error,
) (*model.PublicUser, error) {
	_, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var imageURL string
	if localPath != "" {
		imageURL, err = s.uploader.Upload(ctx, localPath)
	} else {
		imageURL, err = s.uploader.ImportURL(ctx, rawURL)
	}
	if err != nil {
		slog.Error("image upload failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUploadFailedError()
	}

	if err := persist(ctx, userID, imageURL); err != nil {
		return nil, fmt.Errorf("画像参照の更新に失敗しました: %w", err)
	}

	updated, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return updated.Public(), nil
}

// findUser はユーザーを取得し、不在をNotFoundエラーに変換する。
func (s *Service) findUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

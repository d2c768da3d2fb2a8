// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/tubehub/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// 取得系は見つからない場合にエラーではなくnilを返す。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername は小文字正規化済みユーザー名でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByUsernameOrEmail はユーザー名またはメールアドレスのいずれかが
	// 一致するユーザーを検索する。見つからない場合はnilを返す。
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile は表示名とメールアドレスを更新する。
	UpdateProfile(ctx context.Context, id, fullName, email string) error

	// UpdateAvatarURL はアバター画像の参照を更新する。
	UpdateAvatarURL(ctx context.Context, id, avatarURL string) error

	// UpdateCoverURL はカバー画像の参照を更新する。
	UpdateCoverURL(ctx context.Context, id, coverURL string) error

	// UpdatePasswordHash はパスワードハッシュを置き換える。
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error

	// UpdateRefreshToken は保存済みリフレッシュトークンを置き換える。
	// 空文字を渡すとログアウト状態（失効）になる。
	// ここへの書き込みが「有効なリフレッシュトークンは常に最大1つ」の
	// 不変条件を成立させる唯一の経路となる。
	UpdateRefreshToken(ctx context.Context, id, refreshToken string) error
}

// SubscriptionRepository は購読エッジの永続化インターフェース。
type SubscriptionRepository interface {
	// CountByChannel はチャンネルの購読者数（channel_idが一致するエッジ数）を返す。
	CountByChannel(ctx context.Context, channelID string) (int, error)

	// CountBySubscriber はユーザーの購読中チャンネル数
	// （subscriber_idが一致するエッジ数）を返す。
	CountBySubscriber(ctx context.Context, subscriberID string) (int, error)

	// Exists は購読者→チャンネルのエッジが存在するかを返す。
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)

	// Create は購読エッジを作成する。
	Create(ctx context.Context, sub *model.Subscription) error

	// Delete は購読者→チャンネルのエッジを全て削除する。冪等。
	Delete(ctx context.Context, subscriberID, channelID string) error
}

// VideoRepository は動画データの永続化インターフェース。
type VideoRepository interface {
	// FindByIDs は指定ID群の動画を取得する。
	// 戻り値の順序は保証しない（呼び出し側がID順に整列する）。
	// 解決できないIDは結果から除外され、エラーにはならない。
	FindByIDs(ctx context.Context, ids []string) ([]*model.Video, error)
}

// WatchHistoryRepository は視聴履歴の永続化インターフェース。
type WatchHistoryRepository interface {
	// ListVideoIDs はユーザーの視聴履歴の動画ID列を新しい順に返す。
	// 同一動画の複数回視聴は重複したまま返す。履歴が空の場合は空スライスを返す。
	ListVideoIDs(ctx context.Context, userID string) ([]string, error)

	// Append は視聴履歴の先頭に動画IDを追加する。
	Append(ctx context.Context, userID, videoID string) error
}

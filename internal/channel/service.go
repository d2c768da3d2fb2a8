// Package channel はチャンネルプロフィールと購読グラフのドメインロジックを提供する。
package channel

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

// Service はチャンネル参照・購読操作のサービス層。
type Service struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	videos        repository.VideoRepository
	history       repository.WatchHistoryRepository
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	subscriptions repository.SubscriptionRepository,
	videos repository.VideoRepository,
	history repository.WatchHistoryRepository,
) *Service {
	return &Service{
		users:         users,
		subscriptions: subscriptions,
		videos:        videos,
		history:       history,
	}
}

// GetChannelProfile はユーザー名でチャンネルを解決し、購読者数・購読中
// チャンネル数・閲覧者の購読有無を付けて返す。
// viewerIDは閲覧者のユーザーID。isSubscribedは自分自身のチャンネルを
// 見ている場合でも購読エッジが無ければfalseになる。
func (s *Service) GetChannelProfile(ctx context.Context, viewerID, username string) (*model.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, model.NewValidationError("username")
	}

	// 1. ユーザー名でチャンネルを解決する
	channel, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("チャンネルの取得に失敗しました: %w", err)
	}
	if channel == nil {
		return nil, model.NewChannelNotFoundError(username)
	}

	// 2. 購読グラフを集計する
	subscriberCount, err := s.subscriptions.CountByChannel(ctx, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("購読者数の集計に失敗しました: %w", err)
	}
	subscribedToCount, err := s.subscriptions.CountBySubscriber(ctx, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("購読中チャンネル数の集計に失敗しました: %w", err)
	}
	isSubscribed, err := s.subscriptions.Exists(ctx, viewerID, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("購読状態の取得に失敗しました: %w", err)
	}

	return &model.ChannelProfile{
		ID:                channel.ID,
		Username:          channel.Username,
		FullName:          channel.FullName,
		Email:             channel.Email,
		AvatarURL:         channel.AvatarURL,
		CoverURL:          channel.CoverURL,
		SubscriberCount:   subscriberCount,
		SubscribedToCount: subscribedToCount,
		IsSubscribed:      isSubscribed,
	}, nil
}

// Subscribe は閲覧者からチャンネルへの購読エッジを作成する。
// 既に購読済みの場合は何もしない（冪等）。自分自身の購読は拒否する。
func (s *Service) Subscribe(ctx context.Context, subscriberID, channelID string) error {
	if channelID == "" {
		return model.NewValidationError("channelId")
	}
	if subscriberID == channelID {
		return model.NewValidationError("channelId")
	}

	channel, err := s.users.FindByID(ctx, channelID)
	if err != nil {
		return fmt.Errorf("チャンネルの取得に失敗しました: %w", err)
	}
	if channel == nil {
		return model.NewUserNotFoundError()
	}

	exists, err := s.subscriptions.Exists(ctx, subscriberID, channelID)
	if err != nil {
		return fmt.Errorf("購読状態の取得に失敗しました: %w", err)
	}
	if exists {
		return nil
	}

	sub := &model.Subscription{
		ID:           uuid.New().String(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    time.Now(),
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return fmt.Errorf("購読の作成に失敗しました: %w", err)
	}
	return nil
}

// Unsubscribe は閲覧者からチャンネルへの購読エッジを削除する。冪等。
func (s *Service) Unsubscribe(ctx context.Context, subscriberID, channelID string) error {
	if channelID == "" {
		return model.NewValidationError("channelId")
	}
	if err := s.subscriptions.Delete(ctx, subscriberID, channelID); err != nil {
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	return nil
}

// RecordView は視聴履歴の先頭に動画を追加する。
func (s *Service) RecordView(ctx context.Context, userID, videoID string) error {
	if videoID == "" {
		return model.NewValidationError("videoId")
	}
	if err := s.history.Append(ctx, userID, videoID); err != nil {
		return fmt.Errorf("視聴履歴の追加に失敗しました: %w", err)
	}
	return nil
}

// GetWatchHistory はユーザーの視聴履歴を新しい順に、所有者情報を埋め込んで返す。
// 削除済み等で解決できない動画、および所有者を解決できない動画は黙って除外する。
// 履歴が空の場合はnilではなく空スライスを返す。
func (s *Service) GetWatchHistory(ctx context.Context, userID string) ([]*model.VideoWithOwner, error) {
	videoIDs, err := s.history.ListVideoIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("視聴履歴の取得に失敗しました: %w", err)
	}
	if len(videoIDs) == 0 {
		return []*model.VideoWithOwner{}, nil
	}

	// 1. 動画を一括解決する（重複IDは一度だけ引く）
	unique := make([]string, 0, len(videoIDs))
	seen := make(map[string]bool, len(videoIDs))
	for _, id := range videoIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	videos, err := s.videos.FindByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("動画の取得に失敗しました: %w", err)
	}
	videoByID := make(map[string]*model.Video, len(videos))
	for _, v := range videos {
		videoByID[v.ID] = v
	}

	// 2. 所有者を一括解決する
	ownerByID := make(map[string]*model.User)
	for _, v := range videos {
		if _, ok := ownerByID[v.OwnerID]; ok {
			continue
		}
		owner, err := s.users.FindByID(ctx, v.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("動画所有者の取得に失敗しました: %w", err)
		}
		if owner == nil {
			// 所有者不明の動画は結果から除外する
			slog.Warn("watch history video owner not found",
				slog.String("video_id", v.ID),
				slog.String("owner_id", v.OwnerID),
			)
			continue
		}
		ownerByID[v.OwnerID] = owner
	}

	// 3. 履歴のID順（新しい順、重複あり）に整列して組み立てる
	result := make([]*model.VideoWithOwner, 0, len(videoIDs))
	for _, id := range videoIDs {
		video, ok := videoByID[id]
		if !ok {
			continue
		}
		owner, ok := ownerByID[video.OwnerID]
		if !ok {
			continue
		}
		result = append(result, &model.VideoWithOwner{
			Video: *video,
			Owner: model.OwnerSummary{
				FullName:  owner.FullName,
				Username:  owner.Username,
				AvatarURL: owner.AvatarURL,
			},
		})
	}
	return result, nil
}

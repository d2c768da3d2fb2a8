package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tubehub/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読エッジリポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// CountByChannel はチャンネルの購読者数を返す。
func (r *PostgresSubscriptionRepo) CountByChannel(ctx context.Context, channelID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1`,
		channelID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("購読者数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// CountBySubscriber はユーザーの購読中チャンネル数を返す。
func (r *PostgresSubscriptionRepo) CountBySubscriber(ctx context.Context, subscriberID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = $1`,
		subscriberID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("購読数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Exists は購読者→チャンネルのエッジが存在するかを返す。
func (r *PostgresSubscriptionRepo) Exists(ctx context.Context, subscriberID, channelID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
		 )`,
		subscriberID, channelID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("購読状態の取得に失敗しました: %w", err)
	}
	return exists, nil
}

// Create は購読エッジを作成する。
func (r *PostgresSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		sub.ID, sub.SubscriberID, sub.ChannelID, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("購読の作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は購読者→チャンネルのエッジを全て削除する。対象がなくてもエラーにしない。
func (r *PostgresSubscriptionRepo) Delete(ctx context.Context, subscriberID, channelID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2`,
		subscriberID, channelID,
	)
	if err != nil {
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	return nil
}

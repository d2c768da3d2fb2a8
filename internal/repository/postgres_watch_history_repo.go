package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresWatchHistoryRepo はPostgreSQLを使用した視聴履歴リポジトリ。
type PostgresWatchHistoryRepo struct {
	db *sql.DB
}

// NewPostgresWatchHistoryRepo はPostgresWatchHistoryRepoを生成する。
func NewPostgresWatchHistoryRepo(db *sql.DB) *PostgresWatchHistoryRepo {
	return &PostgresWatchHistoryRepo{db: db}
}

// ListVideoIDs はユーザーの視聴履歴の動画ID列を新しい順に返す。
// 同一動画の複数回視聴は重複したまま返す。
func (r *PostgresWatchHistoryRepo) ListVideoIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT video_id FROM watch_history
		 WHERE user_id = $1 ORDER BY watched_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("視聴履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("視聴履歴行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("視聴履歴の走査に失敗しました: %w", err)
	}
	return ids, nil
}

// Append は視聴履歴に動画IDを追加する。
func (r *PostgresWatchHistoryRepo) Append(ctx context.Context, userID, videoID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watch_history (id, user_id, video_id, watched_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), userID, videoID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("視聴履歴の追加に失敗しました: %w", err)
	}
	return nil
}

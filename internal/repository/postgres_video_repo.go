package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/tubehub/internal/model"
)

// PostgresVideoRepo はPostgreSQLを使用した動画リポジトリ。
type PostgresVideoRepo struct {
	db *sql.DB
}

// NewPostgresVideoRepo はPostgresVideoRepoを生成する。
func NewPostgresVideoRepo(db *sql.DB) *PostgresVideoRepo {
	return &PostgresVideoRepo{db: db}
}

// FindByIDs は指定ID群の動画を取得する。順序は保証しない。
// 解決できないIDは結果から除外される。
func (r *PostgresVideoRepo) FindByIDs(ctx context.Context, ids []string) ([]*model.Video, error) {
	if len(ids) == 0 {
		return []*model.Video{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, title, thumbnail_url, video_url, created_at
		 FROM videos WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("動画の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var videos []*model.Video
	for rows.Next() {
		v := &model.Video{}
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Title, &v.ThumbnailURL, &v.VideoURL, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("動画行の読み取りに失敗しました: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("動画一覧の走査に失敗しました: %w", err)
	}
	return videos, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tubehub/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, username, email, full_name, avatar_url, COALESCE(cover_url, ''),
	 password_hash, COALESCE(refresh_token, ''), created_at, updated_at`

// scanUser は1行をUserモデルに読み取る。
func scanUser(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.AvatarURL, &u.CoverURL,
		&u.PasswordHash, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザー行の読み取りに失敗しました: %w", err)
	}
	return u, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

// FindByUsername は小文字正規化済みユーザー名でユーザーを検索する。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	)
	return scanUser(row)
}

// FindByUsernameOrEmail はユーザー名またはメールアドレスで検索する。
func (r *PostgresUserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $2 LIMIT 1`,
		username, email,
	)
	return scanUser(row)
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, full_name, avatar_url, cover_url,
		     password_hash, refresh_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Username, user.Email, user.FullName, user.AvatarURL, user.CoverURL,
		user.PasswordHash, user.RefreshToken, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateProfile は表示名とメールアドレスを更新する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id, fullName, email string) error {
	return r.updateField(ctx, id,
		`UPDATE users SET full_name = $2, email = $3, updated_at = NOW() WHERE id = $1`,
		id, fullName, email,
	)
}

// UpdateAvatarURL はアバター画像の参照を更新する。
func (r *PostgresUserRepo) UpdateAvatarURL(ctx context.Context, id, avatarURL string) error {
	return r.updateField(ctx, id,
		`UPDATE users SET avatar_url = $2, updated_at = NOW() WHERE id = $1`,
		id, avatarURL,
	)
}

// UpdateCoverURL はカバー画像の参照を更新する。
func (r *PostgresUserRepo) UpdateCoverURL(ctx context.Context, id, coverURL string) error {
	return r.updateField(ctx, id,
		`UPDATE users SET cover_url = $2, updated_at = NOW() WHERE id = $1`,
		id, coverURL,
	)
}

// UpdatePasswordHash はパスワードハッシュを置き換える。
func (r *PostgresUserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return r.updateField(ctx, id,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, passwordHash,
	)
}

// UpdateRefreshToken は保存済みリフレッシュトークンを置き換える。
// 空文字はNULLとして保存し、失効状態を表す。
func (r *PostgresUserRepo) UpdateRefreshToken(ctx context.Context, id, refreshToken string) error {
	var value any
	if refreshToken != "" {
		value = refreshToken
	}
	return r.updateField(ctx, id,
		`UPDATE users SET refresh_token = $2, updated_at = NOW() WHERE id = $1`,
		id, value,
	)
}

// updateField は単一ユーザー行の更新を実行し、対象不在を検出する。
func (r *PostgresUserRepo) updateField(ctx context.Context, id, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ユーザーが見つかりません: %s", id)
	}
	return nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hitoshi/tubehub/internal/model"
)

// --- モック ---

// memUserRepo はリフレッシュローテーションの状態遷移を追跡するための
// インメモリユーザーリポジトリ。
type memUserRepo struct {
	users map[string]*model.User // key: user ID
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (m *memUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *memUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) Create(ctx context.Context, user *model.User) error {
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memUserRepo) UpdateProfile(ctx context.Context, id, fullName, email string) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("ユーザーが見つかりません: %s", id)
	}
	u.FullName = fullName
	u.Email = email
	return nil
}

func (m *memUserRepo) UpdateAvatarURL(ctx context.Context, id, avatarURL string) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("ユーザーが見つかりません: %s", id)
	}
	u.AvatarURL = avatarURL
	return nil
}

func (m *memUserRepo) UpdateCoverURL(ctx context.Context, id, coverURL string) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("ユーザーが見つかりません: %s", id)
	}
	u.CoverURL = coverURL
	return nil
}

func (m *memUserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("ユーザーが見つかりません: %s", id)
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memUserRepo) UpdateRefreshToken(ctx context.Context, id, refreshToken string) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("ユーザーが見つかりません: %s", id)
	}
	u.RefreshToken = refreshToken
	return nil
}

// mockUploader はアップロードのモック。
type mockUploader struct {
	uploadFn func(ctx context.Context, localPath string) (string, error)
}

func (m *mockUploader) Upload(ctx context.Context, localPath string) (string, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, localPath)
	}
	return "https://media.example.com/" + localPath, nil
}

func newTestService(repo *memUserRepo) *Service {
	tokens := NewTokenService(TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    240 * time.Hour,
	})
	return NewService(repo, NewPasswordHasher(), tokens, &mockUploader{}, nil, nil)
}

func registerTestUser(t *testing.T, svc *Service) *model.PublicUser {
	t.Helper()
	created, err := svc.Register(context.Background(), RegisterInput{
		FullName:   "Ann",
		Email:      "ann@x.com",
		Username:   "ann",
		Password:   "pw123",
		AvatarPath: "a.png",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	return created
}

func isUnauthorized(err error) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeUnauthorized
}

// --- テスト ---

// TestService_Register は登録の正常系を検証する。
// 戻り値の射影に認証情報が含まれず、保存されたハッシュが平文と異なり、
// 元のパスワードで照合が成功すること。
func TestService_Register(t *testing.T) {
	repo := newMemUserRepo()
	svc := newTestService(repo)

	created := registerTestUser(t, svc)

	if created.Username != "ann" {
		t.Errorf("Username = %q, want %q", created.Username, "ann")
	}
	if created.AvatarURL == "" {
		t.Error("AvatarURL should be set by the uploader")
	}

	stored := repo.users[created.ID]
	if stored == nil {
		t.Fatal("user was not persisted")
	}
	if stored.PasswordHash == "pw123" {
		t.Error("stored password hash must not equal the plaintext")
	}
	if !NewPasswordHasher().Verify("pw123", stored.PasswordHash) {
		t.Error("stored hash should verify against the original password")
	}
	if stored.RefreshToken != "" {
		t.Error("refresh token should be empty after registration")
	}
}

// TestService_Register_UsernameNormalized はユーザー名の小文字正規化を検証する。
func TestService_Register_UsernameNormalized(t *testing.T) {
	repo := newMemUserRepo()
	svc := newTestService(repo)

	created, err := svc.Register(context.Background(), RegisterInput{
		FullName:   "Bob",
		Email:      "bob@x.com",
		Username:   "  BoB  ",
		Password:   "pw456",
		AvatarPath: "b.png",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if created.Username != "bob" {
		t.Errorf("Username = %q, want %q", created.Username, "bob")
	}
}

// TestService_Register_Validation は必須項目欠落時のValidationErrorを検証する。
func TestService_Register_Validation(t *testing.T) {
	repo := newMemUserRepo()
	svc := newTestService(repo)

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"empty fullName", RegisterInput{Email: "a@x.com", Username: "a", Password: "pw", AvatarPath: "a.png"}},
		{"whitespace email", RegisterInput{FullName: "A", Email: "   ", Username: "a", Password: "pw", AvatarPath: "a.png"}},
		{"empty password", RegisterInput{FullName: "A", Email: "a@x.com", Username: "a", AvatarPath: "a.png"}},
		{"missing avatar", RegisterInput{FullName: "A", Email: "a@x.com", Username: "a", Password: "pw"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
				t.Errorf("err = %v, want VALIDATION_ERROR", err)
			}
		})
	}
}

// TestService_Register_Conflict はユーザー名またはメールアドレスの重複で
// 常にConflictになることを検証する。
func TestService_Register_Conflict(t *testing.T) {
	repo := newMemUserRepo()
	svc := newTestService(repo)
	registerTestUser(t, svc)

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"same username", RegisterInput{FullName: "Other", Email: "other@x.com", Username: "ann", Password: "pw", AvatarPath: "o.png"}},
		{"same email", RegisterInput{FullName: "Other", Email: "ann@x.com", Username: "other", Password: "pw", AvatarPath: "o.png"}},
		{"same username different case", RegisterInput{FullName: "Other", Email: "third@x.com", Username: "ANN", Password: "pw", AvatarPath: "o.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserExists {
				t.Errorf("err = %v, want USER_ALREADY_EXISTS", err)
			}
		})
	}
}

// TestService_Register_UploadFailure はアバターアップロード失敗時に
// ユーザーが作成されないことを検証する。
func TestService_Register_UploadFailure(t *testing.T) {
	repo := newMemUserRepo()
	tokens := NewTokenService(TokenConfig{
		AccessSecret:  []byte("a"),
		RefreshSecret: []byte("r"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	uploader := &mockUploader{
		uploadFn: func(ctx context.Context, localPath string) (string, error) {
			return "", errors.New("media store unavailable")
		},
	}
	svc := NewService(repo, NewPasswordHasher(), tokens, uploader, nil, nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		FullName: "Ann", Email: "ann@x.com", Username: "ann", Password: "pw123", AvatarPath: "a.png",
	})
	if err == nil {
		t.Fatal("expected error when avatar upload fails")
	}
	if len(repo.users) != 0 {
		t.Error("no user should be persisted when upload fails")
	}
}

// TestService_Login はユーザー名・メールアドレスいずれでもログインでき、
// トークンペアと認証情報を含まない射影が返ることを検証する。
func TestService_Login(t *testing.T) {
	repo := newMemUserRepo()
	svc := newTestService(repo)
	created := registerTestUser(t, svc)

	for _, identifier := range []string{"ann", "ann@x.com"} {
		result, err := svc.Login(context.Background(), identifier, "pw123")
		if err != nil {
			t.Fatalf("Login(%q) returned error: %v", identifier, err)
		}
		if result.User.ID != created.ID {
			t.Errorf("User.ID = %q, want %q", result.User.ID, created.ID)
		}
		if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
			t.Error("both tokens should be issued")
		}
		if repo.users[created.ID].RefreshToken != result.Tokens.RefreshToken {
			t.Error("issued refresh token should be persisted")
		}
	}
}

// TestService_Login_Uniform はユーザー不在とパスワード不一致が
// 同一の認証エラーになることを検証する。
func TestService_Login_Uniform(t *testing.T) {
	repo := newMemUserRepo()
	svc := newTestService(repo)
	registerTestUser(t, svc)

	_, errNoUser := svc.Login(context.Background(), "nobody", "pw123")
	_, errBadPass := svc.Login(context.Background(), "ann", "wrong")

	if !isUnauthorized(errNoUser) {
		t.Errorf("unknown user: err = %v, want UNAUTHORIZED", errNoUser)
	}
	if !isUnauthorized(errBadPass) {
		t.Errorf("bad password: err = %v, want UNAUTHORIZED", errBadPass)
	}
	if errNoUser.Error() != errBadPass.Error() {
		t.Error("auth error messages must not disclose which check failed")
	}
}

// TestService_Refresh_RotationChain はローテーションの連鎖を検証する。
// 新しいトークンでのリフレッシュは常に成功し、使用済みトークンは拒否される。
func TestService_Refresh_RotationChain(t *testing.T) {
	repo := newMemUserRepo()
	svc := newTestService(repo)
	registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), "ann", "pw123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	first := result.Tokens.RefreshToken

	// 1回目: ログイン直後のトークンで成功する
	pair2, err := svc.Refresh(context.Background(), first)
	if err != nil {
		t.Fatalf("first Refresh returned error: %v", err)
	}
	if pair2.RefreshToken == first {
		t.Fatal("rotation should issue a different refresh token")
	}

	// 2回目: 使用済みトークンの再利用は拒否される
	if _, err := svc.Refresh(context.Background(), first); !isUnauthorized(err) {
		t.Errorf("superseded token reuse: err = %v, want UNAUTHORIZED", err)
	}

	// 3回目: 直前に発行されたトークンでの連続リフレッシュは成功する
	pair3, err := svc.Refresh(context.Background(), pair2.RefreshToken)
	if err != nil {
		t.Fatalf("chained Refresh returned error: %v", err)
	}
	if pair3.RefreshToken == pair2.RefreshToken {
		t.Error("each rotation should issue a fresh refresh token")
	}
}

// TestService_Refresh_AfterLogout はログアウト後に発行済みトークンが
// 使えなくなることを検証する。
func TestService_Refresh_AfterLogout(t *testing.T) {
	repo := newMemUserRepo()
	svc := newTestService(repo)
	created := registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), "ann", "pw123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := svc.Logout(context.Background(), created.ID); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if repo.users[created.ID].RefreshToken != "" {
		t.Error("stored refresh token should be cleared on logout")
	}

	if _, err := svc.Refresh(context.Background(), result.Tokens.RefreshToken); !isUnauthorized(err) {
		t.Errorf("refresh after logout: err = %v, want UNAUTHORIZED", err)
	}
}

// TestService_Refresh_InvalidToken は不正・種別違いトークンの拒否を検証する。
func TestService_Refresh_InvalidToken(t *testing.T) {
	repo := newMemUserRepo()
	svc := newTestService(repo)
	registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), "ann", "pw123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	// アクセストークンをリフレッシュとして提示する
	if _, err := svc.Refresh(context.Background(), result.Tokens.AccessToken); !isUnauthorized(err) {
		t.Errorf("access token as refresh: err = %v, want UNAUTHORIZED", err)
	}
	if _, err := svc.Refresh(context.Background(), "garbage"); !isUnauthorized(err) {
		t.Errorf("malformed token: err = %v, want UNAUTHORIZED", err)
	}
}

// TestService_ChangePassword はパスワード変更を検証する。
// 現在のパスワード不一致は認証エラー、成功時もトークンはローテーションしない。
func TestService_ChangePassword(t *testing.T) {
	repo := newMemUserRepo()
	svc := newTestService(repo)
	created := registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), "ann", "pw123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), created.ID, "wrong", "new-pw"); !isUnauthorized(err) {
		t.Errorf("wrong current password: err = %v, want UNAUTHORIZED", err)
	}

	if err := svc.ChangePassword(context.Background(), created.ID, "pw123", "new-pw"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	// 旧パスワードは使えず、新パスワードでログインできる
	if _, err := svc.Login(context.Background(), "ann", "pw123"); !isUnauthorized(err) {
		t.Errorf("old password after change: err = %v, want UNAUTHORIZED", err)
	}

	// 既存セッションのリフレッシュトークンは有効なまま残る
	if _, err := svc.Refresh(context.Background(), result.Tokens.RefreshToken); err != nil {
		t.Errorf("existing session should survive password change: %v", err)
	}
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/tubehub/internal/model"
)

// --- モック定義 ---

type mockUserService struct {
	getCurrentFn          func(ctx context.Context, userID string) (*model.PublicUser, error)
	updateProfileFn       func(ctx context.Context, userID, fullName, email string) (*model.PublicUser, error)
	updateAvatarFn        func(ctx context.Context, userID, localPath string) (*model.PublicUser, error)
	updateAvatarFromURLFn func(ctx context.Context, userID, rawURL string) (*model.PublicUser, error)
	updateCoverImageFn    func(ctx context.Context, userID, localPath string) (*model.PublicUser, error)
}

func (m *mockUserService) GetCurrent(ctx context.Context, userID string) (*model.PublicUser, error) {
	if m.getCurrentFn != nil {
		return m.getCurrentFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID, fullName, email string) (*model.PublicUser, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, fullName, email)
	}
	return nil, nil
}

func (m *mockUserService) UpdateAvatar(ctx context.Context, userID, localPath string) (*model.PublicUser, error) {
	if m.updateAvatarFn != nil {
		return m.updateAvatarFn(ctx, userID, localPath)
	}
	return nil, nil
}

func (m *mockUserService) UpdateAvatarFromURL(ctx context.Context, userID, rawURL string) (*model.PublicUser, error) {
	if m.updateAvatarFromURLFn != nil {
		return m.updateAvatarFromURLFn(ctx, userID, rawURL)
	}
	return nil, nil
}

func (m *mockUserService) UpdateCoverImage(ctx context.Context, userID, localPath string) (*model.PublicUser, error) {
	if m.updateCoverImageFn != nil {
		return m.updateCoverImageFn(ctx, userID, localPath)
	}
	return nil, nil
}

// --- テスト ---

func TestUserHandler_CurrentUser(t *testing.T) {
	service := &mockUserService{
		getCurrentFn: func(_ context.Context, userID string) (*model.PublicUser, error) {
			return &model.PublicUser{ID: userID, Username: "hanako"}, nil
		},
	}
	h := NewUserHandler(service)

	req := authedContext(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil), "user-1")
	w := httptest.NewRecorder()

	h.CurrentUser(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var user model.PublicUser
	if err := json.NewDecoder(w.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("ID = %q, want user-1", user.ID)
	}
}

func TestUserHandler_CurrentUser_NoAuth_Returns401(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	w := httptest.NewRecorder()

	h.CurrentUser(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestUserHandler_UpdateAccount(t *testing.T) {
	var gotFullName, gotEmail string
	service := &mockUserService{
		updateProfileFn: func(_ context.Context, userID, fullName, email string) (*model.PublicUser, error) {
			gotFullName, gotEmail = fullName, email
			return &model.PublicUser{ID: userID, FullName: fullName, Email: email}, nil
		},
	}
	h := NewUserHandler(service)

	req := authedContext(httptest.NewRequest(http.MethodPatch, "/api/v1/users/update-account",
		strings.NewReader(`{"fullName":"山田華子","email":"new@example.com"}`)), "user-1")
	w := httptest.NewRecorder()

	h.UpdateAccount(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotFullName != "山田華子" || gotEmail != "new@example.com" {
		t.Errorf("got %q/%q, want 山田華子/new@example.com", gotFullName, gotEmail)
	}
}

func TestUserHandler_UpdateAccount_InvalidBody(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := authedContext(httptest.NewRequest(http.MethodPatch, "/api/v1/users/update-account",
		strings.NewReader("not json")), "user-1")
	w := httptest.NewRecorder()

	h.UpdateAccount(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUserHandler_UpdateAvatar_Multipart(t *testing.T) {
	var gotPath string
	service := &mockUserService{
		updateAvatarFn: func(_ context.Context, userID, localPath string) (*model.PublicUser, error) {
			gotPath = localPath
			return &model.PublicUser{ID: userID}, nil
		},
	}
	h := NewUserHandler(service)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", "avatar.png")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fw.Write([]byte("fake png"))
	mw.Close()

	req := authedContext(httptest.NewRequest(http.MethodPatch, "/api/v1/users/update-avatar", &buf), "user-1")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	h.UpdateAvatar(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if gotPath == "" {
		t.Error("expected avatar to be saved to a temp file")
	}
}

func TestUserHandler_UpdateAvatar_FromURL(t *testing.T) {
	var gotURL string
	service := &mockUserService{
		updateAvatarFromURLFn: func(_ context.Context, userID, rawURL string) (*model.PublicUser, error) {
			gotURL = rawURL
			return &model.PublicUser{ID: userID}, nil
		},
	}
	h := NewUserHandler(service)

	req := authedContext(httptest.NewRequest(http.MethodPatch, "/api/v1/users/update-avatar",
		strings.NewReader(`{"url":"https://example.com/pic.png"}`)), "user-1")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.UpdateAvatar(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotURL != "https://example.com/pic.png" {
		t.Errorf("url = %q, want https://example.com/pic.png", gotURL)
	}
}

func TestUserHandler_UpdateCoverImage_UploadFailed(t *testing.T) {
	service := &mockUserService{
		updateCoverImageFn: func(_ context.Context, _, _ string) (*model.PublicUser, error) {
			return nil, model.NewUploadFailedError()
		},
	}
	h := NewUserHandler(service)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("coverImage", "cover.png")
	fw.Write([]byte("fake png"))
	mw.Close()

	req := authedContext(httptest.NewRequest(http.MethodPatch, "/api/v1/users/update-cover-image", &buf), "user-1")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	h.UpdateCoverImage(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

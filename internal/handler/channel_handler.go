package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tubehub/internal/middleware"
	"github.com/hitoshi/tubehub/internal/model"
)

// ChannelServiceInterface はチャンネルハンドラーが必要とするサービスインターフェース。
type ChannelServiceInterface interface {
	// GetChannelProfile はユーザー名でチャンネルを解決し、集計値付きで返す。
	GetChannelProfile(ctx context.Context, viewerID, username string) (*model.ChannelProfile, error)
	// Subscribe は閲覧者からチャンネルへの購読エッジを作成する。
	Subscribe(ctx context.Context, subscriberID, channelID string) error
	// Unsubscribe は閲覧者からチャンネルへの購読エッジを削除する。
	Unsubscribe(ctx context.Context, subscriberID, channelID string) error
	// GetWatchHistory は視聴履歴を新しい順に、所有者情報を埋め込んで返す。
	GetWatchHistory(ctx context.Context, userID string) ([]*model.VideoWithOwner, error)
	// RecordView は視聴履歴の先頭に動画を追加する。
	RecordView(ctx context.Context, userID, videoID string) error
}

// ChannelHandler はチャンネルと購読グラフのHTTPハンドラー。
type ChannelHandler struct {
	service ChannelServiceInterface
}

// NewChannelHandler はChannelHandlerを生成する。
func NewChannelHandler(service ChannelServiceInterface) *ChannelHandler {
	return &ChannelHandler{
		service: service,
	}
}

// GetChannelProfile はチャンネルプロフィールを返す。
// GET /api/v1/users/c/{username}
func (h *ChannelHandler) GetChannelProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	username := chi.URLParam(r, "username")

	profile, err := h.service.GetChannelProfile(r.Context(), viewerID, username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Subscribe は購読を処理する。
// POST /api/v1/subscriptions/{channelId}
func (h *ChannelHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	subscriberID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	channelID := chi.URLParam(r, "channelId")

	if err := h.service.Subscribe(r.Context(), subscriberID, channelID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unsubscribe は購読解除を処理する。
// DELETE /api/v1/subscriptions/{channelId}
func (h *ChannelHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	subscriberID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	channelID := chi.URLParam(r, "channelId")

	if err := h.service.Unsubscribe(r.Context(), subscriberID, channelID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetWatchHistory は視聴履歴を返す。
// GET /api/v1/users/history
func (h *ChannelHandler) GetWatchHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	history, err := h.service.GetWatchHistory(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// RecordView は視聴履歴への追加を処理する。
// POST /api/v1/users/history/{videoId}
func (h *ChannelHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	videoID := chi.URLParam(r, "videoId")

	if err := h.service.RecordView(r.Context(), userID, videoID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

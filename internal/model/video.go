// Package model はドメインモデルを定義する。
package model

import "time"

// Video は投稿済み動画を表す。
type Video struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnail"`
	VideoURL     string    `json:"videoFile"`
	CreatedAt    time.Time `json:"createdAt"`
}

// VideoWithOwner は視聴履歴応答用の、所有者情報を埋め込んだ動画の射影。
// Ownerは必ず1件埋め込む。所有者を解決できない動画は応答から除外する。
type VideoWithOwner struct {
	Video
	Owner OwnerSummary `json:"owner"`
}

// Subscription は購読者→チャンネルの有向エッジを表す。
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriber"`
	ChannelID    string    `json:"channel"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChannelProfile はチャンネルページ用の公開射影と集計値。
// パスワードハッシュ、リフレッシュトークン、視聴履歴は含めない。
type ChannelProfile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	FullName          string `json:"fullName"`
	Email             string `json:"email"`
	AvatarURL         string `json:"avatar"`
	CoverURL          string `json:"coverImage,omitempty"`
	SubscriberCount   int    `json:"subscribersCount"`
	SubscribedToCount int    `json:"channelsSubscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

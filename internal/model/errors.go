// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, channel, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeUserExists      = "USER_ALREADY_EXISTS"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeChannelNotFound = "CHANNEL_NOT_FOUND"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeUploadFailed    = "UPLOAD_FAILED"
)

// NewValidationError は必須項目の欠落・不正エラーを生成する。
func NewValidationError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("必須項目が入力されていません: %s", field),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserExistsError はユーザー名またはメールアドレスの重複エラーを生成する。
// どちらが重複したかは開示しない。
func NewUserExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserExists,
		Message:  "このユーザー名またはメールアドレスは既に使用されています。",
		Category: "validation",
		Action:   "別のユーザー名またはメールアドレスをお試しください。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
// 認証情報の誤り、トークンの期限切れ・失効・再利用のいずれでも
// 常に同一のメッセージを返し、失敗した検証段階を開示しない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "認証情報を確認して再度ログインしてください。",
	}
}

// NewChannelNotFoundError はチャンネルが見つからない場合のエラーを生成する。
func NewChannelNotFoundError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeChannelNotFound,
		Message:  fmt.Sprintf("指定されたチャンネルが見つかりません: %s", username),
		Category: "channel",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUploadFailedError はメディアアップロード失敗エラーを生成する。
func NewUploadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  "画像のアップロードに失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ProfileSanitizerService はユーザーが入力するプロフィールテキスト
// （表示名など）をサニタイズし、格納値経由のXSSを防止する。
// bluemondayのStrictPolicyでHTMLタグを全て除去し、プレーンテキストのみを残す。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ProfileSanitizerService はプロフィールテキストのサニタイズ機能の
// インターフェースを定義する。登録時とプロフィール更新時に使用される。
type ProfileSanitizerService interface {
	// SanitizeText は入力からHTMLタグを全て除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(s string) string
}

// profileSanitizer はProfileSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type profileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はProfileSanitizerServiceの新しいインスタンスを生成する。
// プロフィールテキストはHTMLを一切許可しないため、StrictPolicyを使用する。
func NewProfileSanitizer() *profileSanitizer {
	return &profileSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は入力からHTMLタグを全て除去したプレーンテキストを返す。
func (s *profileSanitizer) SanitizeText(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(text))
}

// Package media はリモートメディアストアへの画像アップロードを提供する。
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hitoshi/tubehub/internal/security"
)

// defaultMaxImportSize はURL指定インポートで取得する画像の最大サイズの既定値（10MB）。
const defaultMaxImportSize = 10 * 1024 * 1024

// Config はメディアストアクライアントの設定。
type Config struct {
	// BaseURL はメディアストアAPIのベースURL。
	BaseURL string
	// Timeout はアップロード1回あたりのタイムアウト。
	Timeout time.Duration
	// MaxImportSize はURL指定インポートで取得する画像の最大サイズ（バイト）。
	// 0以下の場合は既定値の10MBを使用する。
	MaxImportSize int64
}

// uploadResponse はメディアストアのアップロード応答。
type uploadResponse struct {
	URL string `json:"url"`
}

// Client はメディアストアへのHTTPクライアント。
// アップロード失敗はそのままエラーとして返し、リトライは行わない。
type Client struct {
	baseURL       string
	http          *http.Client
	ssrfGuard     security.SSRFGuardService
	maxImportSize int64
}

// NewClient はClientを生成する。
func NewClient(cfg Config, ssrfGuard security.SSRFGuardService) *Client {
	maxImportSize := cfg.MaxImportSize
	if maxImportSize <= 0 {
		maxImportSize = defaultMaxImportSize
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		http:          &http.Client{Timeout: cfg.Timeout},
		ssrfGuard:     ssrfGuard,
		maxImportSize: maxImportSize,
	}
}

// Upload はローカルファイルをメディアストアにアップロードし、公開URLを返す。
// アップロード後、ローカルファイルは呼び出し側の責任で破棄する。
func (c *Client) Upload(ctx context.Context, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open upload file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return "", fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read upload file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("media store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("media store returned status %d", resp.StatusCode)
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode media store response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("media store returned empty URL")
	}

	return result.URL, nil
}

// ImportURL は外部URLの画像を取得してメディアストアに再アップロードし、公開URLを返す。
// ユーザー指定URLへのリクエストとなるため、事前検証とSSRF防止クライアントの
// 両方でプライベートネットワークへのアクセスを遮断する。
func (c *Client) ImportURL(ctx context.Context, rawURL string) (string, error) {
	if err := c.ssrfGuard.ValidateURL(rawURL); err != nil {
		return "", fmt.Errorf("import URL rejected: %w", err)
	}

	client := c.ssrfGuard.NewSafeClient(c.http.Timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create import request: %w", err)
	}
	req.Header.Set("User-Agent", "TubeHub/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("import fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("import fetch returned status %d", resp.StatusCode)
	}

	// 一時ファイルに保存してからUploadに委譲する
	tmp, err := os.CreateTemp("", "tubehub-import-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	written, err := io.Copy(tmp, io.LimitReader(resp.Body, c.maxImportSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to save imported image: %w", err)
	}
	if written > c.maxImportSize {
		return "", fmt.Errorf("imported image exceeds size limit of %d bytes", c.maxImportSize)
	}

	return c.Upload(ctx, tmp.Name())
}

// Package tts 提供语音合成服务客户端
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ebook-assist-api/internal/config"
)

// Client 语音合成 HTTP 客户端
type Client struct {
	endpoint   string
	language   string
	format     string
	httpClient *http.Client
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Format   string `json:"format"`
}

// NewClient 创建语音合成客户端
func NewClient(cfg *config.TTSConfig) *Client {
	language := cfg.Language
	if language == "" {
		language = "es"
	}
	format := cfg.Format
	if format == "" {
		format = "mp3"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		language: language,
		format:   format,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize 把文本合成为音频，返回音频数据与 MIME 类型
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	endpoint := strings.TrimRight(c.endpoint, "/")
	if endpoint == "" {
		return nil, "", fmt.Errorf("tts endpoint is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, "", fmt.Errorf("invalid tts endpoint: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/synthesize"
	}

	reqBody, err := json.Marshal(&synthesizeRequest{
		Text:     text,
		Language: c.language,
		Format:   c.format,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal tts request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create tts request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("tts request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("tts request failed: status=%d", httpResp.StatusCode)
	}

	audio, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read tts response: %w", err)
	}

	mime := httpResp.Header.Get("Content-Type")
	if mime == "" {
		mime = "audio/mpeg"
	}
	return audio, mime, nil
}

package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/user/omovies/internal/model"
)

// ErrNoContent 响应成功但没有 data 字段
var ErrNoContent = errors.New("api: empty data")

// APIError 远程 API 返回的业务失败或非 2xx 状态
type APIError struct {
	StatusCode int
	Reason     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Reason)
}

// HTTPClient 远程电影 API 的 HTTP 客户端
// 凭证按调用显式传入，不保存任何全局授权头
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHTTPClient 创建新的HTTP客户端
func NewHTTPClient(baseURL string, timeout time.Duration, logger zerolog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("解析 API 地址失败: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("无效的 API 地址: %q", baseURL)
	}
	return &HTTPClient{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With().Str("component", "httpclient").Logger(),
	}, nil
}

// Do 发送请求并将 data 解析到 target
// token 为空时不附带 Authorization 头；target 为 nil 时忽略 data
func (c *HTTPClient) Do(ctx context.Context, method, path string, query url.Values, token string, payload, target interface{}) error {
	endpoint := c.endpoint(path, query)

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("API 请求完成")

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	var env model.Envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return &APIError{StatusCode: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
			}
			c.logger.Warn().Err(err).Bytes("body", truncate(raw, 512)).Msg("解析JSON失败")
			return fmt.Errorf("解析JSON失败: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Status == model.StatusFail {
		reason := env.Error
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Reason: reason}
	}

	if target == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return ErrNoContent
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("解析 data 失败: %w", err)
	}
	return nil
}

func (c *HTTPClient) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

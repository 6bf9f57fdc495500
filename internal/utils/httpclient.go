package utils

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"github.com/user/cinevasion/internal/metrics"
)

// HTTPStatusError 非 2xx 响应
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("请求失败，状态码: %d: %s", e.StatusCode, e.Body)
}

// IsTransient 判断是否值得重试：网络错误、超时、429、5xx
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	var netErr *transportError
	return errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded)
}

// transportError 请求未得到响应
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// HTTPClient 调用外部 JSON API 的客户端：单次超时、瞬时错误重试一次、熔断
type HTTPClient struct {
	service    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	retryDelay time.Duration
}

// NewHTTPClient 创建客户端，service 用于日志和指标
func NewHTTPClient(service string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		service:    service,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    NewBreaker[[]byte](DefaultBreakerConfig(service)),
		retryDelay: 300 * time.Millisecond,
	}
}

// PostJSON 发送 JSON 请求并把响应解析到 target
func (c *HTTPClient) PostJSON(ctx context.Context, url string, headers map[string]string, payload, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}

	start := time.Now()
	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.postWithRetry(ctx, url, headers, body)
	})
	metrics.ExternalCallDuration.WithLabelValues(c.service, outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("解析JSON失败: %w", err)
	}
	return nil
}

func (c *HTTPClient) postWithRetry(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error) {
	data, err := c.post(ctx, url, headers, body)
	if err == nil || !IsTransient(err) || ctx.Err() != nil {
		return data, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.retryDelay):
	}
	return c.post(ctx, url, headers, body)
}

func (c *HTTPClient) post(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	var reader io.ReadCloser
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err = gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("创建gzip读取器失败: %w", err)
		}
		defer reader.Close()
	case "deflate":
		reader = flate.NewReader(resp.Body)
		defer reader.Close()
	default:
		reader = resp.Body
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("读取响应失败: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: Truncate(string(data), 200)}
	}
	return data, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsBreakerOpen(err):
		return "breaker_open"
	case IsTransient(err):
		return "transient"
	default:
		return "error"
	}
}

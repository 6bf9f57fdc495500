package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/user/cinevasion/internal/model"
)

// GeminiRequest Gemini generateContent 请求结构
type GeminiRequest struct {
	SystemInstruction *GeminiContent         `json:"systemInstruction,omitempty"`
	Contents          []GeminiContent        `json:"contents"`
	GenerationConfig  GeminiGenerationConfig `json:"generationConfig"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// GeminiResponse Gemini API 响应结构
type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GeminiOptions Gemini 客户端配置
type GeminiOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// ErrGeminiNotConfigured 未配置 API Key
var ErrGeminiNotConfigured = errors.New("GEMINI_API_KEY is not set")

// GeminiClient 调用 Gemini 生成回答
type GeminiClient struct {
	opts GeminiOptions
	http *HTTPClient
}

// NewGeminiClient 创建 Gemini 客户端
func NewGeminiClient(opts GeminiOptions) *GeminiClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.0-flash"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &GeminiClient{
		opts: opts,
		http: NewHTTPClient("gemini", opts.Timeout),
	}
}

// Generate 根据系统指令、历史对话和本轮提问生成回答
func (c *GeminiClient) Generate(ctx context.Context, system string, history []model.ChatMessage, prompt string) (string, error) {
	if c.opts.APIKey == "" {
		return "", ErrGeminiNotConfigured
	}

	contents := make([]GeminiContent, 0, len(history)+1)
	for _, m := range history {
		role := "user"
		if m.Role == model.RoleAssistant {
			role = "model"
		}
		contents = append(contents, GeminiContent{Role: role, Parts: []GeminiPart{{Text: m.Content}}})
	}
	contents = append(contents, GeminiContent{Role: "user", Parts: []GeminiPart{{Text: prompt}}})

	req := GeminiRequest{
		Contents: contents,
		GenerationConfig: GeminiGenerationConfig{
			Temperature:     c.opts.Temperature,
			MaxOutputTokens: c.opts.MaxTokens,
		},
	}
	if system != "" {
		req.SystemInstruction = &GeminiContent{Parts: []GeminiPart{{Text: system}}}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.opts.BaseURL, c.opts.Model)
	headers := map[string]string{"x-goog-api-key": c.opts.APIKey}

	var result GeminiResponse
	if err := c.http.PostJSON(ctx, url, headers, req, &result); err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("gemini api error: %s", result.Error.Message)
	}

	if len(result.Candidates) > 0 {
		var b strings.Builder
		for _, p := range result.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text, nil
		}
	}

	return "", fmt.Errorf("gemini returned no content")
}

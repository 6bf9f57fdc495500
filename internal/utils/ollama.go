package utils

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EmbedRequest Ollama /api/embed 请求结构
type EmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbedResponse Ollama /api/embed 响应结构
type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaClient 调用本地 Ollama 生成文本向量
type OllamaClient struct {
	host  string
	model string
	http  *HTTPClient
}

// NewOllamaClient 创建 Ollama 客户端
func NewOllamaClient(host, model string, timeout time.Duration) *OllamaClient {
	if host == "" {
		host = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaClient{
		host:  strings.TrimRight(host, "/"),
		model: model,
		http:  NewHTTPClient("ollama", timeout),
	}
}

// Model 向量模型名，参与索引指纹计算
func (c *OllamaClient) Model() string {
	return c.model
}

// Embed 批量生成向量，返回顺序与输入一致
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var result EmbedResponse
	err := c.http.PostJSON(ctx, c.host+"/api/embed", nil, EmbedRequest{Model: c.model, Input: texts}, &result)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}
	for i, e := range result.Embeddings {
		if len(e) == 0 {
			return nil, fmt.Errorf("ollama embed: empty embedding at %d", i)
		}
	}
	return result.Embeddings, nil
}

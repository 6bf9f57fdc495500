package repository

import (
	"context"
	"math"

	"github.com/user/cinevasion/internal/model"
)

// VectorStore 持久化的电影文档向量索引
//
// Replace 必须在全部文档写入后才写入指纹，写入中断时 Fingerprint 返回空串，
// 下次启动会触发重建。
type VectorStore interface {
	// Name 后端名称（badger / pgvector）
	Name() string
	// Open 打开或连接底层存储
	Open(ctx context.Context) error
	// Reset 清除全部数据（包括损坏的存储），之后可重新 Replace；
	// 存储被其他进程占用时返回 ErrIndexLocked 且不修改数据
	Reset(ctx context.Context) error
	// Fingerprint 构建索引时使用的目录指纹，未构建时为空串
	Fingerprint(ctx context.Context) (string, error)
	// Count 已存储的文档数
	Count(ctx context.Context) (int, error)
	// Replace 用新的文档和向量整体替换索引
	Replace(ctx context.Context, fingerprint string, docs []model.Document, vectors [][]float32) error
	// Search 余弦相似度最高的 k 个文档
	Search(ctx context.Context, vector []float32, k int, filter model.DocumentFilter) ([]model.ScoredDocument, error)
	Close() error
}

// cosineSimilarity 余弦相似度，任一向量为零向量或维度不同时返回 0
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

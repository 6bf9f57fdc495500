package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/user/cinevasion/internal/logging"
	"github.com/user/cinevasion/internal/metrics"
	"github.com/user/cinevasion/internal/model"
	"github.com/user/cinevasion/internal/repository"
)

// Embedder 文本向量化
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// IndexState 向量索引状态
type IndexState string

const (
	StateUnloaded   IndexState = "unloaded"
	StateLoading    IndexState = "loading"
	StateValidating IndexState = "validating"
	StateRebuilding IndexState = "rebuilding"
	StateReady      IndexState = "ready"
	StateFailed     IndexState = "failed"
)

var allIndexStates = []string{
	string(StateUnloaded), string(StateLoading), string(StateValidating),
	string(StateRebuilding), string(StateReady), string(StateFailed),
}

// DefaultEmbedBatchSize 每次向量化请求的文档数
const DefaultEmbedBatchSize = 32

// KnowledgeBase 聊天检索用的向量索引
//
// 首次使用时打开已持久化的索引并校验（指纹、文档数、冒烟查询），
// 校验不通过则重新向量化全部文档。加载和重建互斥，并发冷启动只构建一次。
type KnowledgeBase struct {
	catalog   *repository.CatalogRepository
	store     repository.VectorStore
	embedder  Embedder
	batchSize int

	// 容量为 1 的信号量，等待时可被 ctx 取消
	lock chan struct{}

	mu    sync.RWMutex
	state IndexState
}

// NewKnowledgeBase 创建知识库
func NewKnowledgeBase(catalog *repository.CatalogRepository, store repository.VectorStore, embedder Embedder, batchSize int) *KnowledgeBase {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	kb := &KnowledgeBase{
		catalog:   catalog,
		store:     store,
		embedder:  embedder,
		batchSize: batchSize,
		lock:      make(chan struct{}, 1),
	}
	kb.setState(StateUnloaded)
	return kb
}

// State 当前状态
func (kb *KnowledgeBase) State() IndexState {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.state
}

func (kb *KnowledgeBase) setState(s IndexState) {
	kb.mu.Lock()
	kb.state = s
	kb.mu.Unlock()
	metrics.SetIndexState(string(s), allIndexStates)
}

func (kb *KnowledgeBase) acquire(ctx context.Context) error {
	select {
	case kb.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (kb *KnowledgeBase) release() {
	<-kb.lock
}

// Fingerprint 索引指纹：目录内容哈希 + 向量模型
func (kb *KnowledgeBase) Fingerprint() string {
	return kb.catalog.Fingerprint() + "|" + kb.embedder.Model()
}

// EnsureReady 确保索引可用，必要时加载、校验或重建
func (kb *KnowledgeBase) EnsureReady(ctx context.Context) error {
	if kb.State() == StateReady {
		return nil
	}
	if err := kb.acquire(ctx); err != nil {
		return model.NewRetrievalUnavailable("wait for index", err)
	}
	defer kb.release()

	if kb.State() == StateReady {
		return nil
	}
	return kb.load(ctx)
}

// Rebuild 无条件重新向量化全部文档
func (kb *KnowledgeBase) Rebuild(ctx context.Context) error {
	if err := kb.acquire(ctx); err != nil {
		return model.NewRetrievalUnavailable("wait for index", err)
	}
	defer kb.release()

	kb.setState(StateLoading)
	if err := kb.store.Open(ctx); err != nil {
		if errors.Is(err, repository.ErrIndexLocked) {
			return kb.locked(err)
		}
		if err := kb.store.Reset(ctx); err != nil {
			return kb.resetFailed(err)
		}
	}
	return kb.rebuild(ctx, PrepareDocuments(kb.catalog))
}

func (kb *KnowledgeBase) load(ctx context.Context) error {
	logger := logging.Component("knowledge")
	kb.setState(StateLoading)
	docs := PrepareDocuments(kb.catalog)

	if err := kb.store.Open(ctx); err != nil {
		if errors.Is(err, repository.ErrIndexLocked) {
			return kb.locked(err)
		}
		logger.Warn().Err(err).Str("backend", kb.store.Name()).Msg("索引无法打开，重置后重建")
		if err := kb.store.Reset(ctx); err != nil {
			return kb.resetFailed(err)
		}
		return kb.rebuild(ctx, docs)
	}

	kb.setState(StateValidating)
	valid, reason, err := kb.validate(ctx, docs)
	if err != nil {
		// 向量化服务不可用时无法判断索引好坏，也无法重建
		kb.setState(StateUnloaded)
		return model.NewRetrievalUnavailable("validate index", err)
	}
	if valid {
		logger.Info().Int("documents", len(docs)).Str("backend", kb.store.Name()).Msg("向量索引已就绪")
		kb.setState(StateReady)
		return nil
	}

	logger.Info().Str("reason", reason).Msg("向量索引需要重建")
	return kb.rebuild(ctx, docs)
}

// validate 返回索引是否可用；err 仅在向量化服务失败时返回
func (kb *KnowledgeBase) validate(ctx context.Context, docs []model.Document) (bool, string, error) {
	fp, err := kb.store.Fingerprint(ctx)
	if err != nil {
		return false, "fingerprint unreadable", nil
	}
	if fp != kb.Fingerprint() {
		return false, "fingerprint mismatch", nil
	}

	count, err := kb.store.Count(ctx)
	if err != nil {
		return false, "count unreadable", nil
	}
	if count != len(docs) {
		return false, fmt.Sprintf("count %d != %d", count, len(docs)), nil
	}
	if len(docs) == 0 {
		return true, "", nil
	}

	vecs, err := kb.embedder.Embed(ctx, []string{docs[0].Metadata.Title})
	if err != nil {
		return false, "", err
	}
	if len(vecs) != 1 {
		return false, "", errors.New("no embedding returned")
	}
	hits, err := kb.store.Search(ctx, vecs[0], 1, model.DocumentFilter{})
	if err != nil || len(hits) == 0 {
		return false, "smoke test returned nothing", nil
	}
	return true, "", nil
}

func (kb *KnowledgeBase) rebuild(ctx context.Context, docs []model.Document) error {
	logger := logging.Component("knowledge")
	kb.setState(StateRebuilding)
	start := time.Now()

	vectors := make([][]float32, 0, len(docs))
	for i := 0; i < len(docs); i += kb.batchSize {
		end := min(i+kb.batchSize, len(docs))
		texts := make([]string, 0, end-i)
		for _, d := range docs[i:end] {
			texts = append(texts, d.Content)
		}

		batch, err := kb.embedder.Embed(ctx, texts)
		if err == nil && len(batch) != len(texts) {
			err = fmt.Errorf("embedder returned %d vectors for %d documents", len(batch), len(texts))
		}
		if err != nil {
			return kb.fail(model.NewRetrievalUnavailable("embed documents", err))
		}
		vectors = append(vectors, batch...)
	}

	if err := kb.store.Replace(ctx, kb.Fingerprint(), docs, vectors); err != nil {
		return kb.fail(model.NewRetrievalUnavailable("write index", err))
	}

	metrics.IndexRebuildsTotal.WithLabelValues("ok").Inc()
	kb.setState(StateReady)
	logger.Info().
		Int("documents", len(docs)).
		Str("backend", kb.store.Name()).
		Dur("duration", time.Since(start)).
		Msg("向量索引重建完成")
	return nil
}

// locked 索引被其他进程占用：保持数据不动，回到 Unloaded 等待下次重试
func (kb *KnowledgeBase) locked(err error) error {
	logger := logging.Component("knowledge")
	logger.Warn().Err(err).Str("backend", kb.store.Name()).Msg("索引被其他进程占用，稍后重试")
	kb.setState(StateUnloaded)
	return model.NewRetrievalUnavailable("open index", err)
}

func (kb *KnowledgeBase) resetFailed(err error) error {
	if errors.Is(err, repository.ErrIndexLocked) {
		return kb.locked(err)
	}
	kb.setState(StateFailed)
	return model.NewRetrievalUnavailable("reset index", err)
}

func (kb *KnowledgeBase) fail(err error) error {
	logger := logging.Component("knowledge")
	logger.Error().Err(err).Msg("向量索引重建失败")
	metrics.IndexRebuildsTotal.WithLabelValues("failed").Inc()
	kb.setState(StateFailed)
	return err
}

// Retrieve 检索与问题最相近的 k 个电影文档
func (kb *KnowledgeBase) Retrieve(ctx context.Context, question string, k int, filter model.DocumentFilter) ([]model.ScoredDocument, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &model.ValidationError{Field: "question", Message: "must not be blank"}
	}
	if k <= 0 {
		return []model.ScoredDocument{}, nil
	}

	if err := kb.EnsureReady(ctx); err != nil {
		return nil, err
	}

	vecs, err := kb.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, model.NewRetrievalUnavailable("embed question", err)
	}
	if len(vecs) != 1 {
		return nil, model.NewRetrievalUnavailable("embed question", errors.New("no embedding returned"))
	}

	hits, err := kb.store.Search(ctx, vecs[0], k, filter)
	if err != nil {
		return nil, model.NewRetrievalUnavailable("search index", err)
	}
	return hits, nil
}

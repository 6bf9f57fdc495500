package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/user/cinevasion/internal/logging"
	"github.com/user/cinevasion/internal/model"
)

// BadgerDB key 前缀
const (
	docKeyPrefix      = "doc:"
	metaKeyPrefix     = "meta:"
	fingerprintMetaID = metaKeyPrefix + "fingerprint"
)

// ErrIndexLocked 索引目录正被其他进程使用
var ErrIndexLocked = errors.New("index directory is locked by another process")

// isLockError badger 无法获取目录锁（flock 返回 EWOULDBLOCK）
func isLockError(err error) bool {
	return errors.Is(err, syscall.EWOULDBLOCK) || strings.Contains(err.Error(), "Cannot acquire directory lock")
}

// badgerRecord 单个文档的存储格式
type badgerRecord struct {
	Document model.Document `json:"document"`
	Vector   []float32      `json:"vector"`
}

// BadgerVectorStore 基于 BadgerDB 的本地向量索引
// dir 为空时使用内存模式（测试用）
type BadgerVectorStore struct {
	dir string

	mu      sync.RWMutex
	db      *badger.DB
	records []badgerRecord // 已解码的文档缓存，Replace/Reset 后失效
	loaded  bool
}

// NewBadgerVectorStore 创建 BadgerDB 向量索引
func NewBadgerVectorStore(dir string) *BadgerVectorStore {
	return &BadgerVectorStore{dir: dir}
}

// Name 后端名称
func (s *BadgerVectorStore) Name() string { return "badger" }

// Open 打开数据库，已打开时直接返回
func (s *BadgerVectorStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *BadgerVectorStore) openLocked() error {
	if s.db != nil {
		return nil
	}

	opts := badger.DefaultOptions(s.dir).WithLogger(nil)
	if s.dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		if isLockError(err) {
			return fmt.Errorf("open badger %s: %w: %w", s.dir, ErrIndexLocked, err)
		}
		return fmt.Errorf("open badger %s: %w", s.dir, err)
	}
	s.db = db
	return nil
}

// Reset 清空索引；数据库损坏无法打开时删除目录后重新创建
// 目录被其他进程占用时返回 ErrIndexLocked，不做任何删除
func (s *BadgerVectorStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records, s.loaded = nil, false

	if s.db == nil {
		if err := s.openLocked(); err != nil {
			if s.dir == "" || errors.Is(err, ErrIndexLocked) {
				return err
			}
			logger := logging.Component("vector_badger")
			logger.Warn().Err(err).Str("dir", s.dir).Msg("索引目录损坏，删除后重建")
			if rmErr := os.RemoveAll(s.dir); rmErr != nil {
				return fmt.Errorf("remove badger dir: %w", rmErr)
			}
			if err := s.openLocked(); err != nil {
				return err
			}
		}
	}

	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("drop badger data: %w", err)
	}
	return nil
}

// Fingerprint 读取构建指纹
func (s *BadgerVectorStore) Fingerprint(ctx context.Context) (string, error) {
	db, err := s.handle()
	if err != nil {
		return "", err
	}

	var fp string
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fingerprintMetaID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			fp = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("read fingerprint: %w", err)
	}
	return fp, nil
}

// Count 文档数量
func (s *BadgerVectorStore) Count(ctx context.Context) (int, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(docKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// Replace 删除旧数据后批量写入，指纹最后写入
func (s *BadgerVectorStore) Replace(ctx context.Context, fingerprint string, docs []model.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("replace: %d documents but %d vectors", len(docs), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return err
	}
	s.records, s.loaded = nil, false

	if err := s.db.DropPrefix([]byte(metaKeyPrefix), []byte(docKeyPrefix)); err != nil {
		return fmt.Errorf("drop previous index: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(badgerRecord{Document: doc, Vector: vectors[i]})
		if err != nil {
			return fmt.Errorf("marshal document %s: %w", doc.ID, err)
		}
		if err := wb.Set([]byte(docKeyPrefix+doc.ID), data); err != nil {
			return fmt.Errorf("write document %s: %w", doc.ID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush documents: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(fingerprintMetaID), []byte(fingerprint))
	})
}

// Search 全量扫描计算余弦相似度
func (s *BadgerVectorStore) Search(ctx context.Context, vector []float32, k int, filter model.DocumentFilter) ([]model.ScoredDocument, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	scored := make([]model.ScoredDocument, 0, len(records))
	for i := range records {
		r := &records[i]
		if !filter.Match(r.Document.Metadata) {
			continue
		}
		scored = append(scored, model.ScoredDocument{
			Document: r.Document,
			Score:    cosineSimilarity(vector, r.Vector),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Close 关闭数据库
func (s *BadgerVectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.records, s.loaded = nil, false
	return err
}

func (s *BadgerVectorStore) handle() (*badger.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("badger vector store is not open")
	}
	return s.db, nil
}

// load 首次搜索时把全部文档解码到内存
func (s *BadgerVectorStore) load(ctx context.Context) ([]badgerRecord, error) {
	s.mu.RLock()
	if s.loaded {
		records := s.records
		s.mu.RUnlock()
		return records, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.records, nil
	}
	if s.db == nil {
		return nil, errors.New("badger vector store is not open")
	}

	var records []badgerRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(docKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r badgerRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// badger 按 key 排序，这里恢复成写入时的目录顺序
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Document.Metadata.Order < records[j].Document.Metadata.Order
	})

	s.records, s.loaded = records, true
	return records, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/user/cinevasion/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FilmEmbedding film_embeddings 表
type FilmEmbedding struct {
	Tconst    string          `gorm:"primaryKey;size:32"`
	Position  int             `gorm:"not null;index"`
	Title     string          `gorm:"type:text"`
	Year      int             `gorm:"index"`
	Genres    pq.StringArray  `gorm:"type:text[]"`
	Content   string          `gorm:"type:text;not null"`
	Metadata  datatypes.JSON  `gorm:"type:jsonb"`
	Embedding pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time
}

// TableName 表名
func (FilmEmbedding) TableName() string { return "film_embeddings" }

// IndexMeta film_index_meta 表（key/value）
type IndexMeta struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName 表名
func (IndexMeta) TableName() string { return "film_index_meta" }

const pgFingerprintKey = "fingerprint"

// PgVectorStore 基于 PostgreSQL + pgvector 的向量索引
type PgVectorStore struct {
	url string

	mu sync.RWMutex
	db *gorm.DB
}

// NewPgVectorStore 创建 pgvector 索引，Open 时才建立连接
func NewPgVectorStore(databaseURL string) *PgVectorStore {
	return &PgVectorStore{url: databaseURL}
}

// NewPgVectorStoreWithDB 复用已有连接
func NewPgVectorStoreWithDB(db *gorm.DB) *PgVectorStore {
	return &PgVectorStore{db: db}
}

// Name 后端名称
func (s *PgVectorStore) Name() string { return "pgvector" }

// Open 连接数据库并迁移表结构
func (s *PgVectorStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		db, err := InitDB(s.url)
		if err != nil {
			return err
		}
		s.db = db
	}
	return s.migrate(ctx)
}

func (s *PgVectorStore) migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	if err := db.AutoMigrate(&FilmEmbedding{}, &IndexMeta{}); err != nil {
		return fmt.Errorf("migrate vector tables: %w", err)
	}
	return nil
}

// Reset 删表后重新迁移
func (s *PgVectorStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		db, err := InitDB(s.url)
		if err != nil {
			return err
		}
		s.db = db
	}
	if err := s.db.WithContext(ctx).Migrator().DropTable(&FilmEmbedding{}, &IndexMeta{}); err != nil {
		return fmt.Errorf("drop vector tables: %w", err)
	}
	return s.migrate(ctx)
}

// Fingerprint 读取构建指纹
func (s *PgVectorStore) Fingerprint(ctx context.Context) (string, error) {
	db, err := s.handle()
	if err != nil {
		return "", err
	}

	var meta IndexMeta
	err = db.WithContext(ctx).Where("key = ?", pgFingerprintKey).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read fingerprint: %w", err)
	}
	return meta.Value, nil
}

// Count 文档数量
func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}

	var n int64
	if err := db.WithContext(ctx).Model(&FilmEmbedding{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return int(n), nil
}

// Replace 在一个事务内清空并写入全部文档
func (s *PgVectorStore) Replace(ctx context.Context, fingerprint string, docs []model.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("replace: %d documents but %d vectors", len(docs), len(vectors))
	}
	db, err := s.handle()
	if err != nil {
		return err
	}

	rows := make([]FilmEmbedding, 0, len(docs))
	for i, doc := range docs {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata %s: %w", doc.ID, err)
		}
		rows = append(rows, FilmEmbedding{
			Tconst:    doc.ID,
			Position:  doc.Metadata.Order,
			Title:     doc.Metadata.Title,
			Year:      doc.Metadata.Year,
			Genres:    pq.StringArray(doc.Metadata.Genres),
			Content:   doc.Content,
			Metadata:  datatypes.JSON(meta),
			Embedding: pgvector.NewVector(vectors[i]),
		})
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&IndexMeta{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&FilmEmbedding{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 200).Error; err != nil {
				return fmt.Errorf("insert embeddings: %w", err)
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&IndexMeta{Key: pgFingerprintKey, Value: fingerprint}).Error
	})
}

// pgScoredRow 检索结果行
type pgScoredRow struct {
	Tconst   string
	Content  string
	Metadata datatypes.JSON
	Distance float64
}

// Search 余弦距离（<=>）排序，过滤条件下推到 SQL
func (s *PgVectorStore) Search(ctx context.Context, vector []float32, k int, filter model.DocumentFilter) ([]model.ScoredDocument, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	q := db.WithContext(ctx).Model(&FilmEmbedding{}).
		Select("tconst, content, metadata, embedding <=> ? AS distance", pgvector.NewVector(vector))
	if filter.MaxYear > 0 {
		q = q.Where("year > 0 AND year <= ?", filter.MaxYear)
	}
	if filter.Genre != "" {
		q = q.Where("? = ANY(genres)", filter.Genre)
	}
	if k > 0 {
		q = q.Limit(k)
	}

	var rows []pgScoredRow
	if err := q.Order("distance").Order("position").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	out := make([]model.ScoredDocument, 0, len(rows))
	for _, r := range rows {
		doc := model.ScoredDocument{
			Document: model.Document{ID: r.Tconst, Content: r.Content},
			Score:    1 - r.Distance,
		}
		if len(r.Metadata) > 0 {
			if err := json.Unmarshal(r.Metadata, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata %s: %w", r.Tconst, err)
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

// Close 关闭连接池
func (s *PgVectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}

func (s *PgVectorStore) handle() (*gorm.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("pgvector store is not open")
	}
	return s.db, nil
}

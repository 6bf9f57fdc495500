package repository

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化 PostgreSQL 连接（pgvector 索引后端使用）
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Repositories 仓库集合
type Repositories struct {
	Catalog *CatalogRepository
	Vectors VectorStore
}

// NewRepositories 创建仓库集合
func NewRepositories(catalog *CatalogRepository, vectors VectorStore) *Repositories {
	return &Repositories{
		Catalog: catalog,
		Vectors: vectors,
	}
}

// NewVectorStore 按配置选择向量索引后端
func NewVectorStore(backend, dir, databaseURL string) (VectorStore, error) {
	switch backend {
	case "", "badger":
		return NewBadgerVectorStore(dir), nil
	case "pgvector":
		return NewPgVectorStore(databaseURL), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", backend)
	}
}

// Close 释放仓库持有的资源
func (r *Repositories) Close() error {
	if r.Vectors == nil {
		return nil
	}
	return r.Vectors.Close()
}

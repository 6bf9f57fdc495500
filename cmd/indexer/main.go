// indexer 离线构建聊天用的向量索引
//
//	go run ./cmd/indexer            # 索引无效时才重建
//	go run ./cmd/indexer -force     # 无条件重建
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/cinevasion/internal/config"
	"github.com/user/cinevasion/internal/logging"
	"github.com/user/cinevasion/internal/repository"
	"github.com/user/cinevasion/internal/service"
	"github.com/user/cinevasion/internal/utils"
)

func main() {
	force := flag.Bool("force", false, "rebuild even if the stored index is valid")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall time limit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("配置加载失败")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger := logging.Component("indexer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	catalog, err := repository.LoadCatalog(ctx, repository.CatalogFiles{
		Dir:    cfg.Catalog.Dir,
		Films:  cfg.Catalog.FilmsFile,
		People: cfg.Catalog.PeopleFile,
		Links:  cfg.Catalog.LinksFile,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("电影目录加载失败")
	}

	store, err := repository.NewVectorStore(cfg.Index.Backend, cfg.Index.Dir, cfg.Index.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("向量索引配置错误")
	}
	defer store.Close()

	embedder := utils.NewOllamaClient(cfg.Ollama.Host, cfg.Ollama.Model, cfg.Ollama.Timeout)
	kb := service.NewKnowledgeBase(catalog, store, embedder, cfg.Index.BatchSize)

	start := time.Now()
	if *force {
		err = kb.Rebuild(ctx)
	} else {
		err = kb.EnsureReady(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Msg("索引构建失败")
		store.Close()
		os.Exit(1)
	}

	logger.Info().
		Str("backend", store.Name()).
		Str("fingerprint", kb.Fingerprint()).
		Int("documents", catalog.Len()).
		Dur("duration", time.Since(start)).
		Msg("索引已就绪")
}

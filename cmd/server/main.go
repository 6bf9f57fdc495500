package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/user/cinevasion/internal/config"
	"github.com/user/cinevasion/internal/handler"
	"github.com/user/cinevasion/internal/logging"
	"github.com/user/cinevasion/internal/repository"
	"github.com/user/cinevasion/internal/router"
	"github.com/user/cinevasion/internal/service"
	"github.com/user/cinevasion/internal/utils"
)

func main() {
	// 加载配置（含 .env）
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("配置加载失败")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger := logging.Component("server")

	// 加载电影目录
	ctx := context.Background()
	catalog, err := repository.LoadCatalog(ctx, repository.CatalogFiles{
		Dir:    cfg.Catalog.Dir,
		Films:  cfg.Catalog.FilmsFile,
		People: cfg.Catalog.PeopleFile,
		Links:  cfg.Catalog.LinksFile,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("电影目录加载失败")
	}

	// 向量索引后端
	vectors, err := repository.NewVectorStore(cfg.Index.Backend, cfg.Index.Dir, cfg.Index.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("向量索引配置错误")
	}

	// 初始化仓库
	repos := repository.NewRepositories(catalog, vectors)
	defer repos.Close()

	// 外部 AI 服务
	embedder := utils.NewOllamaClient(cfg.Ollama.Host, cfg.Ollama.Model, cfg.Ollama.Timeout)
	generator := utils.NewGeminiClient(utils.GeminiOptions{
		APIKey:      cfg.Gemini.APIKey,
		BaseURL:     cfg.Gemini.BaseURL,
		Model:       cfg.Gemini.Model,
		Timeout:     cfg.Gemini.Timeout,
		Temperature: cfg.Gemini.Temperature,
		MaxTokens:   cfg.Gemini.MaxTokens,
	})
	if cfg.Gemini.APIKey == "" {
		logger.Warn().Msg("未设置 GEMINI_API_KEY，聊天将返回降级回复")
	}

	// 初始化 Handler
	h := handler.NewHandler(repos, cfg, embedder, generator)
	r := router.NewEngine(cfg, h)

	// 后台预热：特征矩阵、TF-IDF 和向量索引
	warmCtx, stopWarm := context.WithCancel(ctx)
	defer stopWarm()
	go warmUp(warmCtx, h, cfg.Index.WarmOnStart)

	// 索引不可用时定期重试
	if cfg.Index.RecheckInterval > 0 {
		service.NewIndexMaintainer(h.KnowledgeBase, cfg.Index.RecheckInterval).Start(warmCtx)
	}

	// 配置 HTTP 服务器
	srv := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		logger.Info().Str("addr", "http://localhost:"+cfg.Server.Port).Int("films", catalog.Len()).Msg("服务器启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("正在关闭服务器...")
	stopWarm()

	// 5 秒超时上下文用于关闭过程
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器强制关闭")
	}

	logger.Info().Msg("服务器已退出")
}

// warmUp 提前构建推荐和搜索用的内存结构，可选地准备向量索引
func warmUp(ctx context.Context, h *handler.Handler, index bool) {
	logger := logging.Component("warmup")

	if _, err := h.Recommender.Features(ctx); err != nil {
		logger.Error().Err(err).Msg("特征矩阵构建失败")
	}
	if _, err := h.SearchService.Index(ctx); err != nil {
		logger.Error().Err(err).Msg("TF-IDF 索引构建失败")
	}
	if !index {
		return
	}
	if err := h.KnowledgeBase.EnsureReady(ctx); err != nil {
		// 聊天首次请求时会再次尝试
		logger.Warn().Err(err).Msg("向量索引暂不可用")
	}
}

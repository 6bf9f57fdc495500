package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/cinevasion/internal/config"
	"github.com/user/cinevasion/internal/model"
	"github.com/user/cinevasion/internal/repository"
	"github.com/user/cinevasion/internal/service"
	"github.com/user/cinevasion/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Repos          *repository.Repositories
	Config         *config.Config
	Recommender    *service.RecommendationService
	SearchService  *service.SearchService
	KnowledgeBase  *service.KnowledgeBase
	ChatService    *service.ChatService
	recommendCache *utils.ResponseCache
}

// NewHandler 创建处理器
func NewHandler(repos *repository.Repositories, cfg *config.Config, embedder service.Embedder, generator service.Generator) *Handler {
	// 推荐服务
	recommender := service.NewRecommendationService(repos.Catalog, cfg.Recommend.GenreWeight)

	// 搜索服务，查询结果放进 LRU
	searchCache := utils.NewLRUCache[*service.SearchResult](cfg.Search.CacheSize, cfg.Search.CacheTTL)
	searchService := service.NewSearchService(repos.Catalog, cfg.Search.MaxFeatures, searchCache)

	// 聊天：向量索引 + 生成
	kb := service.NewKnowledgeBase(repos.Catalog, repos.Vectors, embedder, cfg.Index.BatchSize)
	chat := service.NewChatService(kb, generator, cfg.Chat.TopK, cfg.Chat.MaxYear)

	h := &Handler{
		Repos:         repos,
		Config:        cfg,
		Recommender:   recommender,
		SearchService: searchService,
		KnowledgeBase: kb,
		ChatService:   chat,
	}
	if cfg.Recommend.CacheTTL > 0 {
		h.recommendCache = utils.NewResponseCache(cfg.Recommend.CacheTTL)
	}
	return h
}

// parseCount 解析数量参数 n：缺省用 def，超过 maxN 截断
func parseCount(c *gin.Context, def, maxN int) (int, error) {
	raw := c.Query("n")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &model.ValidationError{Field: "n", Message: "must be an integer"}
	}
	if n > maxN {
		n = maxN
	}
	return n, nil
}

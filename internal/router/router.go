package router

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/user/cinevasion/internal/config"
	"github.com/user/cinevasion/internal/handler"
	"github.com/user/cinevasion/internal/metrics"
	"github.com/user/cinevasion/internal/middleware"
)

// SessionName 会话 cookie 名
const SessionName = "cinevasion"

// NewEngine 创建 gin 引擎并挂载中间件和路由
func NewEngine(cfg *config.Config, h *handler.Handler) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// 中间件
	r.Use(middleware.Logger())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))

	// 启用 gzip，默认压缩级别；/metrics 由 promhttp 自行协商压缩
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 设置 Session 中间件（保存聊天历史）
	store := cookie.NewStore([]byte(cfg.AppSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 天
		HttpOnly: true,
		Secure:   cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(SessionName, store))

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		// ==================== 目录 ====================
		api.GET("/films", h.BrowseFilms)
		api.GET("/films/facets", h.Facets)
		api.GET("/films/:tconst", h.FilmDetail)
		api.GET("/films/:tconst/recommendations", h.RecommendByKey)

		// ==================== 推荐与搜索 ====================
		api.GET("/recommend", h.Recommend)
		api.GET("/search", h.Search)

		// ==================== 聊天 ====================
		limiter := middleware.NewRateLimiter(h.Config.Chat.RatePerMinute, h.Config.Chat.Burst)
		api.GET("/chat", h.ChatHistory)
		api.POST("/chat", limiter.Middleware(), h.Chat)
		api.DELETE("/chat", h.ResetChat)
	}
}

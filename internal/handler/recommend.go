package handler

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/cinevasion/internal/model"
	"github.com/user/cinevasion/internal/utils"
)

// Recommend 按片名推荐相似电影 GET /api/recommend?title=&n=
func (h *Handler) Recommend(c *gin.Context) {
	title := strings.TrimSpace(c.Query("title"))
	if title == "" {
		utils.RespondError(c, &model.ValidationError{Field: "title", Message: "is required"})
		return
	}
	n, err := parseCount(c, h.Config.Recommend.DefaultCount, h.Config.Recommend.MaxCount)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	h.respondRecommendations(c, fmt.Sprintf("rec:title:%s:%d", title, n), func() ([]model.Recommendation, error) {
		return h.Recommender.Recommend(c.Request.Context(), title, n)
	})
}

// RecommendByKey 按 tconst 推荐 GET /api/films/:tconst/recommendations
func (h *Handler) RecommendByKey(c *gin.Context) {
	tconst := c.Param("tconst")
	n, err := parseCount(c, h.Config.Recommend.DefaultCount, h.Config.Recommend.MaxCount)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	h.respondRecommendations(c, fmt.Sprintf("rec:key:%s:%d", tconst, n), func() ([]model.Recommendation, error) {
		return h.Recommender.RecommendByKey(c.Request.Context(), tconst, n)
	})
}

func (h *Handler) respondRecommendations(c *gin.Context, key string, compute func() ([]model.Recommendation, error)) {
	if h.recommendCache != nil {
		if cached, ok := h.recommendCache.Get(key); ok {
			utils.Success(c, cached)
			return
		}
	}

	recs, err := compute()
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if h.recommendCache != nil {
		h.recommendCache.Set(key, recs)
	}
	utils.Success(c, recs)
}

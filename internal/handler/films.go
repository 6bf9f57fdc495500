package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/cinevasion/internal/model"
	"github.com/user/cinevasion/internal/utils"
)

const defaultBrowseLimit = 20

// BrowseFilms 按年代、类型、国家、评分筛选电影
func (h *Handler) BrowseFilms(c *gin.Context) {
	var filter model.BrowseFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.BadRequest(c, "筛选参数错误: "+err.Error())
		return
	}
	if filter.Limit == 0 {
		filter.Limit = defaultBrowseLimit
	}

	films := h.Repos.Catalog.Browse(filter)
	summaries := make([]model.FilmSummary, 0, len(films))
	for i := range films {
		summaries = append(summaries, films[i].Summary())
	}
	utils.Success(c, summaries)
}

// Facets 筛选项
func (h *Handler) Facets(c *gin.Context) {
	utils.Success(c, h.Repos.Catalog.Facets())
}

// FilmDetail 电影详情
func (h *Handler) FilmDetail(c *gin.Context) {
	detail, err := h.Repos.Catalog.Detail(c.Param("tconst"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, detail)
}

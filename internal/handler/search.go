package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/cinevasion/internal/utils"
)

// Search 搜索电影 GET /api/search?q=&n=
func (h *Handler) Search(c *gin.Context) {
	n, err := parseCount(c, h.Config.Search.DefaultCount, h.Config.Search.MaxCount)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	result, err := h.SearchService.Search(c.Request.Context(), c.Query("q"), n)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, result)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/cinevasion/internal/utils"
)

// Health 存活检查
func (h *Handler) Health(c *gin.Context) {
	utils.Success(c, gin.H{"status": "ok"})
}

// Ready 就绪检查：目录已加载即可服务，索引状态仅供参考（聊天可降级）
func (h *Handler) Ready(c *gin.Context) {
	if h.Repos == nil || h.Repos.Catalog == nil || h.Repos.Catalog.Len() == 0 {
		utils.Error(c, http.StatusServiceUnavailable, "目录未加载")
		return
	}

	data := gin.H{
		"status": "ready",
		"films":  h.Repos.Catalog.Len(),
		"people": len(h.Repos.Catalog.People()),
	}
	if h.KnowledgeBase != nil {
		data["index"] = h.KnowledgeBase.State()
	}
	if h.Repos.Vectors != nil {
		data["index_backend"] = h.Repos.Vectors.Name()
	}
	utils.Success(c, data)
}

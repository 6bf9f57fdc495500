package handler

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/user/cinevasion/internal/logging"
	"github.com/user/cinevasion/internal/model"
	"github.com/user/cinevasion/internal/service"
	"github.com/user/cinevasion/internal/utils"
)

// ChatHistoryKey Session 中保存对话历史的键
const ChatHistoryKey = "chat_history"

// chatMessageMaxRunes 保存到 Session 的单条消息长度上限（cookie 容量有限）
const chatMessageMaxRunes = 300

func init() {
	// cookie 会话用 gob 编码
	gob.Register([]model.ChatMessage{})
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Question string `json:"question" binding:"required,max=1000"`
}

// Chat 向 CineBot 提问 POST /api/chat
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	session := sessions.Default(c)
	history := loadHistory(session)

	reply, err := h.ChatService.Ask(c.Request.Context(), history, req.Question)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	history = append(history,
		model.ChatMessage{Role: model.RoleUser, Content: utils.Truncate(req.Question, chatMessageMaxRunes)},
		model.ChatMessage{Role: model.RoleAssistant, Content: utils.Truncate(reply.Answer, chatMessageMaxRunes)},
	)
	if size := h.Config.Chat.HistorySize; len(history) > size {
		history = history[len(history)-size:]
	}
	session.Set(ChatHistoryKey, history)
	if err := session.Save(); err != nil {
		// 历史保存失败不影响本次回答
		logger := logging.Component("chat")
		logger.Warn().Err(err).Msg("保存对话历史失败")
	}

	utils.Success(c, reply)
}

// ResetChat 清空对话历史 DELETE /api/chat
func (h *Handler) ResetChat(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(ChatHistoryKey)
	if err := session.Save(); err != nil {
		utils.InternalServerError(c, "")
		return
	}
	utils.SuccessWithMessage(c, "对话已重置", gin.H{"greeting": service.Greeting})
}

// ChatHistory 当前对话历史 GET /api/chat
func (h *Handler) ChatHistory(c *gin.Context) {
	utils.Success(c, gin.H{
		"greeting": service.Greeting,
		"messages": loadHistory(sessions.Default(c)),
	})
}

func loadHistory(session sessions.Session) []model.ChatMessage {
	if v, ok := session.Get(ChatHistoryKey).([]model.ChatMessage); ok {
		return v
	}
	return []model.ChatMessage{}
}

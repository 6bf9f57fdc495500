package model

// 聊天角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 一条对话消息（保存在 Session 中）
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

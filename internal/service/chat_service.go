package service

import (
	"context"
	"strings"

	"github.com/user/cinevasion/internal/logging"
	"github.com/user/cinevasion/internal/metrics"
	"github.com/user/cinevasion/internal/model"
)

// SystemInstruction CineBot 的固定系统指令
const SystemInstruction = "Tu es CineBot, un assistant cinéma passionné 🎬. " +
	"Tu réponds uniquement en français, avec beaucoup d'émojis appropriés. " +
	"Le titre de chaque film apparaît en **gras**. " +
	"Pour chaque film cité, indique ⭐ Note, 📅 Année, 🎭 Genre et 📝 Synopsis. " +
	"Tu ne parles que des films sortis jusqu'à l'année 2000, de leurs acteurs et de leurs réalisateurs. " +
	"Tes réponses font au plus 250 mots."

// FallbackAnswer 生成失败时返回给用户的固定回复
const FallbackAnswer = "Je suis désolé, je ne peux pas répondre pour le moment. 😔"

// Greeting 新会话的欢迎语
const Greeting = "Bonjour! 🎬 Je suis CineBot, votre assistant cinéma! Comment puis-je vous aider aujourd'hui? 🍿"

// 默认检索参数
const (
	DefaultChatTopK    = 5
	DefaultChatMaxYear = 2000
)

// Retriever 检索相关电影文档
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int, filter model.DocumentFilter) ([]model.ScoredDocument, error)
}

// Generator 根据上下文生成回答
type Generator interface {
	Generate(ctx context.Context, system string, history []model.ChatMessage, prompt string) (string, error)
}

// ChatSource 回答引用的电影
type ChatSource struct {
	Tconst string  `json:"tconst"`
	Title  string  `json:"title"`
	Year   int     `json:"year,omitempty"`
	Score  float64 `json:"score"`
}

// ChatReply 聊天回复
type ChatReply struct {
	Answer   string       `json:"answer"`
	Sources  []ChatSource `json:"sources"`
	Degraded bool         `json:"degraded"`
}

// ChatService 基于目录知识的问答
type ChatService struct {
	retriever Retriever
	generator Generator
	topK      int
	maxYear   int
}

// NewChatService 创建聊天服务；topK、maxYear 为 0 时使用默认值
func NewChatService(retriever Retriever, generator Generator, topK, maxYear int) *ChatService {
	if topK <= 0 {
		topK = DefaultChatTopK
	}
	if maxYear <= 0 {
		maxYear = DefaultChatMaxYear
	}
	return &ChatService{
		retriever: retriever,
		generator: generator,
		topK:      topK,
		maxYear:   maxYear,
	}
}

// Ask 回答一个问题
//
// 检索失败时不带上下文直接生成，生成失败时返回固定回复，两种情况都标记 Degraded。
// 只有问题为空时返回错误。
func (s *ChatService) Ask(ctx context.Context, history []model.ChatMessage, question string) (*ChatReply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &model.ValidationError{Field: "question", Message: "must not be blank"}
	}

	logger := logging.Component("chat")
	reply := &ChatReply{Sources: []ChatSource{}}

	hits, err := s.retriever.Retrieve(ctx, question, s.topK, model.DocumentFilter{MaxYear: s.maxYear})
	if err != nil {
		logger.Warn().Err(err).Msg("检索失败，不带上下文回答")
		metrics.ChatDegradedTotal.WithLabelValues("retrieval").Inc()
		reply.Degraded = true
		hits = nil
	}
	for _, h := range hits {
		reply.Sources = append(reply.Sources, ChatSource{
			Tconst: h.Metadata.Tconst,
			Title:  h.Metadata.Title,
			Year:   h.Metadata.Year,
			Score:  h.Score,
		})
	}

	answer, err := s.generator.Generate(ctx, SystemInstruction, history, BuildPrompt(question, hits))
	if err != nil {
		logger.Error().Err(err).Msg("生成回答失败")
		metrics.ChatDegradedTotal.WithLabelValues("generation").Inc()
		reply.Answer = FallbackAnswer
		reply.Degraded = true
		return reply, nil
	}

	reply.Answer = answer
	return reply, nil
}

// BuildPrompt 把检索到的文档拼到问题前面，没有文档时只发送问题
func BuildPrompt(question string, hits []model.ScoredDocument) string {
	if len(hits) == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString("Utilise ce contexte pour répondre.\nContexte des films similaires:\n")
	for _, h := range hits {
		b.WriteString("\n")
		b.WriteString(h.Content)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

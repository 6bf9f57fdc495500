package service

import (
	"context"
	"time"

	"github.com/user/cinevasion/internal/logging"
)

// IndexMaintainer 定时检查向量索引，不可用时重新加载
type IndexMaintainer struct {
	kb       *KnowledgeBase
	interval time.Duration
}

// NewIndexMaintainer 创建索引维护任务
func NewIndexMaintainer(kb *KnowledgeBase, interval time.Duration) *IndexMaintainer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &IndexMaintainer{kb: kb, interval: interval}
}

// Start 启动定时任务，ctx 取消后退出
func (m *IndexMaintainer) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.runOnce(ctx)
			}
		}
	}()
}

// runOnce 索引未就绪时尝试恢复，返回检查后的状态
func (m *IndexMaintainer) runOnce(ctx context.Context) IndexState {
	state := m.kb.State()
	switch state {
	case StateReady, StateLoading, StateValidating, StateRebuilding:
		return state
	}

	logger := logging.Component("maintenance")
	logger.Info().Str("state", string(state)).Msg("向量索引不可用，尝试恢复")
	if err := m.kb.EnsureReady(ctx); err != nil {
		logger.Warn().Err(err).Msg("向量索引恢复失败")
	}
	return m.kb.State()
}

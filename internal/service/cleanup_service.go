package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper 可定期清理过期数据的组件
type Sweeper interface {
	DeleteExpired() int
}

// SweeperFunc 适配普通函数
type SweeperFunc func() int

func (f SweeperFunc) DeleteExpired() int { return f() }

// CleanupService 清理服务：定时清理过期的会话状态容器与提示消息
type CleanupService struct {
	interval time.Duration
	sweepers map[string]Sweeper
	logger   zerolog.Logger
}

// NewCleanupService 创建清理服务
func NewCleanupService(interval time.Duration, sweepers map[string]Sweeper, logger zerolog.Logger) *CleanupService {
	return &CleanupService{
		interval: interval,
		sweepers: sweepers,
		logger:   logger.With().Str("component", "cleanup").Logger(),
	}
}

// Start 启动定时清理任务，ctx 取消后退出
func (s *CleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("清理任务已停止")
				return
			case <-ticker.C:
				s.RunOnce()
			}
		}
	}()
}

// RunOnce 执行一次清理，返回总清理数量
func (s *CleanupService) RunOnce() int {
	total := 0
	for name, sw := range s.sweepers {
		n := sw.DeleteExpired()
		total += n
		if n > 0 {
			s.logger.Info().Str("target", name).Int("removed", n).Msg("已清理过期数据")
		}
	}
	s.logger.Debug().Int("removed", total).Msg("清理完成")
	return total
}

package store

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Registry 会话 ID 到状态容器的映射，空闲超过 ttl 的会话会被清理
type Registry struct {
	api    MovieAPI
	logger zerolog.Logger

	mu    sync.Mutex
	items *cache.Cache
}

// NewRegistry 过期清理由 CleanupService 定时调用 DeleteExpired 完成
func NewRegistry(api MovieAPI, ttl time.Duration, logger zerolog.Logger) *Registry {
	return &Registry{
		api:    api,
		logger: logger,
		items:  cache.New(ttl, 0),
	}
}

// Get 获取或创建会话的状态容器，并刷新空闲时间
func (r *Registry) Get(sessionID string) *MoviesStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.items.Get(sessionID); ok {
		s := v.(*MoviesStore)
		r.items.SetDefault(sessionID, s)
		return s
	}

	s := NewMoviesStore(r.api, r.logger.With().Str("session", shortID(sessionID)).Logger())
	r.items.SetDefault(sessionID, s)
	return s
}

// Drop 删除会话的状态容器（退出登录时调用）
func (r *Registry) Drop(sessionID string) {
	r.items.Delete(sessionID)
}

// Len 当前容器数量（可能包含尚未清理的过期项）
func (r *Registry) Len() int {
	return r.items.ItemCount()
}

// DeleteExpired 清理过期的状态容器，返回清理数量
func (r *Registry) DeleteExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := r.items.ItemCount()
	r.items.DeleteExpired()
	return before - r.items.ItemCount()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

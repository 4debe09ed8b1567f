package store

import (
	"sync"
	"time"

	"github.com/user/omovies/internal/utils"
)

// NoticeLevel 提示级别
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice 一次性提示消息，在下一次页面渲染时展示
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notices 按会话暂存的提示消息
type Notices struct {
	mu    sync.Mutex
	items *utils.TTLCache[[]Notice]
}

func NewNotices(capacity int, ttl time.Duration) *Notices {
	return &Notices{items: utils.NewTTLCache[[]Notice](capacity, ttl)}
}

// Push 追加一条提示
func (n *Notices) Push(sessionID string, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	existing, _ := n.items.Get(sessionID)
	list := make([]Notice, 0, len(existing)+1)
	list = append(list, existing...)
	n.items.Set(sessionID, append(list, notice))
}

func (n *Notices) Success(sessionID, message string) {
	n.Push(sessionID, Notice{Level: NoticeSuccess, Message: message})
}

func (n *Notices) Error(sessionID, message string) {
	n.Push(sessionID, Notice{Level: NoticeError, Message: message})
}

// Pop 取出并清空该会话的所有提示
func (n *Notices) Pop(sessionID string) []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	list, _ := n.items.Pop(sessionID)
	return list
}

// RemoveExpired 清理过期提示
func (n *Notices) RemoveExpired() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.items.RemoveExpired()
}

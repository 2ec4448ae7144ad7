package session

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("run not found")

// InMemoryStore 是基于内存的运行注册表。
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]*Run
}

func NewInMemoryStore() *InMemoryStore {
	// 第一阶段用内存 store：实现简单、调试方便。
	// 重启即丢注册表；已导出的会话文档不受影响。
	return &InMemoryStore{data: make(map[string]*Run)}
}

// Get 根据运行 ID 获取 Run。
func (s *InMemoryStore) Get(_ context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// Save 登记或更新 Run。
func (s *InMemoryStore) Save(_ context.Context, r *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[r.ID] = r
	return nil
}

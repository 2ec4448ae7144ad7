package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ccs-probe/server/internal/model"
)

var (
	// ErrEmpty 表示历史还没有任何快照。
	ErrEmpty = errors.New("history is empty")
)

// InMemoryStore 是基于内存的历史实现。
// 一个运行一个实例：核心是单写者模型，锁只为并发读
// （HTTP 层的 status/watch 读与 transition 写可能交错）。
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*model.Interaction
}

func NewInMemoryStore() *InMemoryStore {
	// 第一阶段用内存实现：调试方便，重启即丢。
	// 持久化走导出文档（export 包），不在这里做。
	return &InMemoryStore{}
}

// Count 返回历史长度。
func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries), nil
}

// Append 追加快照，校验步号单调。
func (s *InMemoryStore) Append(_ context.Context, snap *model.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Step != len(s.entries) {
		return fmt.Errorf("out-of-order step %d, next is %d", snap.Step, len(s.entries))
	}
	s.entries = append(s.entries, snap)
	return nil
}

// Latest 返回最新一条快照原件。
func (s *InMemoryStore) Latest(_ context.Context) (*model.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, ErrEmpty
	}
	return s.entries[len(s.entries)-1], nil
}

// List 返回全量历史。切片是副本，元素指针仍指向原件——
// 条目本身按契约只读，调用方不得越过 oracle 修改。
func (s *InMemoryStore) List(_ context.Context) ([]*model.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Interaction, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

package session

import (
	"context"
	"sync"
	"time"

	"ccs-probe/server/internal/oracle"
)

// Run 表示一次测试运行：一个测试者、一个 oracle、一条独立历史。
// 运行之间不共享任何状态，可以并行进行。
type Run struct {
	ID        string    `json:"run_id"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`

	// Oracle 本次运行的测试预言机。核心是单写者模型，
	// HTTP 层的并发请求用下面的互斥量串行化之后再进入。
	Oracle *oracle.Oracle `json:"-"`

	mu sync.Mutex
}

// Lock/Unlock 把对本运行的访问串行化。锁在服务层，不在核心里。
func (r *Run) Lock()   { r.mu.Lock() }
func (r *Run) Unlock() { r.mu.Unlock() }

// Store 是运行注册表。
type Store interface {
	Get(ctx context.Context, id string) (*Run, error)
	Save(ctx context.Context, r *Run) error
}

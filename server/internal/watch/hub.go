package watch

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultWriteTimeout = 10 * time.Second

// Hub 按运行维护观察者长连接，在每次 transition/validation 之后
// 把最新状态报告推给所有观察者。
//
// 约定：websocket.Conn 不允许并发写，所有写都在 Hub 锁内串行完成；
// 写失败的连接当场摘除并关闭，不影响其他观察者。
type Hub struct {
	mu           sync.Mutex
	conns        map[string]map[*websocket.Conn]bool
	writeTimeout time.Duration
}

func NewHub(writeTimeout time.Duration) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Hub{
		conns:        make(map[string]map[*websocket.Conn]bool),
		writeTimeout: writeTimeout,
	}
}

// Register 登记一个运行的观察者连接。
func (h *Hub) Register(runID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[runID] == nil {
		h.conns[runID] = make(map[*websocket.Conn]bool)
	}
	h.conns[runID][conn] = true
	log.Printf("[WATCH] observer joined run=%s (total: %d)", runID, len(h.conns[runID]))
}

// Unregister 摘除并关闭一个观察者连接。
func (h *Hub) Unregister(runID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.drop(runID, conn)
}

// Broadcast 把 payload 序列化一次后推给该运行的全部观察者。
// 没有观察者时是空操作；推送失败绝不向调用方传播——
// 观察通道只是旁路，不允许影响主流程。
func (h *Hub) Broadcast(runID string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	observers := h.conns[runID]
	if len(observers) == 0 {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WATCH] marshal broadcast payload: %v", err)
		return
	}

	for conn := range observers {
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[WATCH] drop observer run=%s: %v", runID, err)
			h.drop(runID, conn)
		}
	}
}

// drop 在持锁状态下摘除连接。
func (h *Hub) drop(runID string, conn *websocket.Conn) {
	if observers, ok := h.conns[runID]; ok {
		delete(observers, conn)
		if len(observers) == 0 {
			delete(h.conns, runID)
		}
	}
	_ = conn.Close()
}

// internal/service/reconcile/interfaces/ws_hub.go
package interfaces

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stockbridge/internal/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 漂移信息面向内部运维面板，不做 Origin 校验
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DriftFeedHub 把漂移报告实时推送给所有 WebSocket 订阅者。
// 订阅者只收不发，慢客户端直接断开，不允许拖住广播。
type DriftFeedHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewDriftFeedHub() *DriftFeedHub {
	return &DriftFeedHub{clients: make(map[*websocket.Conn]bool)}
}

// HandleSubscribe 升级连接并登记订阅者。
func (h *DriftFeedHub) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L().Warn().Err(err).Msg("Failed to upgrade drift feed connection.")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()
	logger.L().Info().Int("subscribers", count).Msg("Drift feed subscriber connected.")

	// 读循环只为感知断连，订阅者发来的数据一律丢弃
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast 向所有订阅者推送一份 JSON 消息。
func (h *DriftFeedHub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.L().Warn().Err(err).Msg("Dropping slow drift feed subscriber.")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *DriftFeedHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[conn] {
		conn.Close()
		delete(h.clients, conn)
	}
}

// Close 断开所有订阅者。
func (h *DriftFeedHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

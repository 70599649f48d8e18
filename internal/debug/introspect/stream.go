package introspect

import (
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/dep2p/go-fedhost/internal/core/eventbus"
)

// streamBuffer 每个连接的待发送事件上限，写不及时的连接丢弃新事件
const streamBuffer = 64

const writeWait = time.Second

// StreamEvent websocket 推送的一条事件
type StreamEvent struct {
	Channel string    `json:"channel"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// ============================================================================
//                              streamHub - 实时事件流
// ============================================================================

// streamHub 把总线上的每次发射推送给已连接的 websocket 客户端
type streamHub struct {
	bus      *eventbus.Bus
	clock    clock.Clock
	upgrader websocket.Upgrader

	mu     sync.Mutex
	closed bool
	conns  map[*streamConn]struct{}
}

type streamConn struct {
	out  chan StreamEvent
	done chan struct{}
	once sync.Once
}

func (c *streamConn) stop() {
	c.once.Do(func() { close(c.done) })
}

func newStreamHub(bus *eventbus.Bus, clk clock.Clock) *streamHub {
	return &streamHub{
		bus:   bus,
		clock: clk,
		upgrader: websocket.Upgrader{
			// 只监听本机，不校验 Origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*streamConn]struct{}),
	}
}

func (h *streamHub) handle(w http.ResponseWriter, r *http.Request) {
	sc := &streamConn{
		out:  make(chan StreamEvent, streamBuffer),
		done: make(chan struct{}),
	}
	if !h.track(sc) {
		http.Error(w, "stream is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.untrack(sc)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("websocket 升级失败", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	unsubscribe := h.bus.OnAny(func(channel string, payload any) {
		select {
		case sc.out <- StreamEvent{Channel: channel, Payload: payload, At: h.clock.Now()}:
		default:
			log.Debug("事件流缓冲已满，丢弃事件", "channel", channel)
		}
	})
	defer unsubscribe()

	log.Debug("事件流已连接", "remote", r.RemoteAddr)

	// 客户端关闭连接时结束
	go func() {
		defer sc.stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-sc.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug("事件流写入失败", "error", err)
				return
			}
		case <-sc.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (h *streamHub) track(sc *streamConn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[sc] = struct{}{}
	return true
}

func (h *streamHub) untrack(sc *streamConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, sc)
}

// count 当前连接数
func (h *streamHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// close 断开全部连接，之后的连接请求返回 503
func (h *streamHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sc := range h.conns {
		sc.stop()
	}
}

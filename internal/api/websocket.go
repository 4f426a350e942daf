// internal/api/websocket.go
package api

import (
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/DLLArchitect/internal/services"
	"github.com/Corphon/DLLArchitect/internal/utils"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// ProgressSocket streams a draft's generation progress over websocket.
type ProgressSocket struct {
	progress *services.ProgressService
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> draft id
	total   int64
}

// NewProgressSocket accepts same-host origins plus allowedOrigins.
func NewProgressSocket(progress *services.ProgressService, allowedOrigins []string) *ProgressSocket {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	ps := &ProgressSocket{
		progress: progress,
		clients:  make(map[*websocket.Conn]string),
	}
	ps.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed[origin] || allowed["*"] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
	return ps
}

// Serve upgrades the request and sends every progress update of the draft.
// After a generation it watched start has finished the socket is closed.
func (ps *ProgressSocket) Serve(c *gin.Context) {
	draftID := c.Param("id")

	conn, err := ps.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warn("websocket upgrade failed", map[string]interface{}{
			"draft_id": draftID,
			"error":    err.Error(),
		})
		return
	}
	ps.register(conn, draftID)
	defer ps.unregister(conn)

	tracker := ps.progress.Tracker(draftID)
	updates := tracker.Subscribe()
	defer tracker.Unsubscribe(updates)

	var closed int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				atomic.StoreInt32(&closed, 1)
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	running := false

	for {
		select {
		case <-done:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(update); err != nil {
				return
			}
			// the first message is the tracker's current state, possibly left
			// over from an earlier generation
			if update.Status == services.ProgressRunning {
				running = true
			}
			if running && (update.Status == services.ProgressCompleted || update.Status == services.ProgressFailed) {
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, update.Status))
				return
			}
		case <-ping.C:
			if atomic.LoadInt32(&closed) == 1 {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ps *ProgressSocket) register(conn *websocket.Conn, draftID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.clients[conn] = draftID
	ps.total++
}

func (ps *ProgressSocket) unregister(conn *websocket.Conn) {
	ps.mu.Lock()
	delete(ps.clients, conn)
	ps.mu.Unlock()
	conn.Close()
}

// Status reports open and total connections.
func (ps *ProgressSocket) Status() map[string]interface{} {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	drafts := make(map[string]int)
	for _, id := range ps.clients {
		drafts[id]++
	}
	return map[string]interface{}{
		"open":   len(ps.clients),
		"total":  ps.total,
		"drafts": drafts,
	}
}

// CloseAll closes every open connection; used on shutdown.
func (ps *ProgressSocket) CloseAll() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for conn := range ps.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		conn.Close()
	}
}

package ws

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"editorServer/backend/internal/events"
	"editorServer/backend/internal/session"
)

// 全局的 WebSocket upgrader（允许本地开发环境的来源）
var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" { // 一些环境可能不发送 Origin，或为 "null"
		return true
	}
	allowedPrefixes := []string{
		"http://localhost",
		"http://127.0.0.1",
		"https://localhost",
		"https://127.0.0.1",
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}}

type Manager struct {
	svc *session.Service
	// 限制同时服务的连接数
	sem         *events.SemaphoreControl
	acquireWait time.Duration
}

func NewManager(svc *session.Service, sem *events.SemaphoreControl) *Manager {
	return &Manager{svc: svc, sem: sem, acquireWait: 200 * time.Millisecond}
}

func (m *Manager) WebSocketConnect(c *gin.Context) {
	userID := c.GetUint64("userId")
	username := c.GetString("username")

	if m.sem != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), m.acquireWait)
		err := m.sem.Acquire(ctx)
		cancel()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"code": "TOO_MANY_SESSIONS", "message": err.Error()})
			return
		}
		defer func() { _ = m.sem.Release() }()
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v (origin=%s)", err, c.Request.Header.Get("Origin"))
		return
	}
	defer conn.Close()

	sessionID := m.svc.Connect()
	// 连接结束时回收会话和它的文档
	defer m.svc.Disconnect(context.Background(), sessionID)
	log.Printf("session %s opened (user=%d %s)", sessionID, userID, username)

	wsConn := NewConn(conn, sessionID, userID, username, m.svc)

	// 先启动写循环，确保后续写入 send 通道的消息可以被及时发送
	done := make(chan struct{})
	go func() {
		wsConn.writeLoop()
		close(done)
	}()
	wsConn.send <- ServerMessage{Type: TypeWelcome, SessionID: sessionID, UserID: userID, Username: username}

	// 读循环阻塞至连接关闭
	wsConn.readLoop(c.Request.Context())
	<-done
	log.Printf("session %s closed", sessionID)
}

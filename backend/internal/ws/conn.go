package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"editorServer/backend/internal/session"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

type Conn struct {
	ws        *websocket.Conn
	sessionID string
	userID    uint64
	username  string
	// send 是写循环消费的队列，只有 readLoop 关闭它
	send chan OutboundMessage
	svc  *session.Service
}

func NewConn(ws *websocket.Conn, sessionID string, userID uint64, username string, svc *session.Service) *Conn {
	return &Conn{
		ws:        ws,
		sessionID: sessionID,
		userID:    userID,
		username:  username,
		send:      make(chan OutboundMessage, sendBuffer),
		svc:       svc,
	}
}

func (c *Conn) SendMessage_Enqueue(msg OutboundMessage) {
	select {
	case c.send <- msg:
	default:
		// 队列满了，丢弃
		log.Printf("send queue full, drop %s (session=%s)", msg.MessageType(), c.sessionID)
	}
}

// readLoop 一次处理一条请求，直到客户端断开或发来 close_connection
func (c *Conn) readLoop(ctx context.Context) {
	defer close(c.send)
	c.ws.SetReadLimit(maxMessageSize)
	for {
		var req session.Request
		if err := c.ws.ReadJSON(&req); err != nil {
			if isDecodeError(err) {
				c.SendMessage_Enqueue(session.Failed{Type: session.TypeFailed, Reason: "INVALID_REQUEST: " + err.Error()})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("read json error (user=%d, session=%s): %v", c.userID, c.sessionID, err)
			}
			return
		}

		resp, closed := c.svc.Handle(ctx, c.sessionID, req)
		if closed {
			return
		}
		c.SendMessage_Enqueue(resp)
	}
}

func (c *Conn) writeLoop() {
	// 持续消费通道中的消息
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteJSON(msg); err != nil {
			log.Printf("write json error (session=%s): %v", c.sessionID, err)
		}
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// isDecodeError 判断是不是帧内容坏了；连接层错误是 *websocket.CloseError 或网络错误
// 截断的 JSON（包括空帧）在 ReadJSON 里表现为 io.ErrUnexpectedEOF
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

package ws

import "editorServer/backend/internal/session"

// 出站消息接口，session.Response 也满足
type OutboundMessage interface {
	MessageType() string
}

var _ OutboundMessage = session.Response(nil)

const (
	TypeWelcome = "welcome"
	TypeError   = "error"
)

// ServerMessage 是连接层自己的消息（欢迎、限流、协议错误），编辑结果走 session.Response
type ServerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    uint64 `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	Content   string `json:"content,omitempty"`
}

func (m ServerMessage) MessageType() string { return m.Type }

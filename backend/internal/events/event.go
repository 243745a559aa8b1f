package events

import (
	"time"

	"editorServer/backend/internal/ot/delta"
)

const (
	EventDocumentEdited = "DOCUMENT_EDITED"
	EventDocumentSaved  = "DOCUMENT_SAVED"
)

type EditEvent struct {
	EventType string        `json:"eventType"` // DOCUMENT_EDITED / DOCUMENT_SAVED
	EventID   string        `json:"eventId"`
	SessionID string        `json:"sessionId"`
	FileName  string        `json:"fileName,omitempty"`
	Action    string        `json:"action"`
	Revision  uint64        `json:"revision"`
	Ops       []delta.Delta `json:"ops,omitempty"` // 本次请求产生的全部变更，按顺序
	Modified  bool          `json:"modified"`
	AppliedAt time.Time     `json:"appliedAt"`
}

// Key 决定分区：同一文件的事件落在同一分区，保证顺序；未命名文档按会话分区
func (e EditEvent) Key() string {
	if e.FileName != "" {
		return e.FileName
	}
	return e.SessionID
}

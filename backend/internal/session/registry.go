package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"editorServer/backend/internal/document"
	"editorServer/backend/internal/selection"
)

var (
	ErrUnknownSession = errors.New("UNKNOWN_SESSION")
	ErrNoDocument     = errors.New("NO_DOCUMENT_OPEN")
)

// Slot is the per-connection state a handler may read and replace.
type Slot struct {
	Doc *document.Document
}

type entry struct {
	// held for the whole of one operation
	mu        sync.Mutex
	slot      Slot
	createdAt time.Time
	updatedAt time.Time
}

// Registry maps connection ids to the document each connection owns.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*entry)}
}

// Register creates an empty slot for id. An existing slot is kept.
func (r *Registry) Register(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		return
	}
	now := time.Now()
	r.sessions[id] = &entry{createdAt: now, updatedAt: now}
}

// Remove drops id and the document it owned.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// With runs fn with exclusive access to the slot of id.
func (r *Registry) With(id string, fn func(*Slot) error) error {
	r.mu.RLock()
	e := r.sessions[id]
	r.mu.RUnlock()
	if e == nil {
		return ErrUnknownSession
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.updatedAt = time.Now()
	return fn(&e.slot)
}

// Info is a read-only summary of one session.
type Info struct {
	SessionID string             `json:"sessionId"`
	FileName  string             `json:"fileName,omitempty"`
	HasDoc    bool               `json:"hasDocument"`
	Lines     int                `json:"lines,omitempty"`
	Revision  uint64             `json:"revision,omitempty"`
	Modified  bool               `json:"modified"`
	Cursor    selection.Position `json:"cursor"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Snapshot lists every session, oldest first.
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	entries := make([]*entry, 0, len(r.sessions))
	for id, e := range r.sessions {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]Info, 0, len(entries))
	for i, e := range entries {
		e.mu.Lock()
		info := Info{SessionID: ids[i], CreatedAt: e.createdAt, UpdatedAt: e.updatedAt}
		if doc := e.slot.Doc; doc != nil {
			info.HasDoc = true
			info.FileName = doc.FileName()
			info.Lines = doc.Len()
			info.Revision = doc.Revision()
			info.Modified = doc.IsModified()
			info.Cursor = doc.CursorPosition()
		}
		e.mu.Unlock()
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

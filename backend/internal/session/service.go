package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"editorServer/backend/internal/document"
	"editorServer/backend/internal/events"
	"editorServer/backend/internal/selection"
	"editorServer/backend/internal/store"
)

var (
	ErrUnknownAction = errors.New("UNKNOWN_ACTION")
	ErrInvalidChar   = errors.New("INVALID_CHAR")
	ErrInvalidAmount = errors.New("INVALID_AMOUNT")
)

// 依赖注入：接口在这里声明，实现在 cache / events / store 中；都可以为 nil

type PresenceCache interface {
	AddSession(ctx context.Context, sessionID, fileName string, ttl time.Duration) error
	SetCursor(ctx context.Context, sessionID string, jsonData []byte, ttl time.Duration) error
	RemoveSession(ctx context.Context, sessionID string) error
}

type EventPublisher interface {
	Enqueue(ctx context.Context, evt events.EditEvent) error
}

type SnapshotStore interface {
	SaveDocumentSnapshot(ctx context.Context, snap store.Snapshot) error
}

type DocumentStore interface {
	TouchFile(ctx context.Context, path string, lines int, saved bool) error
}

type Options struct {
	Presence    PresenceCache
	Events      EventPublisher
	Snapshots   SnapshotStore
	Files       DocumentStore
	PresenceTTL time.Duration
	// SideChannelTimeout bounds each best-effort call to redis/kafka/mysql.
	SideChannelTimeout time.Duration
}

// Service turns one request into one document operation and one response.
type Service struct {
	registry *Registry

	presence  PresenceCache
	events    EventPublisher
	snapshots SnapshotStore
	files     DocumentStore

	presenceTTL time.Duration
	sideTimeout time.Duration
}

func NewService(registry *Registry, opt Options) *Service {
	if opt.PresenceTTL <= 0 {
		opt.PresenceTTL = 600 * time.Second
	}
	if opt.SideChannelTimeout <= 0 {
		opt.SideChannelTimeout = 200 * time.Millisecond
	}
	return &Service{
		registry:    registry,
		presence:    opt.Presence,
		events:      opt.Events,
		snapshots:   opt.Snapshots,
		files:       opt.Files,
		presenceTTL: opt.PresenceTTL,
		sideTimeout: opt.SideChannelTimeout,
	}
}

func (s *Service) Registry() *Registry { return s.registry }

// Connect creates the session's empty slot and returns its id.
func (s *Service) Connect() string {
	id := uuid.NewString()
	s.registry.Register(id)
	return id
}

// Disconnect drops the session and its document.
func (s *Service) Disconnect(ctx context.Context, sessionID string) {
	s.registry.Remove(sessionID)
	if s.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.sideTimeout)
	defer cancel()
	if err := s.presence.RemoveSession(ctx, sessionID); err != nil {
		log.Printf("presence remove error (session=%s): %v", sessionID, err)
	}
}

// effects 记录一次操作需要通知的旁路：在持有文档锁时收集，释放锁后再发送
type effects struct {
	opened   bool
	mutated  bool
	saved    bool
	fileName string
	lines    int
	revision uint64
	content  string
	cursor   []byte
	event    *events.EditEvent
}

type cursorState struct {
	FileName string             `json:"fileName,omitempty"`
	Position selection.Position `json:"position"`
	Modified bool               `json:"modified"`
}

// Handle applies req to the session. It returns a nil response and
// closed=true when the client asked to close the connection.
func (s *Service) Handle(ctx context.Context, sessionID string, req Request) (resp Response, closed bool) {
	if req.Action == ActionCloseConnection {
		s.Disconnect(ctx, sessionID)
		return nil, true
	}

	var fx effects
	err := s.registry.With(sessionID, func(slot *Slot) error {
		r, err := s.apply(slot, req, &fx)
		if err != nil {
			return err
		}
		resp = r
		if doc := slot.Doc; doc != nil {
			fx.collect(sessionID, req.Action, doc)
		}
		return nil
	})
	if err != nil {
		return Failed{Type: TypeFailed, Reason: err.Error()}, false
	}

	s.notify(ctx, sessionID, &fx)
	return resp, false
}

func (s *Service) apply(slot *Slot, req Request, fx *effects) (Response, error) {
	switch req.Action {
	case ActionOpenFile:
		doc, err := document.Open(req.Path)
		if err != nil {
			return nil, err
		}
		if slot.Doc != nil {
			v := slot.Doc.View()
			doc.SetClientViewSize(v.Width, v.Height)
		}
		slot.Doc = doc
		fx.opened = true
		return fileOpened(doc), nil

	case ActionNewDocument:
		doc := document.New()
		if slot.Doc != nil {
			v := slot.Doc.View()
			doc.SetClientViewSize(v.Width, v.Height)
		}
		slot.Doc = doc
		fx.opened = true
		return fileOpened(doc), nil

	case ActionCloseDocument:
		slot.Doc = nil
		// 清掉 presence 里的文件名
		fx.opened = true
		return Acknowledge{Type: TypeAcknowledge}, nil
	}

	doc := slot.Doc
	if doc == nil {
		return nil, ErrNoDocument
	}

	if move, ok := navigations[req.Action]; ok {
		move(doc)
		return followAndReport(doc), nil
	}
	if edit, ok := edits[req.Action]; ok {
		edit(doc)
		fx.mutated = true
		doc.ScrollViewFollowingCursor()
		return displayView(doc), nil
	}

	switch req.Action {
	case ActionInsertChar:
		c, size := utf8.DecodeRuneInString(req.Char)
		if size == 0 || c == utf8.RuneError || size != len(req.Char) {
			return nil, fmt.Errorf("%q: %w", req.Char, ErrInvalidChar)
		}
		doc.InsertChar(c)
		fx.mutated = true
		doc.ScrollViewFollowingCursor()
		return displayView(doc), nil

	case ActionGoTo:
		if err := doc.GoTo(req.Line); err != nil {
			return nil, err
		}
		return followAndReport(doc), nil

	case ActionSave:
		if err := doc.Save(); err != nil {
			return nil, err
		}
		fx.saved = doc.FileName() != ""
		return displayView(doc), nil

	case ActionScrollClientViewUp, ActionScrollClientViewDown, ActionScrollClientViewLeft, ActionScrollClientViewRight:
		if req.Amount < 0 {
			return nil, fmt.Errorf("%d: %w", req.Amount, ErrInvalidAmount)
		}
		scrolls[req.Action](doc, req.Amount)
		return displayView(doc), nil

	case ActionUpdateClientViewSize:
		doc.SetClientViewSize(req.Width, req.Height)
		doc.ScrollViewFollowingCursor()
		return displayView(doc), nil
	}

	return nil, fmt.Errorf("%q: %w", req.Action, ErrUnknownAction)
}

var navigations = map[Action]func(*document.Document){
	ActionMoveCursorUp:            (*document.Document).MoveCursorUp,
	ActionMoveCursorDown:          (*document.Document).MoveCursorDown,
	ActionMoveCursorLeft:          (*document.Document).MoveCursorLeft,
	ActionMoveCursorRight:         (*document.Document).MoveCursorRight,
	ActionMoveCursorLineStart:     (*document.Document).MoveCursorLineStart,
	ActionMoveCursorLineEnd:       (*document.Document).MoveCursorLineEnd,
	ActionMoveCursorDocumentStart: (*document.Document).MoveCursorDocumentStart,
	ActionMoveCursorDocumentEnd:   (*document.Document).MoveCursorDocumentEnd,
	ActionMoveCursorPageUp:        (*document.Document).MoveCursorPageUp,
	ActionMoveCursorPageDown:      (*document.Document).MoveCursorPageDown,

	ActionExtendSelectionUp:            (*document.Document).ExtendSelectionUp,
	ActionExtendSelectionDown:          (*document.Document).ExtendSelectionDown,
	ActionExtendSelectionLeft:          (*document.Document).ExtendSelectionLeft,
	ActionExtendSelectionRight:         (*document.Document).ExtendSelectionRight,
	ActionExtendSelectionLineStart:     (*document.Document).ExtendSelectionLineStart,
	ActionExtendSelectionLineEnd:       (*document.Document).ExtendSelectionLineEnd,
	ActionExtendSelectionPageUp:        (*document.Document).ExtendSelectionPageUp,
	ActionExtendSelectionPageDown:      (*document.Document).ExtendSelectionPageDown,
	ActionExtendSelectionDocumentStart: (*document.Document).ExtendSelectionDocumentStart,
	ActionExtendSelectionDocumentEnd:   (*document.Document).ExtendSelectionDocumentEnd,
	ActionCollapseSelectionCursor:      (*document.Document).CollapseSelectionCursors,
	ActionAddSelectionBelow:            (*document.Document).AddSelectionBelow,
}

var edits = map[Action]func(*document.Document){
	ActionBackspace:     (*document.Document).Backspace,
	ActionDelete:        (*document.Document).Delete,
	ActionInsertNewline: (*document.Document).InsertNewline,
	ActionInsertTab:     (*document.Document).InsertTab,
}

var scrolls = map[Action]func(*document.Document, int){
	ActionScrollClientViewUp:    (*document.Document).ScrollClientViewUp,
	ActionScrollClientViewDown:  (*document.Document).ScrollClientViewDown,
	ActionScrollClientViewLeft:  (*document.Document).ScrollClientViewLeft,
	ActionScrollClientViewRight: (*document.Document).ScrollClientViewRight,
}

// followAndReport redraws the view only when following the cursor scrolled it.
func followAndReport(doc *document.Document) Response {
	if doc.ScrollViewFollowingCursor() {
		return displayView(doc)
	}
	return CursorPosition{
		Type:                   TypeCursorPosition,
		ClientCursorPositions:  doc.ClientCursorPositions(),
		DocumentCursorPosition: doc.CursorPosition(),
	}
}

func displayView(doc *document.Document) DisplayView {
	return DisplayView{
		Type:                   TypeDisplayView,
		Content:                doc.ClientViewText(),
		LineNumbers:            doc.ClientViewLineNumbers(),
		ClientCursorPositions:  doc.ClientCursorPositions(),
		DocumentCursorPosition: doc.CursorPosition(),
		Modified:               doc.IsModified(),
	}
}

func fileOpened(doc *document.Document) FileOpened {
	return FileOpened{Type: TypeFileOpened, FileName: doc.FileName(), DocumentLength: doc.Len()}
}

func (fx *effects) collect(sessionID string, action Action, doc *document.Document) {
	fx.fileName = doc.FileName()
	fx.lines = doc.Len()
	fx.revision = doc.Revision()
	if fx.saved {
		fx.content = doc.Text()
	}
	fx.cursor, _ = json.Marshal(cursorState{
		FileName: fx.fileName,
		Position: doc.CursorPosition(),
		Modified: doc.IsModified(),
	})

	// 每个请求都清空变更记录，只有编辑和保存才产生事件
	changes := doc.TakeChanges()
	if !fx.mutated && !fx.saved {
		return
	}
	evt := events.EditEvent{
		EventType: events.EventDocumentEdited,
		EventID:   uuid.NewString(),
		SessionID: sessionID,
		FileName:  fx.fileName,
		Action:    string(action),
		Revision:  fx.revision,
		Ops:       changes,
		Modified:  doc.IsModified(),
		AppliedAt: time.Now(),
	}
	if fx.saved {
		evt.EventType = events.EventDocumentSaved
	}
	fx.event = &evt
}

// notify 旁路通知：失败只打日志，不影响请求结果
func (s *Service) notify(ctx context.Context, sessionID string, fx *effects) {
	ctx, cancel := context.WithTimeout(ctx, s.sideTimeout)
	defer cancel()

	if s.presence != nil {
		if fx.opened {
			if err := s.presence.AddSession(ctx, sessionID, fx.fileName, s.presenceTTL); err != nil {
				log.Printf("presence add error (session=%s): %v", sessionID, err)
			}
		}
		if fx.cursor != nil {
			if err := s.presence.SetCursor(ctx, sessionID, fx.cursor, s.presenceTTL); err != nil {
				log.Printf("presence cursor error (session=%s): %v", sessionID, err)
			}
		}
	}

	if s.files != nil && fx.fileName != "" && (fx.opened || fx.saved) {
		if err := s.files.TouchFile(ctx, fx.fileName, fx.lines, fx.saved); err != nil {
			log.Printf("file record error (file=%s): %v", fx.fileName, err)
		}
	}

	if s.snapshots != nil && fx.saved {
		// 快照和 DOCUMENT_SAVED 事件共用一个 id，方便下游对账
		snap := store.Snapshot{
			SnapshotID: fx.event.EventID,
			SessionID:  sessionID,
			Path:       fx.fileName,
			Revision:   fx.revision,
			Content:    fx.content,
		}
		if err := s.snapshots.SaveDocumentSnapshot(ctx, snap); err != nil {
			log.Printf("snapshot error (file=%s rev=%d): %v", fx.fileName, fx.revision, err)
		}
	}

	if s.events != nil && fx.event != nil {
		if err := s.events.Enqueue(ctx, *fx.event); err != nil {
			log.Printf("enqueue edit event error (session=%s rev=%d): %v", sessionID, fx.revision, err)
		}
	}
}

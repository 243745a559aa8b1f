package session

import "editorServer/backend/internal/selection"

type Action string

const (
	ActionOpenFile      Action = "open_file"
	ActionNewDocument   Action = "new_document"
	ActionCloseDocument Action = "close_document"
	ActionSave          Action = "save"

	ActionBackspace     Action = "backspace"
	ActionDelete        Action = "delete"
	ActionInsertChar    Action = "insert_char"
	ActionInsertNewline Action = "insert_newline"
	ActionInsertTab     Action = "insert_tab"

	ActionGoTo                    Action = "go_to"
	ActionMoveCursorUp            Action = "move_cursor_up"
	ActionMoveCursorDown          Action = "move_cursor_down"
	ActionMoveCursorLeft          Action = "move_cursor_left"
	ActionMoveCursorRight         Action = "move_cursor_right"
	ActionMoveCursorLineStart     Action = "move_cursor_line_start"
	ActionMoveCursorLineEnd       Action = "move_cursor_line_end"
	ActionMoveCursorDocumentStart Action = "move_cursor_document_start"
	ActionMoveCursorDocumentEnd   Action = "move_cursor_document_end"
	ActionMoveCursorPageUp        Action = "move_cursor_page_up"
	ActionMoveCursorPageDown      Action = "move_cursor_page_down"

	ActionExtendSelectionUp            Action = "extend_selection_up"
	ActionExtendSelectionDown          Action = "extend_selection_down"
	ActionExtendSelectionLeft          Action = "extend_selection_left"
	ActionExtendSelectionRight         Action = "extend_selection_right"
	ActionExtendSelectionLineStart     Action = "extend_selection_line_start"
	ActionExtendSelectionLineEnd       Action = "extend_selection_line_end"
	ActionExtendSelectionPageUp        Action = "extend_selection_page_up"
	ActionExtendSelectionPageDown      Action = "extend_selection_page_down"
	ActionExtendSelectionDocumentStart Action = "extend_selection_document_start"
	ActionExtendSelectionDocumentEnd   Action = "extend_selection_document_end"
	ActionCollapseSelectionCursor      Action = "collapse_selection_cursor"
	ActionAddSelectionBelow            Action = "add_selection_below"

	ActionScrollClientViewUp    Action = "scroll_client_view_up"
	ActionScrollClientViewDown  Action = "scroll_client_view_down"
	ActionScrollClientViewLeft  Action = "scroll_client_view_left"
	ActionScrollClientViewRight Action = "scroll_client_view_right"
	ActionUpdateClientViewSize  Action = "update_client_view_size"

	ActionCloseConnection Action = "close_connection"
)

// Request is one client message. Only the fields its action needs are read.
type Request struct {
	Action Action `json:"action"`
	Path   string `json:"path,omitempty"`
	Char   string `json:"char,omitempty"`
	Line   int    `json:"line,omitempty"`
	Amount int    `json:"amount,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Response is anything the server sends back for a request.
type Response interface {
	MessageType() string
}

const (
	TypeFileOpened     = "file_opened"
	TypeDisplayView    = "display_view"
	TypeCursorPosition = "cursor_position"
	TypeAcknowledge    = "acknowledge"
	TypeFailed         = "failed"
)

type FileOpened struct {
	Type           string `json:"type"`
	FileName       string `json:"file_name"`
	DocumentLength int    `json:"document_length"`
}

type DisplayView struct {
	Type                   string               `json:"type"`
	Content                string               `json:"content"`
	LineNumbers            string               `json:"line_numbers"`
	ClientCursorPositions  []selection.Position `json:"client_cursor_positions"`
	DocumentCursorPosition selection.Position   `json:"document_cursor_position"`
	Modified               bool                 `json:"modified"`
}

type CursorPosition struct {
	Type                   string               `json:"type"`
	ClientCursorPositions  []selection.Position `json:"client_cursor_positions"`
	DocumentCursorPosition selection.Position   `json:"document_cursor_position"`
}

type Acknowledge struct {
	Type string `json:"type"`
}

type Failed struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (m FileOpened) MessageType() string     { return m.Type }
func (m DisplayView) MessageType() string    { return m.Type }
func (m CursorPosition) MessageType() string { return m.Type }
func (m Acknowledge) MessageType() string    { return m.Type }
func (m Failed) MessageType() string         { return m.Type }

package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"editorServer/backend/internal/events"
	"editorServer/backend/internal/selection"
	"editorServer/backend/internal/store"
)

type fakePresence struct {
	added   map[string]string
	cursors map[string][]byte
	removed []string
}

func (f *fakePresence) AddSession(_ context.Context, id, fileName string, _ time.Duration) error {
	f.added[id] = fileName
	return nil
}

func (f *fakePresence) SetCursor(_ context.Context, id string, data []byte, _ time.Duration) error {
	f.cursors[id] = data
	return nil
}

func (f *fakePresence) RemoveSession(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return nil
}

type fakeEvents struct{ got []events.EditEvent }

func (f *fakeEvents) Enqueue(_ context.Context, evt events.EditEvent) error {
	f.got = append(f.got, evt)
	return nil
}

type fakeSnapshots struct{ got []store.Snapshot }

func (f *fakeSnapshots) SaveDocumentSnapshot(_ context.Context, snap store.Snapshot) error {
	f.got = append(f.got, snap)
	return nil
}

type touch struct {
	path  string
	lines int
	saved bool
}

type fakeFiles struct{ got []touch }

func (f *fakeFiles) TouchFile(_ context.Context, path string, lines int, saved bool) error {
	f.got = append(f.got, touch{path, lines, saved})
	return nil
}

type fixture struct {
	svc       *Service
	id        string
	presence  *fakePresence
	events    *fakeEvents
	snapshots *fakeSnapshots
	files     *fakeFiles
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		presence:  &fakePresence{added: map[string]string{}, cursors: map[string][]byte{}},
		events:    &fakeEvents{},
		snapshots: &fakeSnapshots{},
		files:     &fakeFiles{},
	}
	f.svc = NewService(NewRegistry(), Options{
		Presence:  f.presence,
		Events:    f.events,
		Snapshots: f.snapshots,
		Files:     f.files,
	})
	f.id = f.svc.Connect()
	return f
}

func (f *fixture) do(t *testing.T, req Request) Response {
	t.Helper()
	resp, closed := f.svc.Handle(context.Background(), f.id, req)
	require.False(t, closed)
	require.NotNil(t, resp)
	return resp
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHandle_NoDocument(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, Request{Action: ActionMoveCursorDown})
	require.Equal(t, Failed{Type: TypeFailed, Reason: ErrNoDocument.Error()}, resp)
}

func TestHandle_UnknownSession(t *testing.T) {
	f := newFixture(t)
	resp, closed := f.svc.Handle(context.Background(), "nope", Request{Action: ActionNewDocument})
	require.False(t, closed)
	require.Equal(t, Failed{Type: TypeFailed, Reason: ErrUnknownSession.Error()}, resp)
}

func TestHandle_NewDocument(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, FileOpened{Type: TypeFileOpened, FileName: "", DocumentLength: 1}, f.do(t, Request{Action: ActionNewDocument}))

	resp := f.do(t, Request{Action: ActionUpdateClientViewSize, Width: 2, Height: 2})
	view, ok := resp.(DisplayView)
	require.True(t, ok)
	require.Equal(t, "\n", view.Content)
	require.Equal(t, "1\n", view.LineNumbers)
	require.Equal(t, []selection.Position{{X: 0, Y: 0}}, view.ClientCursorPositions)
}

func TestHandle_OpenMoveEditSave(t *testing.T) {
	f := newFixture(t)
	path := writeFile(t, "idk\nsomething\nelse\n")

	require.Equal(t, FileOpened{Type: TypeFileOpened, FileName: path, DocumentLength: 4}, f.do(t, Request{Action: ActionOpenFile, Path: path}))
	require.Equal(t, path, f.presence.added[f.id])
	require.Equal(t, []touch{{path, 4, false}}, f.files.got)

	f.do(t, Request{Action: ActionUpdateClientViewSize, Width: 2, Height: 2})

	resp := f.do(t, Request{Action: ActionMoveCursorDown})
	require.Equal(t, CursorPosition{
		Type:                   TypeCursorPosition,
		ClientCursorPositions:  []selection.Position{{X: 0, Y: 1}},
		DocumentCursorPosition: selection.Position{X: 0, Y: 1},
	}, resp)

	resp = f.do(t, Request{Action: ActionMoveCursorDown})
	view, ok := resp.(DisplayView)
	require.True(t, ok, "scrolling move answers with display_view, got %T", resp)
	require.Equal(t, "so\nel\n", view.Content)
	require.Equal(t, "2\n3\n", view.LineNumbers)
	require.Contains(t, string(f.presence.cursors[f.id]), `"y":2`)
	require.Empty(t, f.events.got)

	resp = f.do(t, Request{Action: ActionInsertChar, Char: "x"})
	view = resp.(DisplayView)
	require.True(t, view.Modified)
	require.Equal(t, "so\nxe\n", view.Content)
	require.Len(t, f.events.got, 1)
	require.Equal(t, events.EventDocumentEdited, f.events.got[0].EventType)
	require.Equal(t, "insert_char", f.events.got[0].Action)
	require.Len(t, f.events.got[0].Ops, 1)

	resp = f.do(t, Request{Action: ActionSave})
	require.False(t, resp.(DisplayView).Modified)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "idk\nsomething\nxelse\n", string(b))
	require.Len(t, f.snapshots.got, 1)
	snap := f.snapshots.got[0]
	require.Equal(t, path, snap.Path)
	require.Equal(t, f.id, snap.SessionID)
	require.Equal(t, uint64(1), snap.Revision)
	require.Equal(t, "idk\nsomething\nxelse\n", snap.Content)
	require.Equal(t, touch{path, 4, true}, f.files.got[len(f.files.got)-1])
	saved := f.events.got[len(f.events.got)-1]
	require.Equal(t, events.EventDocumentSaved, saved.EventType)
	require.Equal(t, saved.EventID, snap.SnapshotID)
}

func TestHandle_EditsAnswerWithDisplayView(t *testing.T) {
	f := newFixture(t)
	f.do(t, Request{Action: ActionNewDocument})
	f.do(t, Request{Action: ActionUpdateClientViewSize, Width: 10, Height: 3})

	for _, a := range []Action{ActionInsertTab, ActionInsertNewline, ActionBackspace, ActionDelete} {
		_, ok := f.do(t, Request{Action: a}).(DisplayView)
		require.True(t, ok, "%s should answer with display_view", a)
	}
	require.Len(t, f.events.got, 4)
}

func TestHandle_Failures(t *testing.T) {
	f := newFixture(t)
	f.do(t, Request{Action: ActionNewDocument})

	cases := []struct {
		req  Request
		want string
	}{
		{Request{Action: ActionInsertChar, Char: ""}, ErrInvalidChar.Error()},
		{Request{Action: ActionInsertChar, Char: "ab"}, ErrInvalidChar.Error()},
		{Request{Action: ActionGoTo, Line: 5}, "LINE_OUT_OF_RANGE"},
		{Request{Action: ActionScrollClientViewDown, Amount: -1}, ErrInvalidAmount.Error()},
		{Request{Action: "fly"}, ErrUnknownAction.Error()},
		{Request{Action: ActionOpenFile, Path: filepath.Join(t.TempDir(), "missing.txt")}, "missing.txt"},
	}
	for _, c := range cases {
		resp := f.do(t, c.req)
		failed, ok := resp.(Failed)
		require.True(t, ok, "%s: got %T", c.req.Action, resp)
		require.True(t, strings.Contains(failed.Reason, c.want), "%s: reason %q lacks %q", c.req.Action, failed.Reason, c.want)
	}

	// 打开失败不影响当前文档
	_, ok := f.do(t, Request{Action: ActionInsertChar, Char: "é"}).(DisplayView)
	require.True(t, ok)
}

func TestHandle_OpenKeepsViewSize(t *testing.T) {
	f := newFixture(t)
	f.do(t, Request{Action: ActionNewDocument})
	f.do(t, Request{Action: ActionUpdateClientViewSize, Width: 3, Height: 1})
	f.do(t, Request{Action: ActionOpenFile, Path: writeFile(t, "abcdef\nghi")})

	resp := f.do(t, Request{Action: ActionScrollClientViewRight, Amount: 1})
	require.Equal(t, "bcd\n", resp.(DisplayView).Content)
}

func TestHandle_ReopenedFileGetsDistinctSnapshots(t *testing.T) {
	f := newFixture(t)
	path := writeFile(t, "idk")
	other := f.svc.Connect()

	for i, id := range []string{f.id, other, f.id} {
		for _, req := range []Request{
			{Action: ActionOpenFile, Path: path},
			{Action: ActionInsertChar, Char: "x"},
			{Action: ActionSave},
		} {
			resp, _ := f.svc.Handle(context.Background(), id, req)
			_, failed := resp.(Failed)
			require.False(t, failed, "save round %d: %+v", i, resp)
		}
	}

	// 每次重新打开 revision 都从头数，snapshot id 仍然各不相同
	require.Len(t, f.snapshots.got, 3)
	ids := map[string]bool{}
	for _, snap := range f.snapshots.got {
		require.Equal(t, uint64(1), snap.Revision)
		require.NotEmpty(t, snap.SnapshotID)
		ids[snap.SnapshotID] = true
	}
	require.Len(t, ids, 3)
	require.Equal(t, f.id, f.snapshots.got[0].SessionID)
	require.Equal(t, other, f.snapshots.got[1].SessionID)
	require.Equal(t, []string{"xidk", "xxidk", "xxxidk"}, []string{
		f.snapshots.got[0].Content, f.snapshots.got[1].Content, f.snapshots.got[2].Content,
	})
}

func TestHandle_ResizeFollowsCursor(t *testing.T) {
	f := newFixture(t)
	f.do(t, Request{Action: ActionOpenFile, Path: writeFile(t, strings.Repeat("line\n", 39)+"line")})

	_, ok := f.do(t, Request{Action: ActionGoTo, Line: 30}).(CursorPosition)
	require.True(t, ok)

	view := f.do(t, Request{Action: ActionUpdateClientViewSize, Width: 80, Height: 10}).(DisplayView)
	require.Equal(t, selection.Position{X: 0, Y: 30}, view.DocumentCursorPosition)
	require.Equal(t, []selection.Position{{X: 0, Y: 9}}, view.ClientCursorPositions)
	require.True(t, strings.HasPrefix(view.LineNumbers, "22\n"), "line numbers %q", view.LineNumbers)
	require.True(t, strings.HasSuffix(view.LineNumbers, "31\n"), "line numbers %q", view.LineNumbers)
}

func TestHandle_MultiCursorThroughProtocol(t *testing.T) {
	f := newFixture(t)
	f.do(t, Request{Action: ActionOpenFile, Path: writeFile(t, "ab\ncd")})
	f.do(t, Request{Action: ActionUpdateClientViewSize, Width: 10, Height: 5})
	f.do(t, Request{Action: ActionAddSelectionBelow})

	view := f.do(t, Request{Action: ActionInsertChar, Char: "x"}).(DisplayView)
	require.Equal(t, "xab\nxcd\n", view.Content)
	require.Equal(t, []selection.Position{{X: 1, Y: 0}, {X: 1, Y: 1}}, view.ClientCursorPositions)
	require.Equal(t, selection.Position{X: 1, Y: 1}, view.DocumentCursorPosition)

	resp := f.do(t, Request{Action: ActionMoveCursorDocumentStart})
	require.Equal(t, []selection.Position{{X: 0, Y: 0}}, resp.(CursorPosition).ClientCursorPositions)
}

func TestHandle_CloseDocumentAndConnection(t *testing.T) {
	f := newFixture(t)
	f.do(t, Request{Action: ActionNewDocument})
	require.Equal(t, Acknowledge{Type: TypeAcknowledge}, f.do(t, Request{Action: ActionCloseDocument}))
	require.Equal(t, Failed{Type: TypeFailed, Reason: ErrNoDocument.Error()}, f.do(t, Request{Action: ActionSave}))

	resp, closed := f.svc.Handle(context.Background(), f.id, Request{Action: ActionCloseConnection})
	require.Nil(t, resp)
	require.True(t, closed)
	require.Equal(t, 0, f.svc.Registry().Len())
	require.Equal(t, []string{f.id}, f.presence.removed)
}

func TestHandle_NilSideChannels(t *testing.T) {
	svc := NewService(NewRegistry(), Options{})
	id := svc.Connect()
	path := writeFile(t, "idk")

	resp, _ := svc.Handle(context.Background(), id, Request{Action: ActionOpenFile, Path: path})
	require.IsType(t, FileOpened{}, resp)
	resp, _ = svc.Handle(context.Background(), id, Request{Action: ActionInsertChar, Char: "x"})
	require.IsType(t, DisplayView{}, resp)
	resp, _ = svc.Handle(context.Background(), id, Request{Action: ActionSave})
	require.IsType(t, DisplayView{}, resp)
	svc.Disconnect(context.Background(), id)
}

func TestRegistry_Snapshot(t *testing.T) {
	f := newFixture(t)
	second := f.svc.Connect()
	path := writeFile(t, "idk\nelse")
	f.do(t, Request{Action: ActionOpenFile, Path: path})
	f.do(t, Request{Action: ActionMoveCursorDown})

	infos := f.svc.Registry().Snapshot()
	require.Len(t, infos, 2)

	byID := map[string]Info{}
	for _, info := range infos {
		byID[info.SessionID] = info
	}
	require.True(t, byID[f.id].HasDoc)
	require.Equal(t, path, byID[f.id].FileName)
	require.Equal(t, 2, byID[f.id].Lines)
	require.Equal(t, selection.Position{X: 0, Y: 1}, byID[f.id].Cursor)
	require.False(t, byID[second].HasDoc)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
)

const mysqlErrDuplicateEntry = 1062

var ErrNotFound = errors.New("NOT_FOUND")

// 每次保存一行：revision 是会话内文档的版本号，重新打开文件会从 0 开始，
// 所以唯一键用每次保存生成的 snapshot_id，顺序看自增 id
const createSnapshotsTable = `CREATE TABLE IF NOT EXISTS document_snapshots (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	snapshot_id CHAR(36) NOT NULL,
	session_id VARCHAR(64) NOT NULL,
	path VARCHAR(512) NOT NULL,
	revision BIGINT UNSIGNED NOT NULL,
	content LONGTEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uk_snapshot_id (snapshot_id),
	KEY idx_path_id (path, id)
)`

// Snapshot is the content of a file as one session saved it.
type Snapshot struct {
	SnapshotID string    `json:"snapshotId"`
	SessionID  string    `json:"sessionId"`
	Path       string    `json:"path"`
	Revision   uint64    `json:"revision"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

type SnapshotStore struct{ db *sql.DB }

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createSnapshotsTable)
	return err
}

// SaveDocumentSnapshot 记录一次保存；同一个 snapshot_id 重试写入视为成功
func (s *SnapshotStore) SaveDocumentSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_snapshots (snapshot_id, session_id, path, revision, content)
		VALUES (?, ?, ?, ?, ?)`,
		snap.SnapshotID,
		snap.SessionID,
		snap.Path,
		snap.Revision,
		snap.Content,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil
		}
		return err
	}
	return nil
}

// LatestSnapshot returns the last snapshot written for path, or ErrNotFound.
func (s *SnapshotStore) LatestSnapshot(ctx context.Context, path string) (Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot_id, session_id, path, revision, content, created_at
		FROM document_snapshots
		WHERE path = ? ORDER BY id DESC LIMIT 1`,
		path,
	).Scan(&snap.SnapshotID, &snap.SessionID, &snap.Path, &snap.Revision, &snap.Content, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	return snap, err
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}

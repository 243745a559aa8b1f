package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FileRecord 每个被打开/保存过的文件一行
type FileRecord struct {
	ID           uint64     `gorm:"primaryKey" json:"id"`
	Path         string     `gorm:"size:512;uniqueIndex;not null" json:"path"`
	Lines        int        `json:"lines"`
	OpenCount    uint64     `gorm:"not null;default:0" json:"openCount"`
	SaveCount    uint64     `gorm:"not null;default:0" json:"saveCount"`
	LastAccessAt time.Time  `gorm:"index" json:"lastAccessAt"`
	LastSavedAt  *time.Time `json:"lastSavedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type DocumentStore struct {
	db *gorm.DB
	// 最近文件列表是热点读，并发请求合并成一次查询
	group singleflight.Group
}

func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// TouchFile upserts the record of path, counting an open or a save.
func (s *DocumentStore) TouchFile(ctx context.Context, path string, lines int, saved bool) error {
	now := time.Now()
	rec := FileRecord{Path: path, Lines: lines, LastAccessAt: now}
	updates := map[string]any{
		"lines":          lines,
		"last_access_at": now,
		"updated_at":     now,
	}
	if saved {
		rec.SaveCount = 1
		rec.LastSavedAt = &now
		updates["save_count"] = gorm.Expr("save_count + 1")
		updates["last_saved_at"] = now
	} else {
		rec.OpenCount = 1
		updates["open_count"] = gorm.Expr("open_count + 1")
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&rec).Error
}

// RecentFiles returns up to limit records, most recently accessed first.
func (s *DocumentStore) RecentFiles(ctx context.Context, limit int) ([]FileRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	v, err, _ := s.group.Do("recent:"+strconv.Itoa(limit), func() (any, error) {
		var records []FileRecord
		err := s.db.WithContext(ctx).
			Order("last_access_at DESC").
			Limit(limit).
			Find(&records).Error
		return records, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]FileRecord), nil
}

// GetFile returns ErrNotFound when path was never opened.
func (s *DocumentStore) GetFile(ctx context.Context, path string) (FileRecord, error) {
	var rec FileRecord
	err := s.db.WithContext(ctx).Where("path = ?", path).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FileRecord{}, ErrNotFound
	}
	return rec, err
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"editorServer/backend/internal/cache"
	"editorServer/backend/internal/session"
	"editorServer/backend/internal/store"
)

type SessionLister interface {
	Snapshot() []session.Info
}

type PresenceLister interface {
	ListSessions(ctx context.Context) ([]cache.PresenceSession, error)
	GetCursor(ctx context.Context, sessionID string) ([]byte, error)
}

type RecentFiles interface {
	RecentFiles(ctx context.Context, limit int) ([]store.FileRecord, error)
}

type FileLookup interface {
	GetFile(ctx context.Context, path string) (store.FileRecord, error)
}

type SnapshotLookup interface {
	LatestSnapshot(ctx context.Context, path string) (store.Snapshot, error)
}

// onlineSession 是 redis 里的会话加上它最后上报的光标
type onlineSession struct {
	cache.PresenceSession
	Cursor json.RawMessage `json:"cursor,omitempty"`
}

const maxRecentLimit = 100

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// Sessions 返回本实例的会话，配置了 redis 时附带集群内的在线会话
func Sessions(local SessionLister, presence PresenceLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"sessions": local.Snapshot()}
		if presence != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()
			online, err := presence.ListSessions(ctx)
			if err != nil {
				log.Printf("list presence error: %v", err)
			} else {
				body["online"] = withCursors(ctx, presence, online)
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

func withCursors(ctx context.Context, presence PresenceLister, online []cache.PresenceSession) []onlineSession {
	out := make([]onlineSession, 0, len(online))
	for _, ps := range online {
		item := onlineSession{PresenceSession: ps}
		cursor, err := presence.GetCursor(ctx, ps.SessionID)
		if err != nil {
			log.Printf("get cursor error (session=%s): %v", ps.SessionID, err)
		} else if json.Valid(cursor) {
			item.Cursor = cursor
		}
		out = append(out, item)
	}
	return out
}

func RecentDocuments(files RecentFiles) gin.HandlerFunc {
	return func(c *gin.Context) {
		if files == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": "STORE_DISABLED", "message": "file records are not configured"})
			return
		}
		limit := 20
		if q := c.Query("limit"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_LIMIT", "message": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxRecentLimit)
		}

		records, err := files.RecentFiles(c.Request.Context(), limit)
		if err != nil {
			log.Printf("recent files error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "load recent files failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": records})
	}
}

// DocumentInfo 返回某个文件的访问记录和最近一次保存的快照
func DocumentInfo(files FileLookup, snapshots SnapshotLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if files == nil && snapshots == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": "STORE_DISABLED", "message": "document stores are not configured"})
			return
		}
		path := c.Query("path")
		if path == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": "PATH_REQUIRED", "message": "path is required"})
			return
		}

		ctx := c.Request.Context()
		body := gin.H{"path": path}
		if files != nil {
			rec, err := files.GetFile(ctx, path)
			switch {
			case err == nil:
				body["file"] = rec
			case !errors.Is(err, store.ErrNotFound):
				log.Printf("get file error (path=%s): %v", path, err)
				c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "load file record failed"})
				return
			}
		}
		if snapshots != nil {
			snap, err := snapshots.LatestSnapshot(ctx, path)
			switch {
			case err == nil:
				body["snapshot"] = snap
			case !errors.Is(err, store.ErrNotFound):
				log.Printf("latest snapshot error (path=%s): %v", path, err)
				c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "load snapshot failed"})
				return
			}
		}

		if len(body) == 1 {
			c.JSON(http.StatusNotFound, gin.H{"code": "DOCUMENT_NOT_FOUND", "message": "no record for path"})
			return
		}
		c.JSON(http.StatusOK, body)
	}
}

package cache

import "fmt"

// 键语义：
// - sessionsKey():        在线会话（ZSet<sessionID, expireAtUnix>，score=expireAt）
// - filesKey():           会话 → 打开的文件名（Hash）
// - cursorKey(sessionID): 会话的光标状态（String JSON，带 TTL）
//
// sessions 和 files 共用 {editor} hash tag，集群模式下落在同一个 slot，Lua 脚本才能同时操作

const (
	keySessionsZSet = "presence:{editor}:sessions"
	keyFilesHash    = "presence:{editor}:files"
	keyCursorFmt    = "presence:cursor:{session:%s}"
)

func sessionsKey() string               { return keySessionsZSet }
func filesKey() string                  { return keyFilesHash }
func cursorKey(sessionID string) string { return fmt.Sprintf(keyCursorFmt, sessionID) }

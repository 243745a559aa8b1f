package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type PresenceCache interface {
	AddSession(ctx context.Context, sessionID, fileName string, ttl time.Duration) error
	SetCursor(ctx context.Context, sessionID string, jsonData []byte, ttl time.Duration) error
	GetCursor(ctx context.Context, sessionID string) ([]byte, error)
	RemoveSession(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context) ([]PresenceSession, error)
}

type PresenceSession struct {
	SessionID string    `json:"sessionId"`
	FileName  string    `json:"fileName,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// 具体实现：基于 redis 的 PresenceCache，单机和集群都用 UniversalClient
type redisPresence struct {
	rdb redis.UniversalClient
}

func NewRedisPresence(rdb redis.UniversalClient) PresenceCache {
	return &redisPresence{rdb: rdb}
}

// 过期清理：score=expireAt（Unix 秒），expireAt <= now 视为过期
var pruneScript = redis.NewScript(`
-- KEYS[1] = sessionsKey()
-- KEYS[2] = filesKey()
-- ARGV[1] = now (unix seconds)
local expired = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
if #expired > 0 then
	redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
	redis.call("HDEL", KEYS[2], unpack(expired))
end
return #expired
`)

func (p *redisPresence) AddSession(ctx context.Context, sessionID, fileName string, ttl time.Duration) error {
	// 刷新 TTL 也直接调用 AddSession
	tx := p.rdb.TxPipeline()
	expireAt := time.Now().Add(ttl).Unix()
	tx.ZAdd(ctx, sessionsKey(), redis.Z{Score: float64(expireAt), Member: sessionID})
	if fileName != "" {
		tx.HSet(ctx, filesKey(), sessionID, fileName)
	} else {
		tx.HDel(ctx, filesKey(), sessionID)
	}
	_, err := tx.Exec(ctx)
	return err
}

// SetCursor 写光标并顺带续期会话
func (p *redisPresence) SetCursor(ctx context.Context, sessionID string, jsonData []byte, ttl time.Duration) error {
	expireAt := time.Now().Add(ttl).Unix()
	pipe := p.rdb.Pipeline()
	pipe.Set(ctx, cursorKey(sessionID), jsonData, ttl)
	pipe.ZAdd(ctx, sessionsKey(), redis.Z{Score: float64(expireAt), Member: sessionID})
	_, err := pipe.Exec(ctx)
	return err
}

// GetCursor 没有记录时返回 (nil, nil)
func (p *redisPresence) GetCursor(ctx context.Context, sessionID string) ([]byte, error) {
	cursor, err := p.rdb.Get(ctx, cursorKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

func (p *redisPresence) RemoveSession(ctx context.Context, sessionID string) error {
	tx := p.rdb.TxPipeline()
	tx.ZRem(ctx, sessionsKey(), sessionID)
	tx.HDel(ctx, filesKey(), sessionID)
	_, err := tx.Exec(ctx)
	if err != nil {
		return err
	}
	// cursor 键在另一个 slot，单独删
	return p.rdb.Del(ctx, cursorKey(sessionID)).Err()
}

func (p *redisPresence) ListSessions(ctx context.Context) ([]PresenceSession, error) {
	// step1: 清理过期会话
	now := time.Now().Unix()
	if err := pruneScript.Run(ctx, p.rdb, []string{sessionsKey(), filesKey()}, now).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	// step2: 查询在线会话
	alive, err := p.rdb.ZRangeByScoreWithScores(ctx, sessionsKey(), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now, 10), // > now
		Max: "+inf",
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if len(alive) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(alive))
	for _, z := range alive {
		id, _ := z.Member.(string)
		ids = append(ids, id)
	}

	// step3: 批量获取文件名
	names, err := p.rdb.HMGet(ctx, filesKey(), ids...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	sessions := make([]PresenceSession, 0, len(alive))
	for i, z := range alive {
		name := ""
		if i < len(names) && names[i] != nil {
			name, _ = names[i].(string)
		}
		sessions = append(sessions, PresenceSession{
			SessionID: ids[i],
			FileName:  name,
			ExpiresAt: time.Unix(int64(z.Score), 0),
		})
	}
	return sessions, nil
}

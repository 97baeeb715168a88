// Package redisstate implements StateRepository on Redis. Every key is a
// cache or counter; losing the whole keyspace costs latency, not data.
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
	"github.com/tanishk-sarode/codechill-v2/internal/repository"
)

// recentChatWindow is how many messages the per-room chat list retains.
const recentChatWindow = 50

// RedisStateRepository is the Redis implementation of StateRepository.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "cc:"
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisStateRepository) roomChatKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:chat", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) roomDocumentKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:document", r.keyPrefix, roomID)
}

// documentCache is the JSON shape stored under the document key.
type documentCache struct {
	Content string `json:"content"`
	Version uint64 `json:"version"`
}

// PushRecentMessage appends the message and trims the list to the window
// in one pipeline round trip.
func (r *RedisStateRepository) PushRecentMessage(ctx context.Context, roomID string, msg domain.ChatMessage) error {
	key := r.roomChatKey(roomID)
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis: marshal chat message %s for cache: %w", msg.ID, err)
	}
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, string(msgBytes))
	pipe.LTrim(ctx, key, -recentChatWindow, -1)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: push chat message for room %s on key %s: %w", roomID, key, err)
	}
	return nil
}

// GetRecentMessages returns the newest limit cached messages, oldest
// first. An empty or missing list maps to ErrNotFound so callers fall back
// to the database.
func (r *RedisStateRepository) GetRecentMessages(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 || limit > recentChatWindow {
		limit = recentChatWindow
	}
	key := r.roomChatKey(roomID)
	msgStrs, err := r.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get recent messages for room %s from %s: %w", roomID, key, err)
	}
	if len(msgStrs) == 0 {
		return nil, repository.ErrNotFound
	}
	msgs := make([]domain.ChatMessage, 0, len(msgStrs))
	for _, msgStr := range msgStrs {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(msgStr), &msg); err != nil {
			logrus.Warnf("redis: skipping malformed cached message for room %s: %v", roomID, err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (r *RedisStateRepository) SetDocumentCache(ctx context.Context, roomID string, content string, version uint64, ttl time.Duration) error {
	key := r.roomDocumentKey(roomID)
	cacheBytes, err := json.Marshal(documentCache{Content: content, Version: version})
	if err != nil {
		return fmt.Errorf("redis: marshal document cache for room %s (v%d): %w", roomID, version, err)
	}
	if err := r.client.Set(ctx, key, string(cacheBytes), ttl).Err(); err != nil {
		return fmt.Errorf("redis: set document cache for room %s on key %s: %w", roomID, key, err)
	}
	return nil
}

func (r *RedisStateRepository) GetDocumentCache(ctx context.Context, roomID string) (string, uint64, error) {
	key := r.roomDocumentKey(roomID)
	cacheStr, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", 0, repository.ErrNotFound
		}
		return "", 0, fmt.Errorf("redis: get document cache for room %s from %s: %w", roomID, key, err)
	}
	var cache documentCache
	if err := json.Unmarshal([]byte(cacheStr), &cache); err != nil {
		return "", 0, fmt.Errorf("redis: unmarshal document cache for room %s from %s: %w", roomID, key, err)
	}
	return cache.Content, cache.Version, nil
}

// CleanupRoomState deletes every key held for the room.
func (r *RedisStateRepository) CleanupRoomState(ctx context.Context, roomID string) error {
	keys := []string{
		r.roomChatKey(roomID),
		r.roomDocumentKey(roomID),
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: cleanup state for room %s: %w", roomID, err)
	}
	return nil
}

// CheckRateLimit increments the counter under key and refreshes its
// expiry, then reports whether the new count exceeds limit.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", key, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: get incr result for rate limit on key %s: %w", key, err)
	}
	return count > int64(limit), nil
}

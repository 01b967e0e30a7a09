package memoryxredis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relay-labs/chatrelay/pkg/ai/llm"
)

// RedisMemory implements memoryx.Memory backed by a Redis list, one list
// per session. It lets conversations survive process restarts and be
// shared across instances.
type RedisMemory struct {
	rdb       *redis.Client
	sessionID string
	ttl       time.Duration
	timeout   time.Duration
}

// Option configures a RedisMemory
type Option func(*RedisMemory)

// WithTTL sets the expiry refreshed on every write. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(m *RedisMemory) {
		m.ttl = ttl
	}
}

// WithTimeout bounds each Redis operation. Defaults to 5s.
func WithTimeout(d time.Duration) Option {
	return func(m *RedisMemory) {
		m.timeout = d
	}
}

// NewRedisMemory creates a Redis-backed memory for the given session
func NewRedisMemory(rdb *redis.Client, sessionID string, opts ...Option) *RedisMemory {
	m := &RedisMemory{
		rdb:       rdb,
		sessionID: sessionID,
		timeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *RedisMemory) key() string {
	return fmt.Sprintf("chatrelay:session:%s", m.sessionID)
}

func (m *RedisMemory) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

// Messages returns the full conversation stored for the session
func (m *RedisMemory) Messages() ([]llm.Message, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	raw, err := m.rdb.LRange(ctx, m.key(), 0, -1).Result()
	if err != nil {
		return nil, redisErrors.NewWithCause(ErrRead, err).WithDetail("session_id", m.sessionID)
	}

	messages := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var msg llm.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, redisErrors.NewWithCause(ErrUnmarshal, err).WithDetail("session_id", m.sessionID)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Add appends a message to the session history
func (m *RedisMemory) Add(message llm.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return redisErrors.NewWithCause(ErrMarshal, err)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	pipe := m.rdb.Pipeline()
	pipe.RPush(ctx, m.key(), data)
	if m.ttl > 0 {
		pipe.Expire(ctx, m.key(), m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return redisErrors.NewWithCause(ErrWrite, err).WithDetail("session_id", m.sessionID)
	}
	return nil
}

// Clear resets the session, preserving the system prompt if present
func (m *RedisMemory) Clear() error {
	messages, err := m.Messages()
	if err != nil {
		return err
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	pipe := m.rdb.Pipeline()
	pipe.Del(ctx, m.key())
	if len(messages) > 0 && messages[0].Role == llm.RoleSystem {
		data, err := json.Marshal(messages[0])
		if err != nil {
			return redisErrors.NewWithCause(ErrMarshal, err)
		}
		pipe.RPush(ctx, m.key(), data)
		if m.ttl > 0 {
			pipe.Expire(ctx, m.key(), m.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return redisErrors.NewWithCause(ErrWrite, err).WithDetail("session_id", m.sessionID)
	}
	return nil
}

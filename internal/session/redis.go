// Redis-backed session store for deployments where the orchestrator and
// workers span hosts. Session records live as JSON values with a TTL; last
// channels live in a per-guild hash whose TTL is refreshed on write.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
)

const (
	sessionKeyPrefix = "vf:session:"
	lastKeyPrefix    = "vf:last:"
)

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL is the idle lifetime of session and last-channel records.
	TTL time.Duration
}

// RedisStore implements Store on a Redis client.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// GetSession implements Store.
func (s *RedisStore) GetSession(ctx context.Context, guildID string) (*domain.VoiceSession, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+guildID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sess domain.VoiceSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SetActiveSession implements Store. An existing record keeps its owner and
// start time; only the channel and last actor move.
func (s *RedisStore) SetActiveSession(ctx context.Context, guildID, channelID, userID string) error {
	now := time.Now().UTC()
	sess, err := s.GetSession(ctx, guildID)
	if err != nil {
		return err
	}
	if sess == nil {
		sess = &domain.VoiceSession{
			GuildID:   guildID,
			OwnerID:   userID,
			StartedAt: now,
		}
	}
	sess.ActiveChannelID = channelID
	sess.LastActorID = userID
	sess.UpdatedAt = now

	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+guildID, raw, s.ttl).Err()
}

// ClearActiveSession implements Store.
func (s *RedisStore) ClearActiveSession(ctx context.Context, guildID string) error {
	return s.client.Del(ctx, sessionKeyPrefix+guildID).Err()
}

// RecordLastChannel implements Store.
func (s *RedisStore) RecordLastChannel(ctx context.Context, guildID, userID, channelID string) error {
	key := lastKeyPrefix + guildID
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, userID, channelID)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// LastChannel implements Store.
func (s *RedisStore) LastChannel(ctx context.Context, guildID, userID string) (string, error) {
	ch, err := s.client.HGet(ctx, lastKeyPrefix+guildID, userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return ch, err
}

// Close implements Store.
func (s *RedisStore) Close() error { return s.client.Close() }

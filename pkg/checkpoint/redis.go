package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis checkpoint store.
type RedisConfig struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address string

	// Password for Redis authentication (optional)
	Password string

	// Database number to use (default: 0)
	Database int

	// Prefix is prepended to all checkpoint keys
	Prefix string

	// TTL is the time-to-live for checkpoint keys (0 = no expiration)
	TTL time.Duration

	// Timeout for Redis operations
	Timeout time.Duration

	// PoolSize is the maximum number of connections
	PoolSize int

	// MinIdleConns is the minimum number of idle connections
	MinIdleConns int
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address:      address,
		Prefix:       "gaitflow:checkpoints:",
		TTL:          24 * time.Hour,
		Timeout:      5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisStore keeps run checkpoints in Redis, which shared batch workers can
// reach with lower latency than a shared filesystem.
type RedisStore struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("checkpoint: connect to redis: %w", err)
	}

	return &RedisStore{cfg: cfg, client: client}, nil
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(runID string) string {
	return s.cfg.Prefix + runID
}

func (s *RedisStore) inputIndexKey(inputPath string) string {
	return s.cfg.Prefix + "index:input:" + sanitizeKey(inputPath)
}

// sanitizeKey removes characters that may cause issues in Redis keys.
func sanitizeKey(k string) string {
	k = strings.ReplaceAll(k, "/", "_")
	k = strings.ReplaceAll(k, ":", "_")
	k = strings.ReplaceAll(k, " ", "_")
	return k
}

// Save persists a checkpoint and its input-path index entry atomically.
func (s *RedisStore) Save(ctx context.Context, cp *Checkpoint) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	cp.mu.Lock()
	data, err := json.Marshal(cp)
	cp.mu.Unlock()
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(cp.RunID), data, s.cfg.TTL)
	if cp.Phase != PhaseComplete {
		pipe.Set(ctx, s.inputIndexKey(cp.InputPath), cp.RunID, s.cfg.TTL)
	} else {
		pipe.Del(ctx, s.inputIndexKey(cp.InputPath))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("checkpoint: save to redis: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by run ID.
func (s *RedisStore) Load(ctx context.Context, runID string) (*Checkpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(runID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("checkpoint: load from redis: %w", err)
	}

	cp := new(Checkpoint)
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal: %w", err)
	}
	if cp.Done == nil {
		cp.Done = make(map[string]bool)
	}
	return cp, nil
}

// Delete removes a checkpoint and its index entry.
func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	cp, err := s.Load(ctx, runID)
	if err != nil && err != os.ErrNotExist {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(runID))
	if cp != nil {
		pipe.Del(ctx, s.inputIndexKey(cp.InputPath))
	}
	_, err = pipe.Exec(ctx)
	return err
}

// FindIncomplete looks up the unfinished run for an input path via the
// index key.
func (s *RedisStore) FindIncomplete(ctx context.Context, inputPath string) (*Checkpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	runID, err := s.client.Get(ctx, s.inputIndexKey(inputPath)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("checkpoint: query index: %w", err)
	}

	cp, err := s.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if cp.Phase == PhaseComplete {
		return nil, os.ErrNotExist
	}
	return cp, nil
}

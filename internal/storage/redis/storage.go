package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/flightlobby/internal/model"
	"github.com/mcoot/flightlobby/internal/storage"
)

// Storage is a Redis-backed implementation of the transcript store.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis transcript store.
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis transcript store with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) AppendChat(ctx context.Context, record *model.ChatRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	key := transcriptKey(storage.DayKey(record.Time))

	// Append and keep the day's TTL in sync in one round trip.
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.cfg.TranscriptTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ChatForDay(ctx context.Context, day time.Time) ([]*model.ChatRecord, error) {
	key := transcriptKey(storage.DayKey(day))

	values, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, model.ErrNoTranscript
	}

	records := make([]*model.ChatRecord, 0, len(values))
	for _, val := range values {
		var record model.ChatRecord
		if err := json.Unmarshal([]byte(val), &record); err != nil {
			continue // Skip invalid data
		}
		records = append(records, &record)
	}

	return records, nil
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iwvelando/mortgage-simulator/internal/config"
	"github.com/iwvelando/mortgage-simulator/internal/proposal"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each proposal as a JSON value under "proposal:<id>" and
// orders them with a sorted set scored by creation time.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	store := NewRedisStoreFromClient(client, cfg.KeyPrefix)
	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Address, err)
	}
	return store, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix != "" {
		prefix += ":"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) recordKey(id string) string {
	return s.prefix + "proposal:" + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "proposals:by_created"
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Insert stores a record. Writing the same ID twice leaves a single entry.
func (s *RedisStore) Insert(ctx context.Context, r proposal.Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding proposal %s: %w", r.ID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, s.recordKey(r.ID), payload, 0)
		pipe.ZAddNX(ctx, s.indexKey(), redis.Z{
			Score:  float64(r.CreatedAt.UnixNano()),
			Member: r.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("inserting proposal %s: %w", r.ID, err)
	}
	return nil
}

// Get loads one record by ID.
func (s *RedisStore) Get(ctx context.Context, id string) (proposal.Record, error) {
	payload, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return proposal.Record{}, ErrNotFound
	}
	if err != nil {
		return proposal.Record{}, fmt.Errorf("loading proposal %s: %w", id, err)
	}

	var r proposal.Record
	if err := json.Unmarshal(payload, &r); err != nil {
		return proposal.Record{}, fmt.Errorf("decoding proposal %s: %w", id, err)
	}
	return r, nil
}

// List returns records newest first, filtered by opts.Query.
func (s *RedisStore) List(ctx context.Context, opts proposal.ListOptions) ([]proposal.Record, error) {
	limit := opts.EffectiveLimit()

	records := []proposal.Record{}
	err := s.scan(ctx, func(r proposal.Record) bool {
		if opts.Matches(r) {
			records = append(records, r)
		}
		return len(records) < limit
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Stats aggregates all stored proposals.
func (s *RedisStore) Stats(ctx context.Context) (proposal.Stats, error) {
	count := 0
	total := 0.0
	err := s.scan(ctx, func(r proposal.Record) bool {
		count++
		total += r.PropertyValue
		return true
	})
	if err != nil {
		return proposal.Stats{}, err
	}
	return proposal.NewStats(count, total), nil
}

const scanBatchSize = 100

// scan visits records newest first until fn returns false.
func (s *RedisStore) scan(ctx context.Context, fn func(proposal.Record) bool) error {
	for start := int64(0); ; start += scanBatchSize {
		ids, err := s.client.ZRevRange(ctx, s.indexKey(), start, start+scanBatchSize-1).Result()
		if err != nil {
			return fmt.Errorf("reading proposal index: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = s.recordKey(id)
		}
		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("loading proposals: %w", err)
		}

		for i, value := range values {
			payload, ok := value.(string)
			if !ok {
				// Indexed but missing: the record was removed out of band.
				continue
			}
			var r proposal.Record
			if err := json.Unmarshal([]byte(payload), &r); err != nil {
				return fmt.Errorf("decoding proposal %s: %w", ids[i], err)
			}
			if !fn(r) {
				return nil
			}
		}

		if len(ids) < scanBatchSize {
			return nil
		}
	}
}

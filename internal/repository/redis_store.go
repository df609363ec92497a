package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"HistPull/internal/domain/models"
	drepo "HistPull/internal/domain/repository"
	applogger "HistPull/pkg/logger"
)

// RedisStore keeps each series as one JSON value, for deployments that want
// checkpoints off the local disk. Same contract as FileStore: absent or
// corrupt entries report (nil, nil) so the symbol is re-collected.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	log    *applogger.Logger
}

func NewRedisStore(rdb *redis.Client, prefix string, log *applogger.Logger) drepo.SeriesStore {
	if log == nil {
		log = applogger.Nop()
	}
	return &RedisStore{rdb: rdb, prefix: prefix, log: log}
}

func (s *RedisStore) key(source, symbol string) string {
	return s.prefix + ":series:" + source + ":" + symbol
}

func (s *RedisStore) Load(ctx context.Context, source, symbol string) ([]models.Observation, error) {
	key := s.key(source, symbol)
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load series %s: %w", key, err)
	}

	var series []models.Observation
	if err := json.Unmarshal(data, &series); err != nil {
		s.log.Warn("discarding corrupt series key",
			applogger.String("key", key),
			applogger.Error(err))
		_ = s.rdb.Del(ctx, key).Err()
		return nil, nil
	}
	return series, nil
}

func (s *RedisStore) Save(ctx context.Context, source, symbol string, series []models.Observation) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(source, symbol), data, 0).Err(); err != nil {
		return fmt.Errorf("save series: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-udp/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-udp/internal/entity"
)

const (
	resultKeyPrefix = "result:"
	recentKey       = "results:recent"
	winsKey         = "leaderboard:wins"
)

type ResultRepository interface {
	Save(ctx context.Context, record *entity.GameRecord) error
	GetByID(ctx context.Context, id string) (*entity.GameRecord, error)
	IncrWins(ctx context.Context, player string) error

	Leaderboard(ctx context.Context, n int64) ([]entity.LeaderboardEntry, error)
	Recent(ctx context.Context, n int64) ([]*entity.GameRecord, error)
}

type dbResult struct {
	client *redis.Client

	ttl         time.Duration
	recentLimit int64
}

// NewResultRepository - records expire after ttl; the recent list keeps recentLimit ids.
func NewResultRepository(client *redis.Client, ttl time.Duration, recentLimit int64) ResultRepository {
	if recentLimit <= 0 {
		recentLimit = 1
	}

	return &dbResult{
		client:      client,
		ttl:         ttl,
		recentLimit: recentLimit,
	}
}

func (that *dbResult) Save(ctx context.Context, record *entity.GameRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal game record: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, resultKeyPrefix+record.ID, recordJSON, that.ttl)
		pipe.LPush(ctx, recentKey, record.ID)
		pipe.LTrim(ctx, recentKey, 0, that.recentLimit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save game record: %w", err)
	}

	return nil
}

func (that *dbResult) GetByID(ctx context.Context, id string) (*entity.GameRecord, error) {
	response, err := that.client.Get(ctx, resultKeyPrefix+id).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game record by ID: %w", err)
	}

	var record entity.GameRecord
	if err = json.Unmarshal([]byte(response), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game record: %w", err)
	}

	return &record, nil
}

func (that *dbResult) IncrWins(ctx context.Context, player string) error {
	if err := that.client.ZIncrBy(ctx, winsKey, 1, player).Err(); err != nil {
		return fmt.Errorf("failed to increment wins: %w", err)
	}

	return nil
}

// Leaderboard - returns the n players with the most wins, best first.
func (that *dbResult) Leaderboard(ctx context.Context, n int64) ([]entity.LeaderboardEntry, error) {
	if n <= 0 {
		return []entity.LeaderboardEntry{}, nil
	}

	scores, err := that.client.ZRevRangeWithScores(ctx, winsKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]entity.LeaderboardEntry, 0, len(scores))
	for _, z := range scores {
		player, ok := z.Member.(string)
		if !ok {
			continue
		}

		entries = append(entries, entity.LeaderboardEntry{Player: player, Wins: int64(z.Score)})
	}

	return entries, nil
}

// Recent - returns up to n of the latest records, newest first. Expired records are skipped.
func (that *dbResult) Recent(ctx context.Context, n int64) ([]*entity.GameRecord, error) {
	if n <= 0 {
		return []*entity.GameRecord{}, nil
	}

	ids, err := that.client.LRange(ctx, recentKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent results: %w", err)
	}

	records := make([]*entity.GameRecord, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, resultKeyPrefix+id)
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load recent results: %w", err)
	}

	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var record entity.GameRecord
		if err = json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game record: %w", err)
		}

		records = append(records, &record)
	}

	return records, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-udp/internal/entity"
)

const defaultLeaderboardSize = 10

type ResultService interface {
	Record(ctx context.Context, record *entity.GameRecord) error
	Leaderboard(ctx context.Context, n int64) ([]entity.LeaderboardEntry, error)
	Recent(ctx context.Context, n int64) ([]*entity.GameRecord, error)
}

type resultRepo interface {
	Save(ctx context.Context, record *entity.GameRecord) error
	IncrWins(ctx context.Context, player string) error

	Leaderboard(ctx context.Context, n int64) ([]entity.LeaderboardEntry, error)
	Recent(ctx context.Context, n int64) ([]*entity.GameRecord, error)
}

type resultService struct {
	logger     *slog.Logger
	resultRepo resultRepo
}

func NewResultService(logger *slog.Logger, resultRepo resultRepo) ResultService {
	return &resultService{
		logger:     logger.With("component", "result-service"),
		resultRepo: resultRepo,
	}
}

// Record - stores a finished game and credits the winner.
func (that *resultService) Record(ctx context.Context, record *entity.GameRecord) error {
	log := that.logger.With("method", "Record", "gameID", record.ID)

	if err := that.resultRepo.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save game result: %w", err)
	}

	winner := record.Winner()
	if winner == "" {
		log.Debug("game result recorded", "result", record.Result.String())
		return nil
	}

	if err := that.resultRepo.IncrWins(ctx, winner); err != nil {
		return fmt.Errorf("failed to credit winner: %w", err)
	}

	log.Debug("game result recorded", "result", record.Result.String(), "winner", winner)

	return nil
}

func (that *resultService) Leaderboard(ctx context.Context, n int64) ([]entity.LeaderboardEntry, error) {
	if n <= 0 {
		n = defaultLeaderboardSize
	}

	entries, err := that.resultRepo.Leaderboard(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve leaderboard from storage: %w", err)
	}

	return entries, nil
}

func (that *resultService) Recent(ctx context.Context, n int64) ([]*entity.GameRecord, error) {
	if n <= 0 {
		n = defaultLeaderboardSize
	}

	records, err := that.resultRepo.Recent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve recent results from storage: %w", err)
	}

	return records, nil
}

type noopResultService struct{}

// NewNoopResultService - keeps nothing; used when no storage is configured.
func NewNoopResultService() ResultService {
	return noopResultService{}
}

func (noopResultService) Record(context.Context, *entity.GameRecord) error {
	return nil
}

func (noopResultService) Leaderboard(context.Context, int64) ([]entity.LeaderboardEntry, error) {
	return []entity.LeaderboardEntry{}, nil
}

func (noopResultService) Recent(context.Context, int64) ([]*entity.GameRecord, error) {
	return []*entity.GameRecord{}, nil
}

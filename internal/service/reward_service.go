package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/pkg/jobs"
)

// Reward job types and their gold value.
const (
	RewardReadingCompleted = "reading.completed"
	RewardQuizPerfect      = "quiz.perfect"

	readingCompletedGold = 10
	quizPerfectGold      = 5
)

// RewardPayload identifies who earned a reward and for what.
type RewardPayload struct {
	UserID   string
	SourceID string
}

type goldCreditor interface {
	AddGold(ctx context.Context, id string, amount int) (int, int, error)
}

type jobQueue interface {
	Register(jobType string, handler jobs.Handler)
	Enqueue(job jobs.Job) error
}

// RewardService grants ninja gold through the background queue.
type RewardService struct {
	users  goldCreditor
	queue  jobQueue
	logger *zap.Logger
}

// NewRewardService registers the reward handlers on queue.
func NewRewardService(users goldCreditor, queue jobQueue, logger *zap.Logger) *RewardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RewardService{users: users, queue: queue, logger: logger}
	queue.Register(RewardReadingCompleted, s.handler(readingCompletedGold))
	queue.Register(RewardQuizPerfect, s.handler(quizPerfectGold))
	return s
}

// Dispatch enqueues a reward. Enqueue failures are logged and dropped.
func (s *RewardService) Dispatch(jobType, userID, sourceID string) {
	err := s.queue.Enqueue(jobs.Job{Type: jobType, Payload: RewardPayload{UserID: userID, SourceID: sourceID}})
	if err != nil {
		s.logger.Warn("failed to enqueue reward", zap.String("type", jobType), zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *RewardService) handler(amount int) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(RewardPayload)
		if !ok {
			s.logger.Error("unexpected reward payload", zap.String("job_id", job.ID), zap.Any("payload", job.Payload))
			return nil
		}

		gold, level, err := s.users.AddGold(ctx, payload.UserID, amount)
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("reward skipped for missing user", zap.String("user_id", payload.UserID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("credit %s: %w", job.Type, err)
		}

		s.logger.Info("reward granted",
			zap.String("type", job.Type),
			zap.String("user_id", payload.UserID),
			zap.String("source_id", payload.SourceID),
			zap.Int("gold", gold),
			zap.Int("level", level),
		)
		return nil
	}
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/pkg/jobs"
)

func TestRewardJobsCreditGoldAndLevel(t *testing.T) {
	users := newFakeUsers(models.User{ID: "reader", NinjaGold: 95, NinjaLevel: 1})
	queue := newFakeQueue()
	svc := NewRewardService(users, queue, nil)
	ctx := context.Background()

	svc.Dispatch(RewardReadingCompleted, "reader", "s1")
	svc.Dispatch(RewardQuizPerfect, "reader", "q1")
	require.Len(t, queue.enqueued, 2)
	require.NoError(t, queue.drain(ctx))

	assert.Equal(t, 110, users.gold("reader"))
	user, _ := users.FindByID(ctx, "reader")
	assert.Equal(t, 2, user.NinjaLevel)
}

func TestRewardHandlerSkipsMissingUser(t *testing.T) {
	queue := newFakeQueue()
	NewRewardService(newFakeUsers(), queue, nil)

	err := queue.handlers[RewardReadingCompleted](context.Background(), jobs.Job{Type: RewardReadingCompleted, Payload: RewardPayload{UserID: "gone"}})
	assert.NoError(t, err)
}

func TestRewardDispatchSwallowsQueueErrors(t *testing.T) {
	queue := newFakeQueue()
	queue.err = jobs.ErrQueueFull
	svc := NewRewardService(newFakeUsers(), queue, nil)

	assert.NotPanics(t, func() { svc.Dispatch(RewardQuizPerfect, "reader", "q1") })
	assert.Empty(t, queue.enqueued)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

func quizPayload() dto.QuizRequest {
	return dto.QuizRequest{
		Title: "Dragons",
		Questions: []dto.QuestionInput{
			{ID: "q1", Text: "Colour?", Options: []dto.OptionInput{{ID: "red", Text: "Red", IsCorrect: true}, {ID: "blue", Text: "Blue"}}},
			{ID: "q2", Text: "Wings?", Options: []dto.OptionInput{{ID: "yes", Text: "Yes", IsCorrect: true}, {ID: "no", Text: "No"}}},
		},
	}
}

func TestQuizCreateValidation(t *testing.T) {
	svc := NewQuizService(newFakeQuizzes(), newFakeStories(), nil, nil, nil)
	ctx := context.Background()

	noCorrect := quizPayload()
	noCorrect.Questions[1].Options[0].IsCorrect = false
	_, err := svc.Create(ctx, "teacher", noCorrect)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	oneOption := quizPayload()
	oneOption.Questions[0].Options = oneOption.Questions[0].Options[:1]
	_, err = svc.Create(ctx, "teacher", oneOption)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	missingStory := quizPayload()
	storyID := storyUUID
	missingStory.StoryID = &storyID
	_, err = svc.Create(ctx, "teacher", missingStory)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	generated := quizPayload()
	generated.Questions[0].ID = ""
	quiz, err := svc.Create(ctx, "teacher", generated)
	require.NoError(t, err)
	assert.NotEmpty(t, quiz.Questions[0].ID)
}

func TestQuizOwnerOnly(t *testing.T) {
	svc := NewQuizService(newFakeQuizzes(), newFakeStories(), nil, nil, nil)
	ctx := context.Background()
	quiz, err := svc.Create(ctx, "teacher", quizPayload())
	require.NoError(t, err)

	_, err = svc.Get(ctx, "intruder", quiz.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Update(ctx, "intruder", quiz.ID, quizPayload())
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, "intruder", quiz.ID), appErrors.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, "teacher", quiz.ID))
}

func TestQuizPublicHidesAnswers(t *testing.T) {
	svc := NewQuizService(newFakeQuizzes(), newFakeStories(), nil, nil, nil)
	quiz, err := svc.Create(context.Background(), "teacher", quizPayload())
	require.NoError(t, err)

	public, err := svc.Public(context.Background(), quiz.ID)
	require.NoError(t, err)
	for _, q := range public.Questions {
		for _, opt := range q.Options {
			assert.False(t, opt.IsCorrect)
		}
	}
}

func TestQuizAttemptScoring(t *testing.T) {
	quizzes := newFakeQuizzes()
	rewards := &fakeRewards{}
	svc := NewQuizService(quizzes, newFakeStories(), rewards, nil, nil)
	ctx := context.Background()
	quiz, err := svc.Create(ctx, "teacher", quizPayload())
	require.NoError(t, err)

	partial, err := svc.Attempt(ctx, "reader", quiz.ID, dto.QuizAttemptRequest{Answers: map[string]string{"q1": "red", "q2": "no"}})
	require.NoError(t, err)
	assert.Equal(t, 1, partial.Score)
	assert.Equal(t, 2, partial.Total)
	assert.Empty(t, rewards.calls)

	perfect, err := svc.Attempt(ctx, "reader", quiz.ID, dto.QuizAttemptRequest{Answers: map[string]string{"q1": "red", "q2": "yes"}})
	require.NoError(t, err)
	assert.True(t, perfect.Perfect())
	require.Len(t, rewards.calls, 1)
	assert.Equal(t, RewardQuizPerfect, rewards.calls[0].jobType)
	assert.Len(t, quizzes.attempts, 2)

	again, err := svc.Attempt(ctx, "reader", quiz.ID, dto.QuizAttemptRequest{Answers: map[string]string{"q1": "red", "q2": "yes"}})
	require.NoError(t, err)
	assert.True(t, again.Perfect())
	assert.Len(t, rewards.calls, 1)
	assert.Len(t, quizzes.attempts, 3)

	_, err = svc.Attempt(ctx, "other-reader", quiz.ID, dto.QuizAttemptRequest{Answers: map[string]string{"q1": "red", "q2": "yes"}})
	require.NoError(t, err)
	require.Len(t, rewards.calls, 2)
	assert.Equal(t, "other-reader", rewards.calls[1].userID)

	_, err = svc.Attempt(ctx, "reader", "missing", dto.QuizAttemptRequest{Answers: map[string]string{}})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestScoreIgnoresUnknownAnswers(t *testing.T) {
	questions := models.Questions{
		{ID: "q1", Options: []models.Option{{ID: "a", IsCorrect: true}, {ID: "b"}}},
	}
	assert.Equal(t, 0, Score(questions, map[string]string{"q1": "zzz", "q9": "a"}))
	assert.Equal(t, 1, Score(questions, map[string]string{"q1": "a"}))
	assert.Equal(t, 0, Score(questions, nil))
}

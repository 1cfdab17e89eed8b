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

const (
	storyUUID = "7d2f1c1a-8e7b-4b55-a1b3-000000000001"
	classUUID = "7d2f1c1a-8e7b-4b55-a1b3-0000000000c1"
)

func TestSaveProgressRewardsFirstCompletionOnly(t *testing.T) {
	progress := newFakeProgress()
	rewards := &fakeRewards{}
	stories := newFakeStories(models.Story{ID: storyUUID, Status: models.StoryPublished})
	svc := NewReadingService(&fakeAssignedBooks{}, progress, stories, rewards, nil, nil, nil)
	ctx := context.Background()

	partial, err := svc.SaveProgress(ctx, readerClaims, dto.ProgressRequest{StoryID: storyUUID, CurrentPage: 3, TotalPages: 12})
	require.NoError(t, err)
	assert.Equal(t, 25, partial.Progress)
	assert.Empty(t, rewards.calls)

	done, err := svc.SaveProgress(ctx, readerClaims, dto.ProgressRequest{StoryID: storyUUID, CurrentPage: 40, TotalPages: 12})
	require.NoError(t, err)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, 12, done.CurrentPage)
	assert.True(t, done.Completed)

	again, err := svc.SaveProgress(ctx, readerClaims, dto.ProgressRequest{StoryID: storyUUID, CurrentPage: 2, TotalPages: 12})
	require.NoError(t, err)
	assert.True(t, again.Completed)

	require.Len(t, rewards.calls, 1)
	assert.Equal(t, dispatched{jobType: RewardReadingCompleted, userID: "reader", sourceID: storyUUID}, rewards.calls[0])
}

func TestSaveProgressValidatesInput(t *testing.T) {
	svc := NewReadingService(&fakeAssignedBooks{}, newFakeProgress(), newFakeStories(), nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.SaveProgress(ctx, readerClaims, dto.ProgressRequest{StoryID: storyUUID, CurrentPage: 1, TotalPages: 0})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.SaveProgress(ctx, readerClaims, dto.ProgressRequest{StoryID: storyUUID, CurrentPage: 1, TotalPages: 5})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestProgressForUnopenedStoryIsZero(t *testing.T) {
	stories := newFakeStories(models.Story{ID: storyUUID, Status: models.StoryPublished})
	svc := NewReadingService(&fakeAssignedBooks{}, newFakeProgress(), stories, nil, nil, nil, nil)

	progress, err := svc.Progress(context.Background(), readerClaims, storyUUID)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Progress)
	assert.False(t, progress.Completed)

	_, err = svc.Progress(context.Background(), readerClaims, "unknown")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestProgressOnUnpublishedStory(t *testing.T) {
	const draftID = "7d2f1c1a-8e7b-4b55-a1b3-0000000000d1"
	progress := newFakeProgress()
	rewards := &fakeRewards{}
	stories := newFakeStories(models.Story{ID: draftID, AuthorID: "author", Status: models.StoryDraft})
	svc := NewReadingService(&fakeAssignedBooks{}, progress, stories, rewards, nil, nil, nil)
	ctx := context.Background()
	finish := dto.ProgressRequest{StoryID: draftID, CurrentPage: 5, TotalPages: 5}

	_, err := svc.SaveProgress(ctx, readerClaims, finish)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Progress(ctx, readerClaims, draftID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.SaveProgress(ctx, authorClaims, finish)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.SaveProgress(ctx, adminClaims, finish)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	own, err := svc.Progress(ctx, authorClaims, draftID)
	require.NoError(t, err)
	assert.Zero(t, own.Progress)

	assert.Empty(t, progress.rows)
	assert.Empty(t, rewards.calls)
}

func TestAssignedBooksCarryProgress(t *testing.T) {
	progress := newFakeProgress()
	progress.rows["reader/s1"] = &models.ReadingProgress{UserID: "reader", StoryID: "s1", Progress: 50}
	books := &fakeAssignedBooks{books: []models.AssignedBook{
		{AssignmentID: "a1", Story: models.Story{ID: "s1"}},
		{AssignmentID: "a2", Story: models.Story{ID: "s2"}, Direct: true},
	}}
	svc := NewReadingService(books, progress, newFakeStories(), nil, nil, nil, nil)

	out, err := svc.AssignedBooks(context.Background(), "reader")
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].Progress)
	assert.Equal(t, 50, out[0].Progress.Progress)
	assert.Nil(t, out[1].Progress)

	empty, err := NewReadingService(&fakeAssignedBooks{}, progress, nil, nil, nil, nil, nil).AssignedBooks(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func newAssignmentFixture() (*AssignmentService, *fakeClasses, *fakeStories) {
	classes := newFakeClasses(nil)
	classes.add(models.Class{ID: classUUID, ClassName: "Owls"})
	classes.join(classUUID, "teacher", models.MemberTeacher)
	classes.join(classUUID, studentA, models.MemberStudent)
	stories := newFakeStories(
		models.Story{ID: storyUUID, Title: "Live", Status: models.StoryPublished},
		models.Story{ID: "7d2f1c1a-8e7b-4b55-a1b3-000000000002", Status: models.StoryDraft},
	)
	return NewAssignmentService(newFakeAssignmentRepo(), stories, classes, nil, nil, nil), classes, stories
}

func TestAssignBookRules(t *testing.T) {
	svc, _, _ := newAssignmentFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, "teacher", dto.AssignBookRequest{StoryID: "7d2f1c1a-8e7b-4b55-a1b3-000000000002", ClassID: classUUID})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(ctx, "other-teacher", dto.AssignBookRequest{StoryID: storyUUID, ClassID: classUUID})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	outsider := teacherA
	_, err = svc.Create(ctx, "teacher", dto.AssignBookRequest{StoryID: storyUUID, ClassID: classUUID, StudentID: &outsider})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assignment, err := svc.Create(ctx, "teacher", dto.AssignBookRequest{StoryID: storyUUID, ClassID: classUUID})
	require.NoError(t, err)
	assert.Equal(t, "teacher", assignment.TeacherID)

	_, err = svc.Create(ctx, "teacher", dto.AssignBookRequest{StoryID: storyUUID, ClassID: classUUID})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	student := studentA
	_, err = svc.Create(ctx, "teacher", dto.AssignBookRequest{StoryID: storyUUID, ClassID: classUUID, StudentID: &student})
	require.NoError(t, err)

	list, err := svc.List(ctx, "teacher")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	assert.ErrorIs(t, svc.Delete(ctx, "other-teacher", assignment.ID), appErrors.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, "teacher", assignment.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "teacher", assignment.ID), appErrors.ErrNotFound)
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

type quizRepository interface {
	ListByTeacher(ctx context.Context, teacherID string, page, size int) ([]models.Quiz, int, error)
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
	Create(ctx context.Context, quiz *models.Quiz) error
	Update(ctx context.Context, quiz *models.Quiz) error
	Delete(ctx context.Context, id string) error
	CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) (bool, error)
}

// QuizService manages teacher quizzes and scores reader attempts.
type QuizService struct {
	quizzes   quizRepository
	stories   storyReader
	rewards   rewardDispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuizService constructs the service. rewards may be nil.
func NewQuizService(quizzes quizRepository, stories storyReader, rewards rewardDispatcher, validate *validator.Validate, logger *zap.Logger) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &QuizService{quizzes: quizzes, stories: stories, rewards: rewards, validator: validate, logger: logger}
}

// List returns the teacher's quizzes.
func (s *QuizService) List(ctx context.Context, teacherID string, page, size int) ([]models.Quiz, *models.Pagination, error) {
	quizzes, total, err := s.quizzes.ListByTeacher(ctx, teacherID, page, size)
	if err != nil {
		return nil, nil, internalError(err, "failed to list quizzes")
	}
	return quizzes, newPagination(page, size, total), nil
}

// Get returns a quiz owned by teacherID, answers included.
func (s *QuizService) Get(ctx context.Context, teacherID, id string) (*models.Quiz, error) {
	return s.owned(ctx, teacherID, id)
}

// Create stores a new quiz for teacherID.
func (s *QuizService) Create(ctx context.Context, teacherID string, req dto.QuizRequest) (*models.Quiz, error) {
	questions, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	quiz := &models.Quiz{
		TeacherID:   teacherID,
		StoryID:     req.StoryID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Questions:   questions,
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, internalError(err, "failed to create quiz")
	}
	return s.reload(ctx, quiz), nil
}

// Update replaces the quiz content.
func (s *QuizService) Update(ctx context.Context, teacherID, id string, req dto.QuizRequest) (*models.Quiz, error) {
	quiz, err := s.owned(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	quiz.StoryID = req.StoryID
	quiz.Title = strings.TrimSpace(req.Title)
	quiz.Description = strings.TrimSpace(req.Description)
	quiz.Questions = questions
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, internalError(err, "failed to update quiz")
	}
	return s.reload(ctx, quiz), nil
}

// Delete removes the quiz and its attempts.
func (s *QuizService) Delete(ctx context.Context, teacherID, id string) error {
	if _, err := s.owned(ctx, teacherID, id); err != nil {
		return err
	}
	if err := s.quizzes.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete quiz")
	}
	return nil
}

// Public returns the quiz with every answer flag cleared.
func (s *QuizService) Public(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := s.quizzes.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Quiz not found", "failed to load quiz")
	}
	quiz.Questions = quiz.Questions.WithoutAnswers()
	return quiz, nil
}

// Attempt scores the answers and stores the attempt. The reader's first
// perfect attempt on a quiz queues the reward; later ones only record the score.
func (s *QuizService) Attempt(ctx context.Context, userID, id string, req dto.QuizAttemptRequest) (*models.QuizAttempt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attempt payload")
	}
	quiz, err := s.quizzes.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Quiz not found", "failed to load quiz")
	}

	attempt := &models.QuizAttempt{
		QuizID:  quiz.ID,
		UserID:  userID,
		Answers: models.Answers(req.Answers),
		Score:   Score(quiz.Questions, req.Answers),
		Total:   len(quiz.Questions),
	}
	rewarded, err := s.quizzes.CreateAttempt(ctx, attempt)
	if err != nil {
		return nil, internalError(err, "failed to record attempt")
	}
	if rewarded && s.rewards != nil {
		s.rewards.Dispatch(RewardQuizPerfect, userID, quiz.ID)
	}
	return attempt, nil
}

// Score counts the questions whose chosen option is marked correct.
func Score(questions models.Questions, answers map[string]string) int {
	score := 0
	for _, q := range questions {
		chosen, ok := answers[q.ID]
		if !ok {
			continue
		}
		for _, opt := range q.Options {
			if opt.ID == chosen && opt.IsCorrect {
				score++
				break
			}
		}
	}
	return score
}

func (s *QuizService) owned(ctx context.Context, teacherID, id string) (*models.Quiz, error) {
	quiz, err := s.quizzes.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Quiz not found", "failed to load quiz")
	}
	if quiz.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only the owner can manage this quiz")
	}
	return quiz, nil
}

// prepare validates the payload and assigns ids to new questions and options.
func (s *QuizService) prepare(ctx context.Context, req dto.QuizRequest) (models.Questions, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid quiz payload")
	}

	questions := make(models.Questions, len(req.Questions))
	for i, in := range req.Questions {
		hasCorrect := false
		options := make([]models.Option, len(in.Options))
		for j, opt := range in.Options {
			hasCorrect = hasCorrect || opt.IsCorrect
			options[j] = models.Option{ID: idOrNew(opt.ID), Text: strings.TrimSpace(opt.Text), IsCorrect: opt.IsCorrect}
		}
		if !hasCorrect {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d needs at least one correct option", i+1))
		}
		questions[i] = models.Question{ID: idOrNew(in.ID), Text: strings.TrimSpace(in.Text), Options: options}
	}

	if req.StoryID != nil {
		if _, err := s.stories.FindByID(ctx, *req.StoryID); err != nil {
			return nil, lookupError(err, "Story not found", "failed to load story")
		}
	}
	return questions, nil
}

func (s *QuizService) reload(ctx context.Context, quiz *models.Quiz) *models.Quiz {
	fresh, err := s.quizzes.FindByID(ctx, quiz.ID)
	if err != nil {
		s.logger.Warn("failed to reload quiz", zap.String("quiz_id", quiz.ID), zap.Error(err))
		return quiz
	}
	return fresh
}

func idOrNew(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

package service

import (
	"context"
	"strings"
	"time"

	"course_platform_backend/internal/model"
	"course_platform_backend/internal/repository"
	"course_platform_backend/internal/util"
	"course_platform_backend/pkg/cache"
	"course_platform_backend/pkg/logger"

	"go.uber.org/zap"
)

// ProgressService records learner facts. Every successful write clears the
// course and progress cache namespaces before returning.
type ProgressService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	HomeworkRepo *repository.HomeworkRepository
	Cache        cache.Store
	Now          func() time.Time
}

func NewProgressService(
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
	homeworkRepo *repository.HomeworkRepository,
	store cache.Store,
) *ProgressService {
	return &ProgressService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		HomeworkRepo: homeworkRepo,
		Cache:        store,
		Now:          time.Now,
	}
}

type LessonProgressRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

type SubmitHomeworkRequest struct {
	LessonID uint   `json:"lessonId" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

// MarkLessonComplete sets the completion flag of one lesson for the learner.
func (s *ProgressService) MarkLessonComplete(ctx context.Context, userID, lessonID uint, completed bool) (*model.LessonProgress, error) {
	if lessonID == 0 {
		return nil, util.NewValidationError("lessonId", "is required")
	}

	if _, err := s.CourseRepo.FindLesson(ctx, lessonID); err != nil {
		return nil, err
	}

	progress, err := s.ProgressRepo.SetCompleted(ctx, userID, lessonID, completed, s.Now())
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	logger.Log.Info("lesson progress recorded",
		zap.Uint("learner_id", userID),
		zap.Uint("lesson_id", lessonID),
		zap.Bool("completed", completed),
	)
	return progress, nil
}

// SubmitHomework stores a new submission against a lesson. It satisfies the
// homework gate of the lesson's module.
func (s *ProgressService) SubmitHomework(ctx context.Context, userID uint, req SubmitHomeworkRequest) (*model.HomeworkSubmission, error) {
	if req.LessonID == 0 {
		return nil, util.NewValidationError("lessonId", "is required")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, util.NewValidationError("content", "must not be empty")
	}

	if _, err := s.CourseRepo.FindLesson(ctx, req.LessonID); err != nil {
		return nil, err
	}

	submission := &model.HomeworkSubmission{
		UserID:      userID,
		LessonID:    req.LessonID,
		Content:     content,
		Status:      model.SubmissionSubmitted,
		SubmittedAt: s.Now(),
	}
	if err := s.HomeworkRepo.Create(ctx, submission); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	logger.Log.Info("homework submitted",
		zap.Uint("learner_id", userID),
		zap.Uint("lesson_id", req.LessonID),
		zap.Uint("submission_id", submission.ID),
	)
	return submission, nil
}

func (s *ProgressService) ListSubmissions(ctx context.Context, userID uint) ([]model.HomeworkSubmission, error) {
	return s.HomeworkRepo.ListByUser(ctx, userID)
}

// invalidate runs after the write has committed; failures are only logged.
func (s *ProgressService) invalidate(ctx context.Context) {
	if err := cache.InvalidateProgress(ctx, s.Cache); err != nil {
		logger.Log.Error("cache invalidation failed", zap.Error(err))
	}
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"course_platform_backend/internal/model"
	"course_platform_backend/internal/util"

	"gorm.io/gorm"
)

type HomeworkRepository struct {
	DB *gorm.DB
}

func NewHomeworkRepository(db *gorm.DB) *HomeworkRepository {
	return &HomeworkRepository{DB: db}
}

func (r *HomeworkRepository) Create(ctx context.Context, submission *model.HomeworkSubmission) error {
	if err := r.DB.WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("create homework submission: %w", err)
	}
	return nil
}

func (r *HomeworkRepository) FindByID(ctx context.Context, id uint) (*model.HomeworkSubmission, error) {
	var submission model.HomeworkSubmission
	err := r.DB.WithContext(ctx).First(&submission, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load homework submission %d: %w", id, err)
	}
	return &submission, nil
}

// SubmittedLessonIDs returns the distinct lessons among lessonIDs that have
// at least one submission from the user, whatever its review status.
func (r *HomeworkRepository) SubmittedLessonIDs(ctx context.Context, userID uint, lessonIDs []uint) ([]uint, error) {
	ids := []uint{}
	if len(lessonIDs) == 0 {
		return ids, nil
	}

	err := r.DB.WithContext(ctx).Model(&model.HomeworkSubmission{}).
		Distinct("lesson_id").
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Pluck("lesson_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load submitted lessons: %w", err)
	}
	return ids, nil
}

func (r *HomeworkRepository) ListByUser(ctx context.Context, userID uint) ([]model.HomeworkSubmission, error) {
	var submissions []model.HomeworkSubmission
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC, id DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, fmt.Errorf("list homework submissions: %w", err)
	}
	return submissions, nil
}

// List pages through all submissions, optionally filtered by status.
func (r *HomeworkRepository) List(ctx context.Context, status model.SubmissionStatus, page, limit int) ([]model.HomeworkSubmission, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.HomeworkSubmission{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count homework submissions: %w", err)
	}

	var submissions []model.HomeworkSubmission
	err := query.
		Order("submitted_at ASC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&submissions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list homework submissions: %w", err)
	}
	return submissions, total, nil
}

func (r *HomeworkRepository) SaveReview(ctx context.Context, submission *model.HomeworkSubmission) error {
	err := r.DB.WithContext(ctx).Model(submission).
		Select("status", "feedback", "reviewer_id", "reviewed_at", "updated_at").
		Updates(submission).Error
	if err != nil {
		return fmt.Errorf("save homework review: %w", err)
	}
	return nil
}

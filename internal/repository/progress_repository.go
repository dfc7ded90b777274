package repository

import (
	"context"
	"fmt"
	"time"

	"course_platform_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// SetCompleted creates or updates the single progress row for (user, lesson).
func (r *ProgressRepository) SetCompleted(ctx context.Context, userID, lessonID uint, completed bool, now time.Time) (*model.LessonProgress, error) {
	progress := &model.LessonProgress{
		UserID:    userID,
		LessonID:  lessonID,
		Completed: completed,
	}
	if completed {
		progress.CompletedAt = &now
	}

	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "completed_at", "updated_at"}),
	}).Create(progress).Error
	if err != nil {
		return nil, fmt.Errorf("save lesson progress: %w", err)
	}

	var saved model.LessonProgress
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&saved).Error; err != nil {
		return nil, fmt.Errorf("reload lesson progress: %w", err)
	}
	return &saved, nil
}

// CompletedLessonIDs returns which of lessonIDs the user has completed.
func (r *ProgressRepository) CompletedLessonIDs(ctx context.Context, userID uint, lessonIDs []uint) ([]uint, error) {
	ids := []uint{}
	if len(lessonIDs) == 0 {
		return ids, nil
	}

	err := r.DB.WithContext(ctx).Model(&model.LessonProgress{}).
		Where("user_id = ? AND completed = ? AND lesson_id IN ?", userID, true, lessonIDs).
		Pluck("lesson_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load completed lessons: %w", err)
	}
	return ids, nil
}

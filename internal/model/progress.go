package model

import "time"

// LessonProgress has one row per (learner, lesson), mutated in place.
// swagger:model LessonProgress
type LessonProgress struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint       `gorm:"not null;index:idx_progress_user_lesson,unique" json:"userId"`
	LessonID    uint       `gorm:"not null;index:idx_progress_user_lesson,unique;index" json:"lessonId"`
	Completed   bool       `gorm:"not null" json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionReviewed  SubmissionStatus = "REVIEWED"
	SubmissionApproved  SubmissionStatus = "APPROVED"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionSubmitted, SubmissionReviewed, SubmissionApproved:
		return true
	}
	return false
}

// swagger:model HomeworkSubmission
type HomeworkSubmission struct {
	ID          uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint             `gorm:"not null;index" json:"userId"`
	LessonID    uint             `gorm:"not null;index" json:"lessonId"`
	Content     string           `gorm:"type:text;not null" json:"content"`
	Status      SubmissionStatus `gorm:"size:20;not null;default:'SUBMITTED';index" json:"status"`
	Feedback    string           `gorm:"type:text" json:"feedback,omitempty"`
	ReviewerID  *uint            `json:"reviewerId,omitempty"`
	ReviewedAt  *time.Time       `json:"reviewedAt,omitempty"`
	SubmittedAt time.Time        `gorm:"not null" json:"submittedAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func (HomeworkSubmission) TableName() string {
	return "homework_submissions"
}

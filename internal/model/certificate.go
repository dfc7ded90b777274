package model

import "time"

// Certificate is issued at most once per (learner, course) and never mutated.
// swagger:model Certificate
type Certificate struct {
	UUIDBase
	UserID   uint      `gorm:"not null;index:idx_certificate_user_course,unique" json:"userId"`
	CourseID uint      `gorm:"not null;index:idx_certificate_user_course,unique" json:"courseId"`
	Number   string    `gorm:"size:32;not null;uniqueIndex" json:"number"`
	IssuedAt time.Time `gorm:"not null" json:"issuedAt"`
}

func (Certificate) TableName() string {
	return "certificates"
}

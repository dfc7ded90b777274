package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"course_platform_backend/internal/model"
	"course_platform_backend/internal/util"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) FindByUserAndCourse(ctx context.Context, userID, courseID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCertificateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	return &cert, nil
}

func (r *CertificateRepository) FindByNumber(ctx context.Context, number string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.WithContext(ctx).Where("number = ?", number).First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCertificateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load certificate %s: %w", number, err)
	}
	return &cert, nil
}

// Create inserts a certificate. A uniqueness violation on (user, course) or on
// the number is reported as util.ErrCertificateConflict.
func (r *CertificateRepository) Create(ctx context.Context, cert *model.Certificate) error {
	err := r.DB.WithContext(ctx).Create(cert).Error
	if isDuplicateKey(err) {
		return fmt.Errorf("%w: %v", util.ErrCertificateConflict, err)
	}
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// drivers opened without TranslateError
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

package service

import (
	"context"
	"time"

	"course_platform_backend/internal/model"
	"course_platform_backend/internal/repository"
	"course_platform_backend/internal/util"
	"course_platform_backend/pkg/cache"
	"course_platform_backend/pkg/logger"

	"go.uber.org/zap"
)

// HomeworkReviewService lets administrators review submissions. Review status
// never affects unlocking or eligibility: any submission counts.
type HomeworkReviewService struct {
	HomeworkRepo *repository.HomeworkRepository
	Cache        cache.Store
	Now          func() time.Time
}

func NewHomeworkReviewService(homeworkRepo *repository.HomeworkRepository, store cache.Store) *HomeworkReviewService {
	return &HomeworkReviewService{
		HomeworkRepo: homeworkRepo,
		Cache:        store,
		Now:          time.Now,
	}
}

type ReviewRequest struct {
	Status   model.SubmissionStatus `json:"status" binding:"required"`
	Feedback string                 `json:"feedback"`
}

type SubmissionPage struct {
	List  []model.HomeworkSubmission `json:"list"`
	Total int64                      `json:"total"`
	Page  int                        `json:"page"`
	Limit int                        `json:"limit"`
}

const maxPageSize = 100

func (s *HomeworkReviewService) List(ctx context.Context, status string, page, limit int) (*SubmissionPage, error) {
	st := model.SubmissionStatus(status)
	if st != "" && !st.Valid() {
		return nil, util.NewValidationError("status", "must be one of SUBMITTED, REVIEWED, APPROVED")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = 20
	}

	list, total, err := s.HomeworkRepo.List(ctx, st, page, limit)
	if err != nil {
		return nil, err
	}
	return &SubmissionPage{List: list, Total: total, Page: page, Limit: limit}, nil
}

// Review moves a submission to REVIEWED or APPROVED. Approved submissions are
// final.
func (s *HomeworkReviewService) Review(ctx context.Context, reviewerID, submissionID uint, req ReviewRequest) (*model.HomeworkSubmission, error) {
	if req.Status != model.SubmissionReviewed && req.Status != model.SubmissionApproved {
		return nil, util.NewValidationError("status", "must be REVIEWED or APPROVED")
	}

	submission, err := s.HomeworkRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission.Status == model.SubmissionApproved && req.Status != model.SubmissionApproved {
		return nil, util.NewValidationError("status", "submission is already approved")
	}

	now := s.Now()
	submission.Status = req.Status
	submission.Feedback = req.Feedback
	submission.ReviewerID = &reviewerID
	submission.ReviewedAt = &now

	if err := s.HomeworkRepo.SaveReview(ctx, submission); err != nil {
		return nil, err
	}

	if err := cache.InvalidateProgress(ctx, s.Cache); err != nil {
		logger.Log.Error("cache invalidation failed", zap.Error(err))
	}
	logger.Log.Info("homework reviewed",
		zap.Uint("submission_id", submissionID),
		zap.Uint("reviewer_id", reviewerID),
		zap.String("status", string(req.Status)),
	)
	return submission, nil
}

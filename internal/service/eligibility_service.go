package service

import (
	"context"
	"errors"

	"course_platform_backend/internal/model"
	"course_platform_backend/internal/progression"
	"course_platform_backend/internal/repository"
	"course_platform_backend/internal/util"
	"course_platform_backend/pkg/monitoring"
	"course_platform_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// EligibilityService evaluates certificate eligibility from fresh reads only.
type EligibilityService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	HomeworkRepo *repository.HomeworkRepository
}

func NewEligibilityService(
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
	homeworkRepo *repository.HomeworkRepository,
) *EligibilityService {
	return &EligibilityService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		HomeworkRepo: homeworkRepo,
	}
}

// CheckEligibility reports whether the learner qualifies for a certificate of
// the active course. No configured course is a result, not an error.
func (s *EligibilityService) CheckEligibility(ctx context.Context, userID uint) (progression.Eligibility, error) {
	result, _, err := s.check(ctx, userID)
	return result, err
}

func (s *EligibilityService) check(ctx context.Context, userID uint) (progression.Eligibility, *model.Course, error) {
	ctx, span := tracing.Tracer.Start(ctx, "EligibilityService.CheckEligibility")
	defer span.End()

	course, err := s.CourseRepo.FreshActiveCourse(ctx)
	if errors.Is(err, util.ErrCourseNotFound) {
		result := progression.CourseNotConfigured()
		monitoring.EligibilityChecks.WithLabelValues(string(result.Status)).Inc()
		return result, nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return progression.Eligibility{}, nil, err
	}

	structure, err := s.CourseRepo.FreshStructure(ctx, course)
	if err != nil {
		span.RecordError(err)
		return progression.Eligibility{}, nil, err
	}
	lessonIDs := structure.LessonIDs()

	completed, err := s.ProgressRepo.CompletedLessonIDs(ctx, userID, lessonIDs)
	if err != nil {
		span.RecordError(err)
		return progression.Eligibility{}, nil, err
	}

	facts := progression.Facts{
		CompletedLessons: progression.NewIDSet(completed...),
		SubmittedLessons: progression.NewIDSet(),
	}

	// homework is only consulted once every lesson is done
	if len(facts.CompletedLessons) == len(lessonIDs) {
		submitted, err := s.HomeworkRepo.SubmittedLessonIDs(ctx, userID, lessonIDs)
		if err != nil {
			span.RecordError(err)
			return progression.Eligibility{}, nil, err
		}
		facts.SubmittedLessons = progression.NewIDSet(submitted...)
	}

	result := progression.Evaluate(structure.Nodes(), facts)
	span.SetAttributes(
		attribute.String("eligibility.status", string(result.Status)),
		attribute.Int("eligibility.missing_lessons", result.MissingLessonsCount),
		attribute.Int("eligibility.missing_modules", result.MissingModulesCount),
	)
	monitoring.EligibilityChecks.WithLabelValues(string(result.Status)).Inc()
	return result, course, nil
}

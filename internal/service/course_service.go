package service

import (
	"context"

	"course_platform_backend/internal/model"
	"course_platform_backend/internal/progression"
	"course_platform_backend/internal/repository"
	"course_platform_backend/internal/util"
)

type CourseService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	HomeworkRepo *repository.HomeworkRepository
}

func NewCourseService(
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
	homeworkRepo *repository.HomeworkRepository,
) *CourseService {
	return &CourseService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		HomeworkRepo: homeworkRepo,
	}
}

// Viewer is the authenticated identity asking for content.
type Viewer struct {
	UserID  uint
	IsAdmin bool
}

type CourseOutline struct {
	Course           model.Course    `json:"course"`
	Modules          []ModuleOutline `json:"modules"`
	CompletedLessons int             `json:"completedLessons"`
	TotalLessons     int             `json:"totalLessons"`
}

type ModuleOutline struct {
	ID                   uint            `json:"id"`
	Title                string          `json:"title"`
	Order                int             `json:"order"`
	HomeworkInstructions string          `json:"homeworkInstructions,omitempty"`
	HomeworkSubmitted    bool            `json:"homeworkSubmitted"`
	Completed            bool            `json:"completed"`
	Lessons              []LessonOutline `json:"lessons"`
}

type LessonOutline struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	Completed   bool   `json:"completed"`
	Unlocked    bool   `json:"unlocked"`
}

type LessonView struct {
	Lesson               model.Lesson `json:"lesson"`
	ModuleID             uint         `json:"moduleId"`
	HomeworkInstructions string       `json:"homeworkInstructions,omitempty"`
	Completed            bool         `json:"completed"`
	HomeworkSubmitted    bool         `json:"homeworkSubmitted"`
}

// learnerFacts is what a learner has done inside one course.
type learnerFacts struct {
	completed           progression.IDSet
	submitted           progression.IDSet
	modulesWithHomework progression.IDSet
}

// loadLearnerFacts always hits the database; progress is never cached.
func loadLearnerFacts(
	ctx context.Context,
	progressRepo *repository.ProgressRepository,
	homeworkRepo *repository.HomeworkRepository,
	userID uint,
	structure *model.CourseStructure,
) (*learnerFacts, error) {
	lessonIDs := structure.LessonIDs()

	completed, err := progressRepo.CompletedLessonIDs(ctx, userID, lessonIDs)
	if err != nil {
		return nil, err
	}

	submitted, err := homeworkRepo.SubmittedLessonIDs(ctx, userID, lessonIDs)
	if err != nil {
		return nil, err
	}

	submittedSet := progression.NewIDSet(submitted...)
	return &learnerFacts{
		completed:           progression.NewIDSet(completed...),
		submitted:           submittedSet,
		modulesWithHomework: progression.ModulesWithSubmission(structure.Nodes(), submittedSet),
	}, nil
}

func (s *CourseService) activeStructure(ctx context.Context) (*model.CourseStructure, error) {
	course, err := s.CourseRepo.ActiveCourse(ctx)
	if err != nil {
		return nil, err
	}
	return s.CourseRepo.Structure(ctx, course)
}

// GetOutline lists the active course with per-lesson access. Administrators
// see every lesson unlocked.
func (s *CourseService) GetOutline(ctx context.Context, viewer Viewer) (*CourseOutline, error) {
	structure, err := s.activeStructure(ctx)
	if err != nil {
		return nil, err
	}

	facts, err := loadLearnerFacts(ctx, s.ProgressRepo, s.HomeworkRepo, viewer.UserID, structure)
	if err != nil {
		return nil, err
	}

	access := progression.EvaluateAccess(structure.Nodes(), facts.completed, facts.modulesWithHomework)

	outline := &CourseOutline{
		Course:  structure.Course,
		Modules: make([]ModuleOutline, 0, len(structure.Modules)),
	}
	for _, m := range structure.Modules {
		mo := ModuleOutline{
			ID:                   m.Module.ID,
			Title:                m.Module.Title,
			Order:                m.Module.Order,
			HomeworkInstructions: m.Module.HomeworkInstructions,
			HomeworkSubmitted:    facts.modulesWithHomework.Has(m.Module.ID),
			Completed:            len(m.Lessons) > 0,
			Lessons:              make([]LessonOutline, 0, len(m.Lessons)),
		}
		for _, l := range m.Lessons {
			done := facts.completed.Has(l.ID)
			mo.Completed = mo.Completed && done
			if done {
				outline.CompletedLessons++
			}
			outline.TotalLessons++
			mo.Lessons = append(mo.Lessons, LessonOutline{
				ID:          l.ID,
				Title:       l.Title,
				Description: l.Description,
				Order:       l.Order,
				Completed:   done,
				Unlocked:    viewer.IsAdmin || access[l.ID],
			})
		}
		outline.Modules = append(outline.Modules, mo)
	}
	return outline, nil
}

// GetLesson returns a lesson of the active course with its content. Learners
// get util.ErrLessonLocked for lessons they cannot open yet.
func (s *CourseService) GetLesson(ctx context.Context, viewer Viewer, lessonID uint) (*LessonView, error) {
	structure, err := s.activeStructure(ctx)
	if err != nil {
		return nil, err
	}

	nodes := structure.Nodes()
	mi, li, ok := progression.Locate(nodes, lessonID)
	if !ok {
		return nil, util.ErrLessonNotFound
	}

	facts, err := loadLearnerFacts(ctx, s.ProgressRepo, s.HomeworkRepo, viewer.UserID, structure)
	if err != nil {
		return nil, err
	}

	if !viewer.IsAdmin && !progression.IsLessonUnlocked(nodes, mi, li, facts.completed, facts.modulesWithHomework) {
		return nil, util.ErrLessonLocked
	}

	module := structure.Modules[mi]
	return &LessonView{
		Lesson:               module.Lessons[li],
		ModuleID:             module.Module.ID,
		HomeworkInstructions: module.Module.HomeworkInstructions,
		Completed:            facts.completed.Has(lessonID),
		HomeworkSubmitted:    facts.modulesWithHomework.Has(module.Module.ID),
	}, nil
}

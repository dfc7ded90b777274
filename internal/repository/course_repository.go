package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"course_platform_backend/internal/model"
	"course_platform_backend/internal/util"
	"course_platform_backend/pkg/cache"
	"course_platform_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CourseRepository reads course structure through the cache. Cache failures
// degrade to a database read.
type CourseRepository struct {
	DB    *gorm.DB
	Cache cache.Store
	ttl   atomic.Int64
}

func NewCourseRepository(db *gorm.DB, store cache.Store, ttl time.Duration) *CourseRepository {
	r := &CourseRepository{DB: db, Cache: store}
	r.SetStructureTTL(ttl)
	return r
}

// SetStructureTTL applies to entries written after the call.
func (r *CourseRepository) SetStructureTTL(ttl time.Duration) {
	r.ttl.Store(int64(ttl))
}

func (r *CourseRepository) StructureTTL() time.Duration {
	return time.Duration(r.ttl.Load())
}

// ActiveCourse returns the earliest created course.
func (r *CourseRepository) ActiveCourse(ctx context.Context) (*model.Course, error) {
	key := cache.ActiveCourseKey()

	var course model.Course
	if r.readCache(ctx, key, &course) {
		return &course, nil
	}

	active, err := r.FreshActiveCourse(ctx)
	if err != nil {
		return nil, err
	}

	r.writeCache(ctx, key, active)
	return active, nil
}

// FreshActiveCourse bypasses the cache.
func (r *CourseRepository) FreshActiveCourse(ctx context.Context) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).Order("created_at ASC, id ASC").First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load active course: %w", err)
	}
	return &course, nil
}

func (r *CourseRepository) FindCourse(ctx context.Context, courseID uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, courseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", courseID, err)
	}
	return &course, nil
}

// Structure loads the modules and lessons of a course, both in display order.
func (r *CourseRepository) Structure(ctx context.Context, course *model.Course) (*model.CourseStructure, error) {
	key := cache.CourseStructureKey(course.ID)

	var structure model.CourseStructure
	if r.readCache(ctx, key, &structure) {
		return &structure, nil
	}

	fresh, err := r.FreshStructure(ctx, course)
	if err != nil {
		return nil, err
	}

	r.writeCache(ctx, key, fresh)
	return fresh, nil
}

// FreshStructure bypasses the cache. Decisions that cannot be undone, such as
// certificate issuance, read through here.
func (r *CourseRepository) FreshStructure(ctx context.Context, course *model.Course) (*model.CourseStructure, error) {
	var modules []model.Module
	if err := r.DB.WithContext(ctx).
		Where("course_id = ?", course.ID).
		Order("sort_order ASC, id ASC").
		Find(&modules).Error; err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}

	moduleIDs := make([]uint, len(modules))
	for i, m := range modules {
		moduleIDs[i] = m.ID
	}

	var lessons []model.Lesson
	if len(moduleIDs) > 0 {
		if err := r.DB.WithContext(ctx).
			Where("module_id IN ?", moduleIDs).
			Order("sort_order ASC, id ASC").
			Find(&lessons).Error; err != nil {
			return nil, fmt.Errorf("load lessons: %w", err)
		}
	}

	byModule := make(map[uint][]model.Lesson, len(modules))
	for _, l := range lessons {
		byModule[l.ModuleID] = append(byModule[l.ModuleID], l)
	}

	structure := &model.CourseStructure{
		Course:  *course,
		Modules: make([]model.ModuleStructure, len(modules)),
	}
	for i, m := range modules {
		structure.Modules[i] = model.ModuleStructure{Module: m, Lessons: byModule[m.ID]}
	}
	return structure, nil
}

func (r *CourseRepository) FindLesson(ctx context.Context, lessonID uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).First(&lesson, lessonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLessonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load lesson %d: %w", lessonID, err)
	}
	return &lesson, nil
}

func (r *CourseRepository) readCache(ctx context.Context, key string, dest interface{}) bool {
	ok, err := cache.GetJSON(ctx, r.Cache, key, dest)
	if err != nil {
		logger.Log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (r *CourseRepository) writeCache(ctx context.Context, key string, value interface{}) {
	if err := cache.SetJSON(ctx, r.Cache, key, value, r.StructureTTL()); err != nil {
		logger.Log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

package testutil

import (
	"testing"
	"time"

	"course_platform_backend/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ModuleSpec describes a module to seed: its display order and lesson titles.
type ModuleSpec struct {
	Order   int
	Lessons []string
}

// Seeded gives access to the rows created by SeedCourse, keyed by lesson title.
type Seeded struct {
	Course  model.Course
	Modules []model.Module
	Lessons map[string]model.Lesson
}

// SeedCourse inserts a course with the given modules. Lesson orders are spaced
// by ten so tests also exercise non-contiguous ordering.
func SeedCourse(t *testing.T, db *gorm.DB, title string, createdAt time.Time, modules ...ModuleSpec) *Seeded {
	t.Helper()

	course := model.Course{Title: title, Description: title + " description"}
	course.CreatedAt = createdAt
	require.NoError(t, db.Create(&course).Error)

	out := &Seeded{Course: course, Lessons: map[string]model.Lesson{}}
	for _, spec := range modules {
		m := model.Module{CourseID: course.ID, Title: title, Order: spec.Order}
		require.NoError(t, db.Create(&m).Error)
		out.Modules = append(out.Modules, m)

		for i, name := range spec.Lessons {
			l := model.Lesson{ModuleID: m.ID, Order: (i + 1) * 10, Title: name}
			require.NoError(t, db.Create(&l).Error)
			out.Lessons[name] = l
		}
	}
	return out
}

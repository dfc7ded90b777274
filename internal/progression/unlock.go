// Package progression holds the pure rules that gate lesson access and
// certificate eligibility. Nothing here touches storage.
package progression

// IDSet is a set of record identifiers.
type IDSet map[uint]struct{}

func NewIDSet(ids ...uint) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(id uint) {
	s[id] = struct{}{}
}

func (s IDSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

// ModuleNode is one module of a course with its lesson IDs in display order.
type ModuleNode struct {
	ID        uint   `json:"id"`
	LessonIDs []uint `json:"lessonIds"`
}

// ModuleHasSubmission reports whether any submitted lesson belongs to the
// module. Both the unlock gate and eligibility rely on this definition.
func ModuleHasSubmission(module ModuleNode, submittedLessons IDSet) bool {
	for _, id := range module.LessonIDs {
		if submittedLessons.Has(id) {
			return true
		}
	}
	return false
}

// ModulesWithSubmission returns the IDs of modules that satisfy
// ModuleHasSubmission.
func ModulesWithSubmission(modules []ModuleNode, submittedLessons IDSet) IDSet {
	out := make(IDSet)
	for _, m := range modules {
		if ModuleHasSubmission(m, submittedLessons) {
			out.Add(m.ID)
		}
	}
	return out
}

// IsLessonUnlocked decides access for the lesson at modules[moduleIndex].LessonIDs[lessonIndex].
// Out-of-range positions are locked.
func IsLessonUnlocked(modules []ModuleNode, moduleIndex, lessonIndex int, completed, modulesWithHomework IDSet) bool {
	if moduleIndex < 0 || moduleIndex >= len(modules) {
		return false
	}
	lessons := modules[moduleIndex].LessonIDs
	if lessonIndex < 0 || lessonIndex >= len(lessons) {
		return false
	}

	if moduleIndex == 0 && lessonIndex == 0 {
		return true
	}

	if lessonIndex > 0 {
		return completed.Has(lessons[lessonIndex-1])
	}

	prev := modules[moduleIndex-1]
	if !modulesWithHomework.Has(prev.ID) {
		return false
	}
	for _, id := range prev.LessonIDs {
		if !completed.Has(id) {
			return false
		}
	}
	return true
}

// EvaluateAccess computes the unlock state of every lesson in the course.
func EvaluateAccess(modules []ModuleNode, completed, modulesWithHomework IDSet) map[uint]bool {
	out := make(map[uint]bool)
	for mi, m := range modules {
		for li, id := range m.LessonIDs {
			out[id] = IsLessonUnlocked(modules, mi, li, completed, modulesWithHomework)
		}
	}
	return out
}

// Locate returns the position of a lesson within the course.
func Locate(modules []ModuleNode, lessonID uint) (moduleIndex, lessonIndex int, ok bool) {
	for mi, m := range modules {
		for li, id := range m.LessonIDs {
			if id == lessonID {
				return mi, li, true
			}
		}
	}
	return -1, -1, false
}

package progression

type Status string

const (
	StatusCourseNotConfigured Status = "COURSE_NOT_CONFIGURED"
	StatusNotEligible         Status = "NOT_ELIGIBLE"
	StatusEligible            Status = "ELIGIBLE"
)

// Eligibility is the tagged outcome of a certificate eligibility check.
type Eligibility struct {
	Status              Status `json:"status"`
	MissingLessonsCount int    `json:"missingLessonsCount"`
	MissingModulesCount int    `json:"missingModulesCount"`
	TotalLessonsCount   int    `json:"totalLessonsCount"`
	TotalModulesCount   int    `json:"totalModulesCount"`
}

func (e Eligibility) Eligible() bool {
	return e.Status == StatusEligible
}

func CourseNotConfigured() Eligibility {
	return Eligibility{Status: StatusCourseNotConfigured}
}

// Facts are the learner's completed and submitted lesson IDs. Either set may
// include lessons from other courses; they are ignored.
type Facts struct {
	CompletedLessons IDSet
	SubmittedLessons IDSet
}

// Evaluate decides certificate eligibility. Missing lessons are reported before
// missing homework: while lessons are outstanding every module counts as
// missing homework.
func Evaluate(modules []ModuleNode, facts Facts) Eligibility {
	result := Eligibility{TotalModulesCount: len(modules)}

	completed := 0
	for _, m := range modules {
		result.TotalLessonsCount += len(m.LessonIDs)
		for _, id := range m.LessonIDs {
			if facts.CompletedLessons.Has(id) {
				completed++
			}
		}
	}
	result.MissingLessonsCount = result.TotalLessonsCount - completed

	if result.MissingLessonsCount > 0 {
		result.MissingModulesCount = result.TotalModulesCount
		result.Status = StatusNotEligible
		return result
	}

	withSubmission := ModulesWithSubmission(modules, facts.SubmittedLessons)
	result.MissingModulesCount = result.TotalModulesCount - len(withSubmission)

	// A course without lessons never qualifies; issuance is irreversible.
	if result.MissingModulesCount == 0 && result.TotalLessonsCount > 0 {
		result.Status = StatusEligible
	} else {
		result.Status = StatusNotEligible
	}
	return result
}

package service

import (
	"bytes"
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"course_platform_backend/internal/config"
	"course_platform_backend/internal/model"
	"course_platform_backend/internal/progression"
	"course_platform_backend/internal/repository"
	"course_platform_backend/internal/testutil"
	"course_platform_backend/internal/util"
	"course_platform_backend/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var t0 = time.Date(2026, 4, 7, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db           *gorm.DB
	store        *cache.MemoryStore
	courses      *CourseService
	progress     *ProgressService
	eligibility  *EligibilityService
	certificates *CertificateService
	review       *HomeworkReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	store := cache.NewMemoryStore()

	courseRepo := repository.NewCourseRepository(db, store, time.Hour)
	progressRepo := repository.NewProgressRepository(db)
	homeworkRepo := repository.NewHomeworkRepository(db)
	certRepo := repository.NewCertificateRepository(db)

	eligibility := NewEligibilityService(courseRepo, progressRepo, homeworkRepo)
	f := &fixture{
		db:           db,
		store:        store,
		courses:      NewCourseService(courseRepo, progressRepo, homeworkRepo),
		progress:     NewProgressService(courseRepo, progressRepo, homeworkRepo, store),
		eligibility:  eligibility,
		certificates: NewCertificateService(eligibility, courseRepo, certRepo, config.CertificateConfig{NumberPrefix: "COURSE", MaxAttempts: 3}),
		review:       NewHomeworkReviewService(homeworkRepo, store),
	}
	f.progress.Now = func() time.Time { return t0 }
	f.certificates.Now = func() time.Time { return t0 }
	return f
}

// seedScenario builds module A (A1, A2) and module B (B1).
func seedScenario(t *testing.T, db *gorm.DB) *testutil.Seeded {
	return testutil.SeedCourse(t, db, "Go Fundamentals", t0,
		testutil.ModuleSpec{Order: 1, Lessons: []string{"A1", "A2"}},
		testutil.ModuleSpec{Order: 2, Lessons: []string{"B1"}},
	)
}

func unlockedByTitle(t *testing.T, outline *CourseOutline) map[string]bool {
	t.Helper()
	out := map[string]bool{}
	for _, m := range outline.Modules {
		for _, l := range m.Lessons {
			out[l.Title] = l.Unlocked
		}
	}
	return out
}

var numberPattern = regexp.MustCompile(`^COURSE-\d{6}-[0-9A-F]{4}$`)

func TestEndToEndProgression(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeded := seedScenario(t, f.db)
	learner := Viewer{UserID: 42}
	a1, a2, b1 := seeded.Lessons["A1"].ID, seeded.Lessons["A2"].ID, seeded.Lessons["B1"].ID

	assertState := func(want map[string]bool) {
		t.Helper()
		outline, err := f.courses.GetOutline(ctx, learner)
		require.NoError(t, err)
		assert.Equal(t, want, unlockedByTitle(t, outline))
	}
	assertNoCertificate := func() {
		t.Helper()
		res, err := f.certificates.GetOrCreateCertificate(ctx, learner.UserID)
		require.NoError(t, err)
		assert.Nil(t, res.Certificate)
		assert.Nil(t, res.CourseTitle)
	}

	assertState(map[string]bool{"A1": true, "A2": false, "B1": false})
	assertNoCertificate()

	_, err := f.progress.MarkLessonComplete(ctx, learner.UserID, a1, true)
	require.NoError(t, err)
	assertState(map[string]bool{"A1": true, "A2": true, "B1": false})

	_, err = f.progress.MarkLessonComplete(ctx, learner.UserID, a2, true)
	require.NoError(t, err)
	assertState(map[string]bool{"A1": true, "A2": true, "B1": false})
	assertNoCertificate()

	_, err = f.progress.SubmitHomework(ctx, learner.UserID, SubmitHomeworkRequest{LessonID: a2, Content: "my answer"})
	require.NoError(t, err)
	assertState(map[string]bool{"A1": true, "A2": true, "B1": true})

	result, err := f.eligibility.CheckEligibility(ctx, learner.UserID)
	require.NoError(t, err)
	assert.Equal(t, progression.Eligibility{
		Status: progression.StatusNotEligible, MissingLessonsCount: 1, MissingModulesCount: 2,
		TotalLessonsCount: 3, TotalModulesCount: 2,
	}, result)

	_, err = f.progress.MarkLessonComplete(ctx, learner.UserID, b1, true)
	require.NoError(t, err)

	result, err = f.eligibility.CheckEligibility(ctx, learner.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MissingModulesCount)
	assertNoCertificate()

	_, err = f.progress.SubmitHomework(ctx, learner.UserID, SubmitHomeworkRequest{LessonID: b1, Content: "done"})
	require.NoError(t, err)

	result, err = f.eligibility.CheckEligibility(ctx, learner.UserID)
	require.NoError(t, err)
	assert.True(t, result.Eligible())

	first, err := f.certificates.GetOrCreateCertificate(ctx, learner.UserID)
	require.NoError(t, err)
	require.NotNil(t, first.Certificate)
	assert.Regexp(t, numberPattern, first.Certificate.Number)
	assert.Contains(t, first.Certificate.Number, "-202604-")
	require.NotNil(t, first.CourseTitle)
	assert.Equal(t, "Go Fundamentals", *first.CourseTitle)

	second, err := f.certificates.GetOrCreateCertificate(ctx, learner.UserID)
	require.NoError(t, err)
	assert.Equal(t, first.Certificate.Number, second.Certificate.Number)
	assert.Equal(t, first.Certificate.ID, second.Certificate.ID)

	var count int64
	require.NoError(t, f.db.Model(&model.Certificate{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestOutline_AdminSeesEverythingUnlocked(t *testing.T) {
	f := newFixture(t)
	seedScenario(t, f.db)

	outline, err := f.courses.GetOutline(context.Background(), Viewer{UserID: 1, IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"A1": true, "A2": true, "B1": true}, unlockedByTitle(t, outline))
	assert.Equal(t, 3, outline.TotalLessons)
	assert.Zero(t, outline.CompletedLessons)
}

func TestOutline_ModuleFlags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeded := seedScenario(t, f.db)

	for _, name := range []string{"A1", "A2"} {
		_, err := f.progress.MarkLessonComplete(ctx, 5, seeded.Lessons[name].ID, true)
		require.NoError(t, err)
	}
	_, err := f.progress.SubmitHomework(ctx, 5, SubmitHomeworkRequest{LessonID: seeded.Lessons["A1"].ID, Content: "x"})
	require.NoError(t, err)

	outline, err := f.courses.GetOutline(ctx, Viewer{UserID: 5})
	require.NoError(t, err)
	require.Len(t, outline.Modules, 2)
	assert.True(t, outline.Modules[0].Completed)
	assert.True(t, outline.Modules[0].HomeworkSubmitted)
	assert.False(t, outline.Modules[1].Completed)
	assert.False(t, outline.Modules[1].HomeworkSubmitted)
	assert.Equal(t, 2, outline.CompletedLessons)
}

func TestOutline_NoCourse(t *testing.T) {
	f := newFixture(t)
	_, err := f.courses.GetOutline(context.Background(), Viewer{UserID: 1})
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestGetLesson(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeded := seedScenario(t, f.db)
	a1, a2 := seeded.Lessons["A1"].ID, seeded.Lessons["A2"].ID

	view, err := f.courses.GetLesson(ctx, Viewer{UserID: 3}, a1)
	require.NoError(t, err)
	assert.Equal(t, "A1", view.Lesson.Title)
	assert.False(t, view.Completed)

	_, err = f.courses.GetLesson(ctx, Viewer{UserID: 3}, a2)
	assert.ErrorIs(t, err, util.ErrLessonLocked)

	view, err = f.courses.GetLesson(ctx, Viewer{UserID: 3, IsAdmin: true}, a2)
	require.NoError(t, err)
	assert.Equal(t, "A2", view.Lesson.Title)

	_, err = f.courses.GetLesson(ctx, Viewer{UserID: 3}, 9999)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}

func TestMutationsInvalidateCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeded := seedScenario(t, f.db)

	_, err := f.courses.GetOutline(ctx, Viewer{UserID: 1})
	require.NoError(t, err)
	require.NoError(t, f.store.Set(ctx, "progress:1", []byte("stale"), time.Hour))
	require.NotZero(t, f.store.Len())

	_, err = f.progress.MarkLessonComplete(ctx, 1, seeded.Lessons["A1"].ID, true)
	require.NoError(t, err)
	assert.Zero(t, f.store.Len())

	_, err = f.courses.GetOutline(ctx, Viewer{UserID: 1})
	require.NoError(t, err)
	require.NotZero(t, f.store.Len())

	_, err = f.progress.SubmitHomework(ctx, 1, SubmitHomeworkRequest{LessonID: seeded.Lessons["A1"].ID, Content: "x"})
	require.NoError(t, err)
	assert.Zero(t, f.store.Len())
}

func TestMutationValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeded := seedScenario(t, f.db)

	_, err := f.progress.MarkLessonComplete(ctx, 1, 0, true)
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.progress.MarkLessonComplete(ctx, 1, 9999, true)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	_, err = f.progress.SubmitHomework(ctx, 1, SubmitHomeworkRequest{Content: "x"})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.progress.SubmitHomework(ctx, 1, SubmitHomeworkRequest{LessonID: seeded.Lessons["A1"].ID, Content: "   "})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.progress.SubmitHomework(ctx, 1, SubmitHomeworkRequest{LessonID: 9999, Content: "x"})
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	var count int64
	require.NoError(t, f.db.Model(&model.HomeworkSubmission{}).Count(&count).Error)
	assert.Zero(t, count, "no partial writes")
}

func TestEligibility_NoCourseConfigured(t *testing.T) {
	f := newFixture(t)
	result, err := f.eligibility.CheckEligibility(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, progression.CourseNotConfigured(), result)

	res, err := f.certificates.GetOrCreateCertificate(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, res.Certificate)
}

func TestEligibility_IgnoresCachedStructure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeded := testutil.SeedCourse(t, f.db, "Tiny", t0, testutil.ModuleSpec{Order: 1, Lessons: []string{"L1"}})
	l1 := seeded.Lessons["L1"].ID

	_, err := f.progress.MarkLessonComplete(ctx, 1, l1, true)
	require.NoError(t, err)
	_, err = f.progress.SubmitHomework(ctx, 1, SubmitHomeworkRequest{LessonID: l1, Content: "x"})
	require.NoError(t, err)

	// warm the structure cache, then add a lesson behind its back
	_, err = f.courses.GetOutline(ctx, Viewer{UserID: 1})
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&model.Lesson{ModuleID: seeded.Modules[0].ID, Order: 99, Title: "L2"}).Error)

	result, err := f.eligibility.CheckEligibility(ctx, 1)
	require.NoError(t, err)
	assert.False(t, result.Eligible())
	assert.Equal(t, 1, result.MissingLessonsCount)
}

func TestCertificate_ConcurrentIssuanceCreatesOneRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeded := testutil.SeedCourse(t, f.db, "Tiny", t0, testutil.ModuleSpec{Order: 1, Lessons: []string{"L1"}})
	l1 := seeded.Lessons["L1"].ID

	_, err := f.progress.MarkLessonComplete(ctx, 7, l1, true)
	require.NoError(t, err)
	_, err = f.progress.SubmitHomework(ctx, 7, SubmitHomeworkRequest{LessonID: l1, Content: "x"})
	require.NoError(t, err)

	const callers = 8
	numbers := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.certificates.GetOrCreateCertificate(ctx, 7)
			errs[i] = err
			if err == nil && res.Certificate != nil {
				numbers[i] = res.Certificate.Number
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, numbers[0], numbers[i])
	}

	var count int64
	require.NoError(t, f.db.Model(&model.Certificate{}).Where("user_id = ?", 7).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// gatedReader blocks the first read until release is closed.
type gatedReader struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *gatedReader) Read(p []byte) (int, error) {
	r.once.Do(func() { close(r.started) })
	<-r.release
	for i := range p {
		p[i] = 0x2A
	}
	return len(p), nil
}

func TestCertificate_CancelledCallerDoesNotFailOthers(t *testing.T) {
	f := newFixture(t)
	seeded := testutil.SeedCourse(t, f.db, "Tiny", t0, testutil.ModuleSpec{Order: 1, Lessons: []string{"L1"}})
	l1 := seeded.Lessons["L1"].ID

	bg := context.Background()
	_, err := f.progress.MarkLessonComplete(bg, 7, l1, true)
	require.NoError(t, err)
	_, err = f.progress.SubmitHomework(bg, 7, SubmitHomeworkRequest{LessonID: l1, Content: "x"})
	require.NoError(t, err)

	gate := &gatedReader{started: make(chan struct{}), release: make(chan struct{})}
	f.certificates.Rand = gate

	type outcome struct {
		res *CertificateResult
		err error
	}
	ctxA, cancelA := context.WithCancel(bg)
	doneA := make(chan outcome, 1)
	go func() {
		res, err := f.certificates.GetOrCreateCertificate(ctxA, 7)
		doneA <- outcome{res, err}
	}()

	select {
	case <-gate.started:
	case <-time.After(5 * time.Second):
		t.Fatal("issuance never started")
	}

	doneB := make(chan outcome, 1)
	go func() {
		res, err := f.certificates.GetOrCreateCertificate(bg, 7)
		doneB <- outcome{res, err}
	}()
	// let B join the in-flight issuance
	time.Sleep(100 * time.Millisecond)

	cancelA()
	select {
	case got := <-doneA:
		assert.ErrorIs(t, got.err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(gate.release)
	select {
	case got := <-doneB:
		require.NoError(t, got.err)
		require.NotNil(t, got.res.Certificate)
		assert.Equal(t, "COURSE-202604-2A2A", got.res.Certificate.Number)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller did not return")
	}

	var count int64
	require.NoError(t, f.db.Model(&model.Certificate{}).Where("user_id = ?", 7).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCertificate_InsertConflictReturnsExisting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeded := testutil.SeedCourse(t, f.db, "Tiny", t0, testutil.ModuleSpec{Order: 1, Lessons: []string{"L1"}})

	// another process won the race between the existence check and the insert
	winner := &model.Certificate{UserID: 9, CourseID: seeded.Course.ID, Number: "COURSE-202604-BEEF", IssuedAt: t0}
	require.NoError(t, f.db.Create(winner).Error)

	cert, err := f.certificates.issue(ctx, 9, seeded.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, "COURSE-202604-BEEF", cert.Number)
}

func TestCertificate_NumberCollisionRetries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeded := testutil.SeedCourse(t, f.db, "Tiny", t0, testutil.ModuleSpec{Order: 1, Lessons: []string{"L1"}})

	taken := &model.Certificate{UserID: 1, CourseID: seeded.Course.ID, Number: "COURSE-202604-0001", IssuedAt: t0}
	require.NoError(t, f.db.Create(taken).Error)

	// first draw collides with the existing number, second is free
	f.certificates.Rand = bytes.NewReader([]byte{0x00, 0x01, 0xAB, 0xCD})
	cert, err := f.certificates.issue(ctx, 2, seeded.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, "COURSE-202604-ABCD", cert.Number)

	// every draw collides
	f.certificates.Rand = bytes.NewReader([]byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x01})
	_, err = f.certificates.issue(ctx, 3, seeded.Course.ID)
	assert.Error(t, err)
}

func TestCertificate_DocumentAndVerify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeded := testutil.SeedCourse(t, f.db, "Tiny", t0, testutil.ModuleSpec{Order: 1, Lessons: []string{"L1"}})
	require.NoError(t, f.db.Model(&model.Course{}).Where("id = ?", seeded.Course.ID).
		Update("completion_message", "Well done {{.RecipientName}} on {{.CourseTitle}} ({{.CertificateNumber}})").Error)
	l1 := seeded.Lessons["L1"].ID

	doc, err := f.certificates.Document(ctx, 4, "Ada")
	require.NoError(t, err)
	assert.Nil(t, doc)

	_, err = f.progress.MarkLessonComplete(ctx, 4, l1, true)
	require.NoError(t, err)
	_, err = f.progress.SubmitHomework(ctx, 4, SubmitHomeworkRequest{LessonID: l1, Content: "x"})
	require.NoError(t, err)

	doc, err = f.certificates.Document(ctx, 4, "Ada")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Ada", doc.RecipientName)
	assert.Equal(t, "Tiny", doc.CourseTitle)
	assert.Regexp(t, numberPattern, doc.CertificateNumber)
	assert.Equal(t, "Well done Ada on Tiny ("+doc.CertificateNumber+")", doc.CompletionMessage)

	v, err := f.certificates.Verify(ctx, doc.CertificateNumber)
	require.NoError(t, err)
	assert.Equal(t, "Tiny", v.CourseTitle)

	_, err = f.certificates.Verify(ctx, "COURSE-000000-0000")
	assert.ErrorIs(t, err, util.ErrCertificateNotFound)
}

func TestRenderCompletionMessage_BadTemplate(t *testing.T) {
	_, err := renderCompletionMessage("{{.Nope}}", &CertificateDocument{})
	assert.Error(t, err)

	_, err = renderCompletionMessage("{{", &CertificateDocument{})
	assert.Error(t, err)
}

func TestHomeworkReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seeded := seedScenario(t, f.db)

	sub, err := f.progress.SubmitHomework(ctx, 1, SubmitHomeworkRequest{LessonID: seeded.Lessons["A1"].ID, Content: "answer"})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionSubmitted, sub.Status)

	page, err := f.review.List(ctx, "SUBMITTED", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Limit)

	_, err = f.review.List(ctx, "BOGUS", 1, 10)
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.review.Review(ctx, 99, sub.ID, ReviewRequest{Status: model.SubmissionSubmitted})
	assert.ErrorIs(t, err, util.ErrValidation)

	reviewed, err := f.review.Review(ctx, 99, sub.ID, ReviewRequest{Status: model.SubmissionReviewed, Feedback: "close"})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionReviewed, reviewed.Status)
	require.NotNil(t, reviewed.ReviewerID)
	assert.Equal(t, uint(99), *reviewed.ReviewerID)

	_, err = f.review.Review(ctx, 99, sub.ID, ReviewRequest{Status: model.SubmissionApproved})
	require.NoError(t, err)

	_, err = f.review.Review(ctx, 99, sub.ID, ReviewRequest{Status: model.SubmissionReviewed})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.review.Review(ctx, 99, 9999, ReviewRequest{Status: model.SubmissionApproved})
	assert.ErrorIs(t, err, util.ErrSubmissionNotFound)

	mine, err := f.progress.ListSubmissions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, model.SubmissionApproved, mine[0].Status)
}

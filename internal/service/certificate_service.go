package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/template"
	"time"

	"course_platform_backend/internal/config"
	"course_platform_backend/internal/model"
	"course_platform_backend/internal/repository"
	"course_platform_backend/internal/util"
	"course_platform_backend/pkg/logger"
	"course_platform_backend/pkg/monitoring"
	"course_platform_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CertificateService issues at most one certificate per (learner, course).
// Concurrent calls for one learner share a single issuance inside the process;
// across processes the unique index on certificates decides and the loser
// re-reads the winner's row.
type CertificateService struct {
	Eligibility     *EligibilityService
	CourseRepo      *repository.CourseRepository
	CertificateRepo *repository.CertificateRepository
	Cfg             config.CertificateConfig
	Now             func() time.Time
	Rand            io.Reader

	group singleflight.Group
}

func NewCertificateService(
	eligibility *EligibilityService,
	courseRepo *repository.CourseRepository,
	certificateRepo *repository.CertificateRepository,
	cfg config.CertificateConfig,
) *CertificateService {
	return &CertificateService{
		Eligibility:     eligibility,
		CourseRepo:      courseRepo,
		CertificateRepo: certificateRepo,
		Cfg:             cfg,
		Now:             time.Now,
		Rand:            rand.Reader,
	}
}

// CertificateResult is empty while the learner is not yet eligible.
type CertificateResult struct {
	Certificate *model.Certificate `json:"certificate"`
	CourseTitle *string            `json:"courseTitle"`
}

// CertificateDocument carries the fields the external renderer fills into the
// certificate template.
type CertificateDocument struct {
	RecipientName     string    `json:"recipientName"`
	CourseTitle       string    `json:"courseTitle"`
	CertificateNumber string    `json:"certificateNumber"`
	IssuedAt          time.Time `json:"issuedAt"`
	CompletionMessage string    `json:"completionMessage,omitempty"`
}

type CertificateVerification struct {
	Number      string    `json:"number"`
	CourseTitle string    `json:"courseTitle"`
	IssuedAt    time.Time `json:"issuedAt"`
}

func (s *CertificateService) GetOrCreateCertificate(ctx context.Context, userID uint) (*CertificateResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "CertificateService.GetOrCreateCertificate")
	defer span.End()

	eligibility, course, err := s.Eligibility.check(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !eligibility.Eligible() {
		return &CertificateResult{}, nil
	}

	// 共享的签发不随任一调用方取消，每个调用方只等待自己的 ctx
	key := strconv.FormatUint(uint64(userID), 10) + ":" + strconv.FormatUint(uint64(course.ID), 10)
	issueCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.issue(issueCtx, userID, course.ID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return nil, ctx.Err()
	}
	if res.Err != nil {
		span.RecordError(res.Err)
		return nil, res.Err
	}

	cert := res.Val.(*model.Certificate)
	span.SetAttributes(attribute.String("certificate.number", cert.Number))
	title := course.Title
	return &CertificateResult{Certificate: cert, CourseTitle: &title}, nil
}

func (s *CertificateService) issue(ctx context.Context, userID, courseID uint) (*model.Certificate, error) {
	existing, err := s.CertificateRepo.FindByUserAndCourse(ctx, userID, courseID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, util.ErrCertificateNotFound) {
		return nil, err
	}

	attempts := s.Cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		now := s.Now()
		number, err := s.generateNumber(now)
		if err != nil {
			return nil, err
		}

		cert := &model.Certificate{
			UserID:   userID,
			CourseID: courseID,
			Number:   number,
			IssuedAt: now,
		}
		err = s.CertificateRepo.Create(ctx, cert)
		if err == nil {
			monitoring.CertificatesIssued.Inc()
			logger.Log.Info("certificate issued",
				zap.Uint("learner_id", userID),
				zap.Uint("course_id", courseID),
				zap.String("certificate_number", number),
			)
			return cert, nil
		}
		if !errors.Is(err, util.ErrCertificateConflict) {
			return nil, err
		}

		monitoring.CertificateConflicts.Inc()
		existing, rerr := s.CertificateRepo.FindByUserAndCourse(ctx, userID, courseID)
		if rerr == nil {
			return existing, nil
		}
		if !errors.Is(rerr, util.ErrCertificateNotFound) {
			return nil, rerr
		}
		// the number collided with another learner's certificate
		logger.Log.Warn("certificate number collision",
			zap.String("certificate_number", number),
			zap.Int("attempt", i+1),
		)
	}

	return nil, fmt.Errorf("issue certificate: no free number after %d attempts", attempts)
}

// generateNumber formats PREFIX-YYYYMM-XXXX with four random uppercase hex digits.
func (s *CertificateService) generateNumber(now time.Time) (string, error) {
	var buf [2]byte
	if _, err := io.ReadFull(s.Rand, buf[:]); err != nil {
		return "", fmt.Errorf("generate certificate number: %w", err)
	}

	prefix := s.Cfg.NumberPrefix
	if prefix == "" {
		prefix = "COURSE"
	}
	return fmt.Sprintf("%s-%s-%04X", prefix, now.Format("200601"), binary.BigEndian.Uint16(buf[:])), nil
}

// Document returns the renderer input for the learner's certificate, issuing it
// if needed. It is nil while the learner is not eligible.
func (s *CertificateService) Document(ctx context.Context, userID uint, recipientName string) (*CertificateDocument, error) {
	result, err := s.GetOrCreateCertificate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if result.Certificate == nil {
		return nil, nil
	}

	course, err := s.CourseRepo.FindCourse(ctx, result.Certificate.CourseID)
	if err != nil {
		return nil, err
	}

	doc := &CertificateDocument{
		RecipientName:     recipientName,
		CourseTitle:       course.Title,
		CertificateNumber: result.Certificate.Number,
		IssuedAt:          result.Certificate.IssuedAt,
	}
	if course.CompletionMessage != "" {
		msg, err := renderCompletionMessage(course.CompletionMessage, doc)
		if err != nil {
			// fall back to the raw message
			logger.Log.Warn("completion message template failed",
				zap.Uint("course_id", course.ID),
				zap.Error(err),
			)
			msg = course.CompletionMessage
		}
		doc.CompletionMessage = msg
	}
	return doc, nil
}

// renderCompletionMessage fills {{.RecipientName}}, {{.CourseTitle}},
// {{.CertificateNumber}} and {{.IssuedAt}} placeholders.
func renderCompletionMessage(text string, doc *CertificateDocument) (string, error) {
	tmpl, err := template.New("completion").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Verify looks a certificate up by its public number.
func (s *CertificateService) Verify(ctx context.Context, number string) (*CertificateVerification, error) {
	cert, err := s.CertificateRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	course, err := s.CourseRepo.FindCourse(ctx, cert.CourseID)
	if err != nil {
		return nil, err
	}
	return &CertificateVerification{
		Number:      cert.Number,
		CourseTitle: course.Title,
		IssuedAt:    cert.IssuedAt,
	}, nil
}

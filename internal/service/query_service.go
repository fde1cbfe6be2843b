package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
)

type queryTeacherStore interface {
	RequireByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Teacher, error)
}

type queryStudentStore interface {
	FindByIDs(ctx context.Context, ids []int64) ([]models.Student, error)
	FindByEmails(ctx context.Context, emails []string) ([]models.Student, error)
}

type queryRegisterStore interface {
	StudentIDsOfTeacher(ctx context.Context, teacherID int64) ([]int64, error)
	StudentIDsOfTeachers(ctx context.Context, teacherIDs []int64) ([]int64, error)
}

type mentionExtractor interface {
	Extract(text string) []string
}

// QueryService answers the read-only roster questions.
type QueryService struct {
	teachers  queryTeacherStore
	students  queryStudentStore
	registers queryRegisterStore
	mentions  mentionExtractor
	cache     queryCache
	logger    *zap.Logger
}

// NewQueryService constructs a QueryService. cache may be nil.
func NewQueryService(teachers queryTeacherStore, students queryStudentStore, registers queryRegisterStore, mentions mentionExtractor, cache queryCache, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{
		teachers:  teachers,
		students:  students,
		registers: registers,
		mentions:  mentions,
		cache:     cache,
		logger:    logger,
	}
}

// FindCommonStudents returns the emails of students registered to every
// given teacher. Each teacher must exist.
func (s *QueryService) FindCommonStudents(ctx context.Context, teacherEmails []string) ([]string, error) {
	key := commonStudentsCacheKey(teacherEmails)
	var cached []string
	if s.cached(ctx, key, &cached) {
		return cached, nil
	}

	teacherIDs := make([]int64, 0, len(teacherEmails))
	for _, email := range teacherEmails {
		teacher, err := s.teachers.RequireByEmail(ctx, nil, email)
		if err != nil {
			logUnexpected(s.logger, "resolve teacher failed", err, zap.String("teacher", email))
			return nil, err
		}
		teacherIDs = append(teacherIDs, teacher.ID)
	}

	studentIDs, err := s.registers.StudentIDsOfTeachers(ctx, teacherIDs)
	if err != nil {
		logUnexpected(s.logger, "list common students failed", err)
		return nil, err
	}
	students, err := s.students.FindByIDs(ctx, studentIDs)
	if err != nil {
		logUnexpected(s.logger, "load common students failed", err)
		return nil, err
	}

	emails := make([]string, 0, len(students))
	for _, student := range students {
		emails = append(emails, student.Email)
	}
	s.store(ctx, key, emails)
	return emails, nil
}

// GetNotificationRecipients returns the emails that should receive a
// notification from the teacher: its registered students plus any existing
// student mentioned in text, minus suspended students, each once.
func (s *QueryService) GetNotificationRecipients(ctx context.Context, teacherEmail, text string) ([]string, error) {
	key := recipientsCacheKey(teacherEmail, text)
	var cached []string
	if s.cached(ctx, key, &cached) {
		return cached, nil
	}

	teacher, err := s.teachers.RequireByEmail(ctx, nil, teacherEmail)
	if err != nil {
		logUnexpected(s.logger, "resolve teacher failed", err, zap.String("teacher", teacherEmail))
		return nil, err
	}

	registeredIDs, err := s.registers.StudentIDsOfTeacher(ctx, teacher.ID)
	if err != nil {
		logUnexpected(s.logger, "list registered students failed", err)
		return nil, err
	}
	registered, err := s.students.FindByIDs(ctx, registeredIDs)
	if err != nil {
		logUnexpected(s.logger, "load registered students failed", err)
		return nil, err
	}

	// Mentions of unknown students drop out here.
	tagged, err := s.students.FindByEmails(ctx, s.mentions.Extract(text))
	if err != nil {
		logUnexpected(s.logger, "load mentioned students failed", err)
		return nil, err
	}

	candidates := append(registered, tagged...)
	seen := make(map[string]struct{}, len(candidates))
	recipients := make([]string, 0, len(candidates))
	for _, student := range candidates {
		if student.IsSuspended {
			continue
		}
		if _, ok := seen[student.Email]; ok {
			continue
		}
		seen[student.Email] = struct{}{}
		recipients = append(recipients, student.Email)
	}

	s.store(ctx, key, recipients)
	return recipients, nil
}

func (s *QueryService) cached(ctx context.Context, key string, dest *[]string) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	return err == nil && hit
}

func (s *QueryService) store(ctx context.Context, key string, emails []string) {
	if s.cache == nil {
		return
	}
	// Failures are logged by the cache service.
	_ = s.cache.Set(ctx, key, emails, 0)
}

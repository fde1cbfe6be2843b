package service

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
)

type registrationTeacherStore interface {
	CreateIfNotExists(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) (int64, error)
}

type registrationStudentStore interface {
	CreateIfNotExists(ctx context.Context, exec sqlx.ExtContext, student *models.Student) (int64, error)
}

type registrationClassStore interface {
	CreateIfNotExists(ctx context.Context, exec sqlx.ExtContext, class *models.Class) (int64, error)
}

type registrationRegisterStore interface {
	CreateIfNotExists(ctx context.Context, exec sqlx.ExtContext, key models.RegisterKey) (int64, error)
}

// RegistrationService registers students to teachers, creating any missing
// teacher, class or student on the way.
type RegistrationService struct {
	tx        transactor
	teachers  registrationTeacherStore
	students  registrationStudentStore
	classes   registrationClassStore
	registers registrationRegisterStore
	cache     queryCache
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRegistrationService wires the registration workflow.
func NewRegistrationService(
	tx transactor,
	teachers registrationTeacherStore,
	students registrationStudentStore,
	classes registrationClassStore,
	registers registrationRegisterStore,
	cache queryCache,
	metrics *MetricsService,
	logger *zap.Logger,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		tx:        tx,
		teachers:  teachers,
		students:  students,
		classes:   classes,
		registers: registers,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterStudents links every student email to the teacher, optionally
// within the titled class, and returns one register id per input email in
// input order. Repeated emails resolve to the same id. All writes happen in
// one transaction; on failure nothing persists and the error is returned as
// produced by the store.
func (s *RegistrationService) RegisterStudents(ctx context.Context, teacherEmail string, studentEmails []string, classTitle *string) ([]int64, error) {
	var ids []int64
	err := s.tx.WithinTransaction(ctx, nil, func(tx sqlx.ExtContext) error {
		ids = make([]int64, 0, len(studentEmails))

		teacherID, err := s.teachers.CreateIfNotExists(ctx, tx, &models.Teacher{Email: teacherEmail})
		if err != nil {
			return err
		}

		// Titles are stored trimmed so " 1A " and "1A" name the same class.
		var classID *int64
		if title := trimmedTitle(classTitle); title != "" {
			id, err := s.classes.CreateIfNotExists(ctx, tx, &models.Class{Title: title})
			if err != nil {
				return err
			}
			classID = &id
		}

		for _, email := range studentEmails {
			studentID, err := s.students.CreateIfNotExists(ctx, tx, &models.Student{Email: email})
			if err != nil {
				return err
			}
			registerID, err := s.registers.CreateIfNotExists(ctx, tx, models.RegisterKey{
				TeacherID: teacherID,
				StudentID: studentID,
				ClassID:   classID,
			})
			if err != nil {
				return err
			}
			ids = append(ids, registerID)
		}
		return nil
	})
	if err != nil {
		logUnexpected(s.logger, "register students failed", err, zap.String("teacher", teacherEmail))
		return nil, err
	}

	invalidateQueries(ctx, s.cache, s.logger)
	s.metrics.RecordRegistrations(len(ids))
	s.logger.Debug("students registered", zap.String("teacher", teacherEmail), zap.Int("count", len(ids)))
	return ids, nil
}

func trimmedTitle(title *string) string {
	if title == nil {
		return ""
	}
	return strings.TrimSpace(*title)
}

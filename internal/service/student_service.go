package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	RequireByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Student, error)
	Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) (int64, error)
	UpdateProfile(ctx context.Context, id int64, name, email *string) (*models.Student, error)
	SetSuspended(ctx context.Context, id int64, suspended bool) (*models.Student, error)
	Delete(ctx context.Context, id int64) (*models.Student, error)
}

// CreateStudentRequest represents payload for creating students.
type CreateStudentRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
}

// UpdateStudentRequest changes a student's name and/or email.
type UpdateStudentRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// StudentService orchestrates student operations.
type StudentService struct {
	repo      studentRepository
	cache     queryCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService. cache may be nil.
func NewStudentService(repo studentRepository, cache queryCache, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Suspend flags the student with the given email as suspended. The student
// keeps its registers but stops receiving notifications.
func (s *StudentService) Suspend(ctx context.Context, email string) (*models.Student, error) {
	student, err := s.repo.RequireByEmail(ctx, nil, email)
	if err != nil {
		logUnexpected(s.logger, "find student to suspend failed", err, zap.String("student", email))
		return nil, err
	}
	return s.setSuspended(ctx, student.ID, true)
}

// Unsuspend clears the suspension flag.
func (s *StudentService) Unsuspend(ctx context.Context, id int64) (*models.Student, error) {
	return s.setSuspended(ctx, id, false)
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		logUnexpected(s.logger, "get student failed", err, zap.Int64("student_id", id))
		return nil, err
	}
	if student == nil {
		return nil, appErrors.NotFound("student", "id", id)
	}
	return student, nil
}

// Create validates and persists a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	student := &models.Student{Name: strings.TrimSpace(req.Name), Email: req.Email}
	if _, err := s.repo.Create(ctx, nil, student); err != nil {
		logUnexpected(s.logger, "create student failed", err)
		return nil, err
	}
	invalidateQueries(ctx, s.cache, s.logger)
	return student, nil
}

// Update applies the provided name and email changes together.
func (s *StudentService) Update(ctx context.Context, id int64, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	if req.Name == nil && req.Email == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name or email is required")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	nameChanged := req.Name != nil && strings.TrimSpace(*req.Name) != current.Name
	emailChanged := req.Email != nil && *req.Email != current.Email
	if !nameChanged && !emailChanged {
		field := "name"
		if req.Email != nil {
			field = "email"
		}
		return nil, appErrors.IdenticalObject("student", field)
	}

	var name, email *string
	if nameChanged {
		trimmed := strings.TrimSpace(*req.Name)
		name = &trimmed
	}
	if emailChanged {
		email = req.Email
	}
	updated, err := s.repo.UpdateProfile(ctx, id, name, email)
	if err != nil {
		logUnexpected(s.logger, "update student failed", err, zap.Int64("student_id", id))
		return nil, err
	}
	invalidateQueries(ctx, s.cache, s.logger)
	return updated, nil
}

// Delete removes a student together with its registers.
func (s *StudentService) Delete(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.Delete(ctx, id)
	if err != nil {
		logUnexpected(s.logger, "delete student failed", err, zap.Int64("student_id", id))
		return nil, err
	}
	invalidateQueries(ctx, s.cache, s.logger)
	return student, nil
}

func (s *StudentService) setSuspended(ctx context.Context, id int64, suspended bool) (*models.Student, error) {
	student, err := s.repo.SetSuspended(ctx, id, suspended)
	if err != nil {
		logUnexpected(s.logger, "update student suspension failed", err, zap.Int64("student_id", id))
		return nil, err
	}
	invalidateQueries(ctx, s.cache, s.logger)
	return student, nil
}

package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

type registerRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Register, error)
	UpdateTeacher(ctx context.Context, id, teacherID int64) (*models.Register, error)
	UpdateStudent(ctx context.Context, id, studentID int64) (*models.Register, error)
	UpdateClass(ctx context.Context, id int64, classID *int64) (*models.Register, error)
	Delete(ctx context.Context, id int64) (*models.Register, error)
}

// RepointRegisterRequest moves a register to another teacher, student or
// class. ClearClass detaches the register from its class.
type RepointRegisterRequest struct {
	TeacherID  *int64 `json:"teacher_id" validate:"omitempty,min=1"`
	StudentID  *int64 `json:"student_id" validate:"omitempty,min=1"`
	ClassID    *int64 `json:"class_id" validate:"omitempty,min=1"`
	ClearClass bool   `json:"clear_class"`
}

// RegisterService manages individual registers.
type RegisterService struct {
	repo      registerRepository
	cache     queryCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegisterService constructs a RegisterService.
func NewRegisterService(repo registerRepository, cache queryCache, validate *validator.Validate, logger *zap.Logger) *RegisterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegisterService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Get returns a register by id.
func (s *RegisterService) Get(ctx context.Context, id int64) (*models.Register, error) {
	register, err := s.repo.FindByID(ctx, id)
	if err != nil {
		logUnexpected(s.logger, "get register failed", err, zap.Int64("register_id", id))
		return nil, err
	}
	if register == nil {
		return nil, appErrors.NotFound("register", "id", id)
	}
	return register, nil
}

// Repoint applies the requested teacher, student and class changes in that
// order. Each step keeps the register triple unique.
func (s *RegisterService) Repoint(ctx context.Context, id int64, req RepointRegisterRequest) (*models.Register, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid register payload")
	}
	if req.ClearClass && req.ClassID != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_id and clear_class are mutually exclusive")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	updated := current
	if req.TeacherID != nil && *req.TeacherID != current.TeacherID {
		if updated, err = s.repo.UpdateTeacher(ctx, id, *req.TeacherID); err != nil {
			return nil, s.fail(err, id)
		}
		changed = true
	}
	if req.StudentID != nil && *req.StudentID != current.StudentID {
		if updated, err = s.repo.UpdateStudent(ctx, id, *req.StudentID); err != nil {
			return nil, s.fail(err, id)
		}
		changed = true
	}
	if classChanges(current.ClassID, req) {
		target := req.ClassID
		if req.ClearClass {
			target = nil
		}
		if updated, err = s.repo.UpdateClass(ctx, id, target); err != nil {
			return nil, s.fail(err, id)
		}
		changed = true
	}
	if !changed {
		return nil, appErrors.IdenticalObject("register", "teacher_id, student_id, class_id")
	}

	invalidateQueries(ctx, s.cache, s.logger)
	return updated, nil
}

// Delete removes a register.
func (s *RegisterService) Delete(ctx context.Context, id int64) (*models.Register, error) {
	register, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, s.fail(err, id)
	}
	invalidateQueries(ctx, s.cache, s.logger)
	return register, nil
}

func (s *RegisterService) fail(err error, id int64) error {
	logUnexpected(s.logger, "register mutation failed", err, zap.Int64("register_id", id))
	return err
}

func classChanges(current *int64, req RepointRegisterRequest) bool {
	if req.ClearClass {
		return current != nil
	}
	if req.ClassID == nil {
		return false
	}
	return current == nil || *current != *req.ClassID
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

type teacherRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
	Create(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) (int64, error)
	UpdateProfile(ctx context.Context, id int64, name, email *string) (*models.Teacher, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) (*models.Teacher, error)
	Delete(ctx context.Context, id int64) (*models.Teacher, error)
}

// CreateTeacherRequest represents payload for creating teachers.
type CreateTeacherRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// UpdateTeacherRequest changes a teacher's name and/or email.
type UpdateTeacherRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// ChangePasswordRequest sets a new teacher password.
type ChangePasswordRequest struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// TeacherService orchestrates teacher operations.
type TeacherService struct {
	repo      teacherRepository
	cache     queryCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, cache queryCache, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id int64) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		logUnexpected(s.logger, "get teacher failed", err, zap.Int64("teacher_id", id))
		return nil, err
	}
	if teacher == nil {
		return nil, appErrors.NotFound("teacher", "id", id)
	}
	return teacher, nil
}

// Create validates and persists a teacher with a hashed password.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid teacher payload")
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Unknown(err, "hash teacher password")
	}
	teacher := &models.Teacher{Name: strings.TrimSpace(req.Name), Email: req.Email, Password: hash}
	if _, err := s.repo.Create(ctx, nil, teacher); err != nil {
		logUnexpected(s.logger, "create teacher failed", err)
		return nil, err
	}
	return teacher, nil
}

// Update applies the provided name and email changes together.
func (s *TeacherService) Update(ctx context.Context, id int64, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid teacher payload")
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
		return nil, appErrors.IdenticalObject("teacher", field)
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
		logUnexpected(s.logger, "update teacher failed", err, zap.Int64("teacher_id", id))
		return nil, err
	}
	invalidateQueries(ctx, s.cache, s.logger)
	return updated, nil
}

// ChangePassword stores a new password, refusing one equal to the current.
func (s *TeacherService) ChangePassword(ctx context.Context, id int64, req ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid password payload")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	err = bcrypt.CompareHashAndPassword([]byte(teacher.Password), []byte(req.Password))
	switch {
	case err == nil:
		return appErrors.IdenticalObject("teacher", "password")
	case !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		// A stored value that is not a bcrypt hash cannot match; replace it.
		s.logger.Warn("stored teacher password is not a valid hash", zap.Int64("teacher_id", id), zap.Error(err))
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return appErrors.Unknown(err, "hash teacher password")
	}
	if _, err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		logUnexpected(s.logger, "change teacher password failed", err, zap.Int64("teacher_id", id))
		return err
	}
	return nil
}

// Delete removes a teacher together with its registers and notifications.
func (s *TeacherService) Delete(ctx context.Context, id int64) (*models.Teacher, error) {
	teacher, err := s.repo.Delete(ctx, id)
	if err != nil {
		logUnexpected(s.logger, "delete teacher failed", err, zap.Int64("teacher_id", id))
		return nil, err
	}
	invalidateQueries(ctx, s.cache, s.logger)
	return teacher, nil
}

// HashPassword hashes a plain password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

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

type classRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Class, error)
	Create(ctx context.Context, exec sqlx.ExtContext, class *models.Class) (int64, error)
	UpdateTitle(ctx context.Context, id int64, title string) (*models.Class, error)
	Delete(ctx context.Context, id int64) (*models.Class, error)
}

// ClassRequest is the payload for creating or retitling a class.
type ClassRequest struct {
	Title string `json:"title" validate:"required,max=255"`
}

// ClassService manages classes.
type ClassService struct {
	repo      classRepository
	cache     queryCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, cache queryCache, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id int64) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		logUnexpected(s.logger, "get class failed", err, zap.Int64("class_id", id))
		return nil, err
	}
	if class == nil {
		return nil, appErrors.NotFound("class", "id", id)
	}
	return class, nil
}

// Create persists a new class.
func (s *ClassService) Create(ctx context.Context, req ClassRequest) (*models.Class, error) {
	title, err := s.title(req)
	if err != nil {
		return nil, err
	}
	class := &models.Class{Title: title}
	if _, err := s.repo.Create(ctx, nil, class); err != nil {
		logUnexpected(s.logger, "create class failed", err)
		return nil, err
	}
	return class, nil
}

// Retitle renames a class.
func (s *ClassService) Retitle(ctx context.Context, id int64, req ClassRequest) (*models.Class, error) {
	title, err := s.title(req)
	if err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Title == title {
		return nil, appErrors.IdenticalObject("class", "title")
	}
	class, err := s.repo.UpdateTitle(ctx, id, title)
	if err != nil {
		logUnexpected(s.logger, "retitle class failed", err, zap.Int64("class_id", id))
		return nil, err
	}
	return class, nil
}

// Delete removes a class and the registers made within it.
func (s *ClassService) Delete(ctx context.Context, id int64) (*models.Class, error) {
	class, err := s.repo.Delete(ctx, id)
	if err != nil {
		logUnexpected(s.logger, "delete class failed", err, zap.Int64("class_id", id))
		return nil, err
	}
	invalidateQueries(ctx, s.cache, s.logger)
	return class, nil
}

func (s *ClassService) title(req ClassRequest) (string, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Validation(err, "invalid class payload")
	}
	return req.Title, nil
}

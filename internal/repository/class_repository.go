package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

const classColumns = "id, title, created_at, updated_at"

// ClassRepository handles persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

func (r *ClassRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID fetches a class by ID, returning nil when absent.
func (r *ClassRepository) FindByID(ctx context.Context, id int64) (*models.Class, error) {
	query := "SELECT " + classColumns + " FROM classes WHERE id = $1"
	class, err := findOne[models.Class](ctx, r.db, query, id)
	if err != nil {
		return nil, translate(err, "class", "find class by id")
	}
	return class, nil
}

// FindByIDs returns the classes that exist among ids.
func (r *ClassRepository) FindByIDs(ctx context.Context, ids []int64) ([]models.Class, error) {
	classes := []models.Class{}
	if len(ids) == 0 {
		return classes, nil
	}
	query := "SELECT " + classColumns + " FROM classes WHERE id = ANY($1) ORDER BY id"
	if err := r.db.SelectContext(ctx, &classes, query, pq.Array(ids)); err != nil {
		return nil, translate(err, "class", "find classes by ids")
	}
	return classes, nil
}

// FindByTitle fetches a class by exact title, returning nil when absent.
func (r *ClassRepository) FindByTitle(ctx context.Context, exec sqlx.ExtContext, title string) (*models.Class, error) {
	query := "SELECT " + classColumns + " FROM classes WHERE title = $1"
	class, err := findOne[models.Class](ctx, r.exec(exec), query, title)
	if err != nil {
		return nil, translate(err, "class", "find class by title")
	}
	return class, nil
}

// RequireByTitle is FindByTitle failing with NotFound when absent.
func (r *ClassRepository) RequireByTitle(ctx context.Context, exec sqlx.ExtContext, title string) (*models.Class, error) {
	class, err := r.FindByTitle(ctx, exec, title)
	if err != nil {
		return nil, err
	}
	if class == nil {
		return nil, appErrors.NotFound("class", "title", title)
	}
	return class, nil
}

// FindByTitles returns the classes that exist among titles.
func (r *ClassRepository) FindByTitles(ctx context.Context, titles []string) ([]models.Class, error) {
	classes := []models.Class{}
	if len(titles) == 0 {
		return classes, nil
	}
	query := "SELECT " + classColumns + " FROM classes WHERE title = ANY($1) ORDER BY id"
	if err := r.db.SelectContext(ctx, &classes, query, pq.Array(titles)); err != nil {
		return nil, translate(err, "class", "find classes by titles")
	}
	return classes, nil
}

// Create inserts a new class and sets its ID.
func (r *ClassRepository) Create(ctx context.Context, exec sqlx.ExtContext, class *models.Class) (int64, error) {
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	const query = `INSERT INTO classes (title, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`
	if err := sqlx.GetContext(ctx, r.exec(exec), &class.ID, query, class.Title, class.CreatedAt, class.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.MalformedResponse("class", "create class")
		}
		return 0, translate(err, "class", "create class")
	}
	if class.ID == 0 {
		return 0, appErrors.MalformedResponse("class", "create class")
	}
	return class.ID, nil
}

// CreateIfNotExists returns the ID of the class with the same title,
// inserting it when none exists.
func (r *ClassRepository) CreateIfNotExists(ctx context.Context, exec sqlx.ExtContext, class *models.Class) (int64, error) {
	target := r.exec(exec)
	existing, err := r.FindByTitle(ctx, target, class.Title)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		*class = *existing
		return existing.ID, nil
	}

	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	const query = `INSERT INTO classes (title, created_at, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (title) DO NOTHING
		RETURNING id`
	err = sqlx.GetContext(ctx, target, &class.ID, query, class.Title, class.CreatedAt, class.UpdatedAt)
	switch {
	case err == nil:
		return class.ID, nil
	case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
		winner, findErr := r.FindByTitle(ctx, target, class.Title)
		if findErr != nil {
			return 0, findErr
		}
		if winner == nil {
			return 0, appErrors.MalformedResponse("class", "create class if not exists")
		}
		*class = *winner
		return winner.ID, nil
	default:
		return 0, translate(err, "class", "create class if not exists")
	}
}

// UpdateTitle retitles a class, keeping titles unique.
func (r *ClassRepository) UpdateTitle(ctx context.Context, id int64, title string) (*models.Class, error) {
	ok, err := rowExists(ctx, r.db, "classes", id)
	if err != nil {
		return nil, translate(err, "class", "check class")
	}
	if !ok {
		return nil, appErrors.NotFound("class", "id", id)
	}

	var taken bool
	const existsQuery = "SELECT EXISTS (SELECT 1 FROM classes WHERE title = $1 AND id <> $2)"
	if err := r.db.GetContext(ctx, &taken, existsQuery, title, id); err != nil {
		return nil, translate(err, "class", "check class title")
	}
	if taken {
		return nil, appErrors.UniqueConstraint("class", "title", title)
	}

	query := "UPDATE classes SET title = $2, updated_at = $3 WHERE id = $1 RETURNING " + classColumns
	class, err := findOne[models.Class](ctx, r.db, query, id, title, time.Now().UTC())
	if err != nil {
		return nil, translate(err, "class", "update class title")
	}
	if class == nil {
		return nil, appErrors.NotFound("class", "id", id)
	}
	return class, nil
}

// Delete removes a class and returns the removed row. Registers in the class
// cascade.
func (r *ClassRepository) Delete(ctx context.Context, id int64) (*models.Class, error) {
	query := "DELETE FROM classes WHERE id = $1 RETURNING " + classColumns
	class, err := findOne[models.Class](ctx, r.db, query, id)
	if err != nil {
		return nil, translate(err, "class", "delete class")
	}
	if class == nil {
		return nil, appErrors.NotFound("class", "id", id)
	}
	return class, nil
}

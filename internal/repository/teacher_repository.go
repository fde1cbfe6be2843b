package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

const teacherColumns = "id, name, email, password, created_at, updated_at"

// TeacherRepository manages persistence for teachers.
type TeacherRepository struct {
	db                  *sqlx.DB
	defaultPasswordHash string
}

// NewTeacherRepository constructs a TeacherRepository. defaultPasswordHash is
// stored for teachers created on first reference.
func NewTeacherRepository(db *sqlx.DB, defaultPasswordHash string) *TeacherRepository {
	return &TeacherRepository{db: db, defaultPasswordHash: defaultPasswordHash}
}

func (r *TeacherRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID fetches a teacher by ID, returning nil when absent.
func (r *TeacherRepository) FindByID(ctx context.Context, id int64) (*models.Teacher, error) {
	query := "SELECT " + teacherColumns + " FROM teachers WHERE id = $1"
	teacher, err := findOne[models.Teacher](ctx, r.db, query, id)
	if err != nil {
		return nil, translate(err, "teacher", "find teacher by id")
	}
	return teacher, nil
}

// FindByIDs fetches the teachers that exist among ids.
func (r *TeacherRepository) FindByIDs(ctx context.Context, ids []int64) ([]models.Teacher, error) {
	teachers := []models.Teacher{}
	if len(ids) == 0 {
		return teachers, nil
	}
	query := "SELECT " + teacherColumns + " FROM teachers WHERE id = ANY($1) ORDER BY id"
	if err := r.db.SelectContext(ctx, &teachers, query, pq.Array(ids)); err != nil {
		return nil, translate(err, "teacher", "find teachers by ids")
	}
	return teachers, nil
}

// FindByEmail fetches a teacher by exact email, returning nil when absent.
func (r *TeacherRepository) FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Teacher, error) {
	query := "SELECT " + teacherColumns + " FROM teachers WHERE email = $1"
	teacher, err := findOne[models.Teacher](ctx, r.exec(exec), query, email)
	if err != nil {
		return nil, translate(err, "teacher", "find teacher by email")
	}
	return teacher, nil
}

// RequireByEmail is FindByEmail failing with NotFound when absent.
func (r *TeacherRepository) RequireByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Teacher, error) {
	teacher, err := r.FindByEmail(ctx, exec, email)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, appErrors.NotFound("teacher", "email", email)
	}
	return teacher, nil
}

// FindByEmails fetches the teachers that exist among emails.
func (r *TeacherRepository) FindByEmails(ctx context.Context, emails []string) ([]models.Teacher, error) {
	teachers := []models.Teacher{}
	if len(emails) == 0 {
		return teachers, nil
	}
	query := "SELECT " + teacherColumns + " FROM teachers WHERE email = ANY($1) ORDER BY id"
	if err := r.db.SelectContext(ctx, &teachers, query, pq.Array(emails)); err != nil {
		return nil, translate(err, "teacher", "find teachers by emails")
	}
	return teachers, nil
}

// Create inserts a new teacher and sets its ID.
func (r *TeacherRepository) Create(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) (int64, error) {
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (name, email, password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := sqlx.GetContext(ctx, r.exec(exec), &teacher.ID, query,
		teacher.Name, teacher.Email, teacher.Password, teacher.CreatedAt, teacher.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.MalformedResponse("teacher", "create teacher")
		}
		return 0, translate(err, "teacher", "create teacher")
	}
	if teacher.ID == 0 {
		return 0, appErrors.MalformedResponse("teacher", "create teacher")
	}
	return teacher.ID, nil
}

// CreateIfNotExists returns the ID of the teacher with the same email,
// inserting one when none exists. Missing name and password fall back to the
// email local part and the default password. An insert that loses a race
// against a concurrent writer resolves to the winner's row.
func (r *TeacherRepository) CreateIfNotExists(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) (int64, error) {
	target := r.exec(exec)
	existing, err := r.FindByEmail(ctx, target, teacher.Email)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		*teacher = *existing
		return existing.ID, nil
	}

	if strings.TrimSpace(teacher.Name) == "" {
		teacher.Name = localPart(teacher.Email)
	}
	if teacher.Password == "" {
		teacher.Password = r.defaultPasswordHash
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (name, email, password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
		RETURNING id`
	err = sqlx.GetContext(ctx, target, &teacher.ID, query,
		teacher.Name, teacher.Email, teacher.Password, teacher.CreatedAt, teacher.UpdatedAt)
	switch {
	case err == nil:
		return teacher.ID, nil
	case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
		winner, findErr := r.FindByEmail(ctx, target, teacher.Email)
		if findErr != nil {
			return 0, findErr
		}
		if winner == nil {
			return 0, appErrors.MalformedResponse("teacher", "create teacher if not exists")
		}
		*teacher = *winner
		return winner.ID, nil
	default:
		return 0, translate(err, "teacher", "create teacher if not exists")
	}
}

// ExistsByEmail checks whether another teacher uses the email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	const query = "SELECT EXISTS (SELECT 1 FROM teachers WHERE email = $1 AND id <> $2)"
	if err := r.db.GetContext(ctx, &exists, query, email, excludeID); err != nil {
		return false, translate(err, "teacher", "check teacher email")
	}
	return exists, nil
}

// UpdateName renames a teacher.
func (r *TeacherRepository) UpdateName(ctx context.Context, id int64, name string) (*models.Teacher, error) {
	return r.UpdateProfile(ctx, id, &name, nil)
}

// UpdateEmail changes a teacher's email, keeping emails unique.
func (r *TeacherRepository) UpdateEmail(ctx context.Context, id int64, email string) (*models.Teacher, error) {
	return r.UpdateProfile(ctx, id, nil, &email)
}

// UpdateProfile changes the name and/or email of a teacher in one statement.
// Nil fields keep their value. Email uniqueness is checked before writing.
func (r *TeacherRepository) UpdateProfile(ctx context.Context, id int64, name, email *string) (*models.Teacher, error) {
	if err := r.requireID(ctx, id); err != nil {
		return nil, err
	}
	if email != nil {
		taken, err := r.ExistsByEmail(ctx, *email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, appErrors.UniqueConstraint("teacher", "email", *email)
		}
	}

	query := `UPDATE teachers SET name = COALESCE($2, name), email = COALESCE($3, email), updated_at = $4
		WHERE id = $1 RETURNING ` + teacherColumns
	teacher, err := findOne[models.Teacher](ctx, r.db, query, id, nullableString(name), nullableString(email), time.Now().UTC())
	if err != nil {
		return nil, translate(err, "teacher", "update teacher profile")
	}
	if teacher == nil {
		return nil, appErrors.NotFound("teacher", "id", id)
	}
	return teacher, nil
}

// UpdatePassword stores a new password hash.
func (r *TeacherRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) (*models.Teacher, error) {
	if err := r.requireID(ctx, id); err != nil {
		return nil, err
	}
	return r.update(ctx, "password", id, passwordHash)
}

// Delete removes a teacher and returns the removed row. Registers and
// notifications of the teacher cascade.
func (r *TeacherRepository) Delete(ctx context.Context, id int64) (*models.Teacher, error) {
	query := "DELETE FROM teachers WHERE id = $1 RETURNING " + teacherColumns
	teacher, err := findOne[models.Teacher](ctx, r.db, query, id)
	if err != nil {
		return nil, translate(err, "teacher", "delete teacher")
	}
	if teacher == nil {
		return nil, appErrors.NotFound("teacher", "id", id)
	}
	return teacher, nil
}

func (r *TeacherRepository) requireID(ctx context.Context, id int64) error {
	ok, err := rowExists(ctx, r.db, "teachers", id)
	if err != nil {
		return translate(err, "teacher", "check teacher")
	}
	if !ok {
		return appErrors.NotFound("teacher", "id", id)
	}
	return nil
}

// column is always one of the fixed names passed by this file.
func (r *TeacherRepository) update(ctx context.Context, column string, id int64, value interface{}) (*models.Teacher, error) {
	query := fmt.Sprintf("UPDATE teachers SET %s = $2, updated_at = $3 WHERE id = $1 RETURNING %s", column, teacherColumns)
	teacher, err := findOne[models.Teacher](ctx, r.db, query, id, value, time.Now().UTC())
	if err != nil {
		return nil, translate(err, "teacher", "update teacher "+column)
	}
	if teacher == nil {
		return nil, appErrors.NotFound("teacher", "id", id)
	}
	return teacher, nil
}

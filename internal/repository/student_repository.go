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

const studentColumns = "id, name, email, is_suspended, created_at, updated_at"

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID fetches a student by ID, returning nil when absent.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE id = $1"
	student, err := findOne[models.Student](ctx, r.db, query, id)
	if err != nil {
		return nil, translate(err, "student", "find student by id")
	}
	return student, nil
}

// FindByIDs returns the students that exist among ids; missing ids are skipped.
func (r *StudentRepository) FindByIDs(ctx context.Context, ids []int64) ([]models.Student, error) {
	students := []models.Student{}
	if len(ids) == 0 {
		return students, nil
	}
	query := "SELECT " + studentColumns + " FROM students WHERE id = ANY($1) ORDER BY id"
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(ids)); err != nil {
		return nil, translate(err, "student", "find students by ids")
	}
	return students, nil
}

// FindByEmail fetches a student by exact email, returning nil when absent.
func (r *StudentRepository) FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE email = $1"
	student, err := findOne[models.Student](ctx, r.exec(exec), query, email)
	if err != nil {
		return nil, translate(err, "student", "find student by email")
	}
	return student, nil
}

// RequireByEmail is FindByEmail failing with NotFound when absent.
func (r *StudentRepository) RequireByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Student, error) {
	student, err := r.FindByEmail(ctx, exec, email)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, appErrors.NotFound("student", "email", email)
	}
	return student, nil
}

// FindByEmails returns the students that exist among emails.
func (r *StudentRepository) FindByEmails(ctx context.Context, emails []string) ([]models.Student, error) {
	students := []models.Student{}
	if len(emails) == 0 {
		return students, nil
	}
	query := "SELECT " + studentColumns + " FROM students WHERE email = ANY($1) ORDER BY id"
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(emails)); err != nil {
		return nil, translate(err, "student", "find students by emails")
	}
	return students, nil
}

// Create inserts a new student and sets its ID.
func (r *StudentRepository) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) (int64, error) {
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (name, email, is_suspended, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := sqlx.GetContext(ctx, r.exec(exec), &student.ID, query,
		student.Name, student.Email, student.IsSuspended, student.CreatedAt, student.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.MalformedResponse("student", "create student")
		}
		return 0, translate(err, "student", "create student")
	}
	if student.ID == 0 {
		return 0, appErrors.MalformedResponse("student", "create student")
	}
	return student.ID, nil
}

// CreateIfNotExists returns the ID of the student with the same email,
// inserting one named after the email local part when none exists.
func (r *StudentRepository) CreateIfNotExists(ctx context.Context, exec sqlx.ExtContext, student *models.Student) (int64, error) {
	target := r.exec(exec)
	existing, err := r.FindByEmail(ctx, target, student.Email)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		*student = *existing
		return existing.ID, nil
	}

	if strings.TrimSpace(student.Name) == "" {
		student.Name = localPart(student.Email)
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (name, email, is_suspended, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
		RETURNING id`
	err = sqlx.GetContext(ctx, target, &student.ID, query,
		student.Name, student.Email, student.IsSuspended, student.CreatedAt, student.UpdatedAt)
	switch {
	case err == nil:
		return student.ID, nil
	case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
		winner, findErr := r.FindByEmail(ctx, target, student.Email)
		if findErr != nil {
			return 0, findErr
		}
		if winner == nil {
			return 0, appErrors.MalformedResponse("student", "create student if not exists")
		}
		*student = *winner
		return winner.ID, nil
	default:
		return 0, translate(err, "student", "create student if not exists")
	}
}

// ExistsByEmail checks whether another student uses the email.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	const query = "SELECT EXISTS (SELECT 1 FROM students WHERE email = $1 AND id <> $2)"
	if err := r.db.GetContext(ctx, &exists, query, email, excludeID); err != nil {
		return false, translate(err, "student", "check student email")
	}
	return exists, nil
}

// UpdateName renames a student.
func (r *StudentRepository) UpdateName(ctx context.Context, id int64, name string) (*models.Student, error) {
	return r.UpdateProfile(ctx, id, &name, nil)
}

// UpdateEmail changes a student's email, keeping emails unique.
func (r *StudentRepository) UpdateEmail(ctx context.Context, id int64, email string) (*models.Student, error) {
	return r.UpdateProfile(ctx, id, nil, &email)
}

// UpdateProfile changes the name and/or email of a student in one statement.
// Nil fields keep their value. Email uniqueness is checked before writing.
func (r *StudentRepository) UpdateProfile(ctx context.Context, id int64, name, email *string) (*models.Student, error) {
	if err := r.requireID(ctx, id); err != nil {
		return nil, err
	}
	if email != nil {
		taken, err := r.ExistsByEmail(ctx, *email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, appErrors.UniqueConstraint("student", "email", *email)
		}
	}

	query := `UPDATE students SET name = COALESCE($2, name), email = COALESCE($3, email), updated_at = $4
		WHERE id = $1 RETURNING ` + studentColumns
	student, err := findOne[models.Student](ctx, r.db, query, id, nullableString(name), nullableString(email), time.Now().UTC())
	if err != nil {
		return nil, translate(err, "student", "update student profile")
	}
	if student == nil {
		return nil, appErrors.NotFound("student", "id", id)
	}
	return student, nil
}

// SetSuspended flips the suspension flag. Registers are left in place.
func (r *StudentRepository) SetSuspended(ctx context.Context, id int64, suspended bool) (*models.Student, error) {
	if err := r.requireID(ctx, id); err != nil {
		return nil, err
	}
	return r.update(ctx, "is_suspended", id, suspended)
}

// Delete removes a student and returns the removed row.
func (r *StudentRepository) Delete(ctx context.Context, id int64) (*models.Student, error) {
	query := "DELETE FROM students WHERE id = $1 RETURNING " + studentColumns
	student, err := findOne[models.Student](ctx, r.db, query, id)
	if err != nil {
		return nil, translate(err, "student", "delete student")
	}
	if student == nil {
		return nil, appErrors.NotFound("student", "id", id)
	}
	return student, nil
}

func (r *StudentRepository) requireID(ctx context.Context, id int64) error {
	ok, err := rowExists(ctx, r.db, "students", id)
	if err != nil {
		return translate(err, "student", "check student")
	}
	if !ok {
		return appErrors.NotFound("student", "id", id)
	}
	return nil
}

func (r *StudentRepository) update(ctx context.Context, column string, id int64, value interface{}) (*models.Student, error) {
	query := fmt.Sprintf("UPDATE students SET %s = $2, updated_at = $3 WHERE id = $1 RETURNING %s", column, studentColumns)
	student, err := findOne[models.Student](ctx, r.db, query, id, value, time.Now().UTC())
	if err != nil {
		return nil, translate(err, "student", "update student "+column)
	}
	if student == nil {
		return nil, appErrors.NotFound("student", "id", id)
	}
	return student, nil
}

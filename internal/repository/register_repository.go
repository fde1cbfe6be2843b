package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

const registerColumns = "id, teacher_id, student_id, class_id, created_at, updated_at"

// RegisterRepository persists teacher/student(/class) registrations.
type RegisterRepository struct {
	db *sqlx.DB
}

// NewRegisterRepository builds a RegisterRepository.
func NewRegisterRepository(db *sqlx.DB) *RegisterRepository {
	return &RegisterRepository{db: db}
}

func (r *RegisterRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID fetches a register by ID, returning nil when absent.
func (r *RegisterRepository) FindByID(ctx context.Context, id int64) (*models.Register, error) {
	query := "SELECT " + registerColumns + " FROM registers WHERE id = $1"
	register, err := findOne[models.Register](ctx, r.db, query, id)
	if err != nil {
		return nil, translate(err, "register", "find register by id")
	}
	return register, nil
}

// FindByKey fetches the register matching the triple, returning nil when absent.
func (r *RegisterRepository) FindByKey(ctx context.Context, exec sqlx.ExtContext, key models.RegisterKey) (*models.Register, error) {
	query := "SELECT " + registerColumns + ` FROM registers
		WHERE teacher_id = $1 AND student_id = $2 AND COALESCE(class_id, 0) = $3`
	register, err := findOne[models.Register](ctx, r.exec(exec), query, key.TeacherID, key.StudentID, key.ClassKey())
	if err != nil {
		return nil, translate(err, "register", "find register")
	}
	return register, nil
}

// CreateIfNotExists returns the ID of the register for key, inserting it when
// none exists. The teacher, student and class (when set) must exist in the
// same transaction context as exec.
func (r *RegisterRepository) CreateIfNotExists(ctx context.Context, exec sqlx.ExtContext, key models.RegisterKey) (int64, error) {
	target := r.exec(exec)
	if err := r.ensureReferents(ctx, target, key); err != nil {
		return 0, err
	}

	existing, err := r.FindByKey(ctx, target, key)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	now := time.Now().UTC()
	const query = `INSERT INTO registers (teacher_id, student_id, class_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (teacher_id, student_id, (COALESCE(class_id, 0))) DO NOTHING
		RETURNING id`
	var id int64
	err = sqlx.GetContext(ctx, target, &id, query, key.TeacherID, key.StudentID, key.ClassID, now)
	switch {
	case err == nil:
		if id == 0 {
			return 0, appErrors.MalformedResponse("register", "create register")
		}
		return id, nil
	case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
		winner, findErr := r.FindByKey(ctx, target, key)
		if findErr != nil {
			return 0, findErr
		}
		if winner == nil {
			return 0, appErrors.MalformedResponse("register", "create register if not exists")
		}
		return winner.ID, nil
	default:
		return 0, translate(err, "register", "create register if not exists")
	}
}

// StudentIDsOfTeacher returns the distinct students registered to a teacher.
func (r *RegisterRepository) StudentIDsOfTeacher(ctx context.Context, teacherID int64) ([]int64, error) {
	ids := []int64{}
	const query = `SELECT DISTINCT student_id FROM registers WHERE teacher_id = $1 ORDER BY student_id`
	if err := r.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, translate(err, "register", "list students of teacher")
	}
	return ids, nil
}

// StudentIDsOfTeachers returns the students registered to every teacher in
// teacherIDs. Distinct (teacher, student) pairs are counted per student and a
// student qualifies when its count equals len(teacherIDs); the input is not
// deduplicated, so a repeated teacher ID raises the threshold.
func (r *RegisterRepository) StudentIDsOfTeachers(ctx context.Context, teacherIDs []int64) ([]int64, error) {
	ids := []int64{}
	if len(teacherIDs) == 0 {
		return ids, nil
	}
	const query = `SELECT student_id FROM (
			SELECT DISTINCT teacher_id, student_id FROM registers WHERE teacher_id = ANY($1)
		) pairs
		GROUP BY student_id
		HAVING COUNT(*) = $2
		ORDER BY student_id`
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(teacherIDs), len(teacherIDs)); err != nil {
		return nil, translate(err, "register", "list common students")
	}
	return ids, nil
}

// UpdateTeacher points a register at another teacher.
func (r *RegisterRepository) UpdateTeacher(ctx context.Context, id, teacherID int64) (*models.Register, error) {
	return r.repoint(ctx, id, func(key *models.RegisterKey) { key.TeacherID = teacherID })
}

// UpdateStudent points a register at another student.
func (r *RegisterRepository) UpdateStudent(ctx context.Context, id, studentID int64) (*models.Register, error) {
	return r.repoint(ctx, id, func(key *models.RegisterKey) { key.StudentID = studentID })
}

// UpdateClass points a register at another class, or at no class when
// classID is nil.
func (r *RegisterRepository) UpdateClass(ctx context.Context, id int64, classID *int64) (*models.Register, error) {
	return r.repoint(ctx, id, func(key *models.RegisterKey) { key.ClassID = classID })
}

// Delete removes a register and returns the removed row.
func (r *RegisterRepository) Delete(ctx context.Context, id int64) (*models.Register, error) {
	query := "DELETE FROM registers WHERE id = $1 RETURNING " + registerColumns
	register, err := findOne[models.Register](ctx, r.db, query, id)
	if err != nil {
		return nil, translate(err, "register", "delete register")
	}
	if register == nil {
		return nil, appErrors.NotFound("register", "id", id)
	}
	return register, nil
}

func (r *RegisterRepository) repoint(ctx context.Context, id int64, change func(*models.RegisterKey)) (*models.Register, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, appErrors.NotFound("register", "id", id)
	}

	key := current.Key()
	change(&key)
	if err := r.ensureReferents(ctx, r.db, key); err != nil {
		return nil, err
	}

	clash, err := r.FindByKey(ctx, nil, key)
	if err != nil {
		return nil, err
	}
	if clash != nil && clash.ID != id {
		return nil, appErrors.UniqueConstraint("register", "teacher_id, student_id, class_id",
			fmt.Sprintf("%d, %d, %d", key.TeacherID, key.StudentID, key.ClassKey()))
	}

	query := `UPDATE registers SET teacher_id = $2, student_id = $3, class_id = $4, updated_at = $5
		WHERE id = $1 RETURNING ` + registerColumns
	updated, err := findOne[models.Register](ctx, r.db, query, id, key.TeacherID, key.StudentID, key.ClassID, time.Now().UTC())
	if err != nil {
		return nil, translate(err, "register", "update register")
	}
	if updated == nil {
		return nil, appErrors.NotFound("register", "id", id)
	}
	return updated, nil
}

type referent struct {
	entity string
	table  string
	id     int64
}

func (r *RegisterRepository) ensureReferents(ctx context.Context, q sqlx.QueryerContext, key models.RegisterKey) error {
	checks := []referent{
		{entity: "teacher", table: "teachers", id: key.TeacherID},
		{entity: "student", table: "students", id: key.StudentID},
	}
	if key.ClassID != nil {
		checks = append(checks, referent{entity: "class", table: "classes", id: *key.ClassID})
	}

	for _, check := range checks {
		ok, err := rowExists(ctx, q, check.table, check.id)
		if err != nil {
			return translate(err, "register", "check "+check.entity)
		}
		if !ok {
			return appErrors.NotFound(check.entity, "id", check.id)
		}
	}
	return nil
}

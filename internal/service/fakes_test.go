package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
	"github.com/noah-isme/roster-api/pkg/jobs"
)

// memDB is an in-memory roster shared by the fake repositories below.
type memDB struct {
	nextID        int64
	teachers      map[int64]models.Teacher
	students      map[int64]models.Student
	classes       map[int64]models.Class
	registers     map[int64]models.Register
	notifications map[int64]models.Notification

	failStudentEmail string
}

func newMemDB() *memDB {
	return &memDB{
		teachers:      map[int64]models.Teacher{},
		students:      map[int64]models.Student{},
		classes:       map[int64]models.Class{},
		registers:     map[int64]models.Register{},
		notifications: map[int64]models.Notification{},
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) snapshot() memDB {
	snap := *db
	snap.teachers = copyMap(db.teachers)
	snap.students = copyMap(db.students)
	snap.classes = copyMap(db.classes)
	snap.registers = copyMap(db.registers)
	snap.notifications = copyMap(db.notifications)
	return snap
}

func copyMap[T any](in map[int64]T) map[int64]T {
	out := make(map[int64]T, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// memTransactor restores the snapshot taken before fn when fn fails.
type memTransactor struct {
	db      *memDB
	commits int
}

func (t *memTransactor) WithinTransaction(ctx context.Context, exec sqlx.ExtContext, fn func(tx sqlx.ExtContext) error) error {
	snap := t.db.snapshot()
	if err := fn(exec); err != nil {
		*t.db = snap
		return err
	}
	t.commits++
	return nil
}

func (db *memDB) addTeacher(email string) models.Teacher {
	teacher := models.Teacher{ID: db.id(), Name: email, Email: email}
	db.teachers[teacher.ID] = teacher
	return teacher
}

func (db *memDB) addStudent(email string, suspended bool) models.Student {
	student := models.Student{ID: db.id(), Name: email, Email: email, IsSuspended: suspended}
	db.students[student.ID] = student
	return student
}

func (db *memDB) register(teacher models.Teacher, students ...models.Student) {
	for _, student := range students {
		id := db.id()
		db.registers[id] = models.Register{ID: id, TeacherID: teacher.ID, StudentID: student.ID}
	}
}

type memTeachers struct{ db *memDB }

func (r memTeachers) byEmail(email string) *models.Teacher {
	for _, teacher := range r.db.teachers {
		if teacher.Email == email {
			cp := teacher
			return &cp
		}
	}
	return nil
}

func (r memTeachers) CreateIfNotExists(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) (int64, error) {
	if existing := r.byEmail(teacher.Email); existing != nil {
		*teacher = *existing
		return existing.ID, nil
	}
	if teacher.Name == "" {
		teacher.Name = strings.Split(teacher.Email, "@")[0]
	}
	teacher.ID = r.db.id()
	r.db.teachers[teacher.ID] = *teacher
	return teacher.ID, nil
}

func (r memTeachers) FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Teacher, error) {
	return r.byEmail(email), nil
}

func (r memTeachers) RequireByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Teacher, error) {
	if teacher := r.byEmail(email); teacher != nil {
		return teacher, nil
	}
	return nil, appErrors.NotFound("teacher", "email", email)
}

func (r memTeachers) FindByID(ctx context.Context, id int64) (*models.Teacher, error) {
	teacher, ok := r.db.teachers[id]
	if !ok {
		return nil, nil
	}
	return &teacher, nil
}

func (r memTeachers) Create(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) (int64, error) {
	if r.byEmail(teacher.Email) != nil {
		return 0, appErrors.UniqueConstraint("teacher", "email", teacher.Email)
	}
	teacher.ID = r.db.id()
	r.db.teachers[teacher.ID] = *teacher
	return teacher.ID, nil
}

func (r memTeachers) mutate(id int64, change func(*models.Teacher)) (*models.Teacher, error) {
	teacher, ok := r.db.teachers[id]
	if !ok {
		return nil, appErrors.NotFound("teacher", "id", id)
	}
	change(&teacher)
	teacher.UpdatedAt = time.Now()
	r.db.teachers[id] = teacher
	return &teacher, nil
}

func (r memTeachers) UpdateProfile(ctx context.Context, id int64, name, email *string) (*models.Teacher, error) {
	if _, ok := r.db.teachers[id]; !ok {
		return nil, appErrors.NotFound("teacher", "id", id)
	}
	if email != nil {
		if owner := r.byEmail(*email); owner != nil && owner.ID != id {
			return nil, appErrors.UniqueConstraint("teacher", "email", *email)
		}
	}
	return r.mutate(id, func(t *models.Teacher) {
		if name != nil {
			t.Name = *name
		}
		if email != nil {
			t.Email = *email
		}
	})
}

func (r memTeachers) UpdatePassword(ctx context.Context, id int64, hash string) (*models.Teacher, error) {
	return r.mutate(id, func(t *models.Teacher) { t.Password = hash })
}

func (r memTeachers) Delete(ctx context.Context, id int64) (*models.Teacher, error) {
	teacher, ok := r.db.teachers[id]
	if !ok {
		return nil, appErrors.NotFound("teacher", "id", id)
	}
	delete(r.db.teachers, id)
	return &teacher, nil
}

type memStudents struct{ db *memDB }

func (r memStudents) byEmail(email string) *models.Student {
	for _, student := range r.db.students {
		if student.Email == email {
			cp := student
			return &cp
		}
	}
	return nil
}

func (r memStudents) CreateIfNotExists(ctx context.Context, exec sqlx.ExtContext, student *models.Student) (int64, error) {
	if student.Email == r.db.failStudentEmail {
		return 0, appErrors.Unknown(errors.New("connection reset"), "create student if not exists")
	}
	if existing := r.byEmail(student.Email); existing != nil {
		*student = *existing
		return existing.ID, nil
	}
	if student.Name == "" {
		student.Name = strings.Split(student.Email, "@")[0]
	}
	student.ID = r.db.id()
	r.db.students[student.ID] = *student
	return student.ID, nil
}

func (r memStudents) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	student, ok := r.db.students[id]
	if !ok {
		return nil, nil
	}
	return &student, nil
}

func (r memStudents) FindByIDs(ctx context.Context, ids []int64) ([]models.Student, error) {
	out := []models.Student{}
	for _, id := range ids {
		if student, ok := r.db.students[id]; ok {
			out = append(out, student)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memStudents) FindByEmails(ctx context.Context, emails []string) ([]models.Student, error) {
	out := []models.Student{}
	for _, email := range emails {
		if student := r.byEmail(email); student != nil {
			out = append(out, *student)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memStudents) RequireByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Student, error) {
	if student := r.byEmail(email); student != nil {
		return student, nil
	}
	return nil, appErrors.NotFound("student", "email", email)
}

func (r memStudents) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) (int64, error) {
	if r.byEmail(student.Email) != nil {
		return 0, appErrors.UniqueConstraint("student", "email", student.Email)
	}
	student.ID = r.db.id()
	r.db.students[student.ID] = *student
	return student.ID, nil
}

func (r memStudents) mutate(id int64, change func(*models.Student)) (*models.Student, error) {
	student, ok := r.db.students[id]
	if !ok {
		return nil, appErrors.NotFound("student", "id", id)
	}
	change(&student)
	r.db.students[id] = student
	return &student, nil
}

func (r memStudents) UpdateProfile(ctx context.Context, id int64, name, email *string) (*models.Student, error) {
	if _, ok := r.db.students[id]; !ok {
		return nil, appErrors.NotFound("student", "id", id)
	}
	if email != nil {
		if owner := r.byEmail(*email); owner != nil && owner.ID != id {
			return nil, appErrors.UniqueConstraint("student", "email", *email)
		}
	}
	return r.mutate(id, func(s *models.Student) {
		if name != nil {
			s.Name = *name
		}
		if email != nil {
			s.Email = *email
		}
	})
}

func (r memStudents) SetSuspended(ctx context.Context, id int64, suspended bool) (*models.Student, error) {
	return r.mutate(id, func(s *models.Student) { s.IsSuspended = suspended })
}

func (r memStudents) Delete(ctx context.Context, id int64) (*models.Student, error) {
	student, ok := r.db.students[id]
	if !ok {
		return nil, appErrors.NotFound("student", "id", id)
	}
	delete(r.db.students, id)
	return &student, nil
}

type memClasses struct{ db *memDB }

func (r memClasses) CreateIfNotExists(ctx context.Context, exec sqlx.ExtContext, class *models.Class) (int64, error) {
	for _, existing := range r.db.classes {
		if existing.Title == class.Title {
			*class = existing
			return existing.ID, nil
		}
	}
	class.ID = r.db.id()
	r.db.classes[class.ID] = *class
	return class.ID, nil
}

type memRegisters struct{ db *memDB }

func (r memRegisters) CreateIfNotExists(ctx context.Context, exec sqlx.ExtContext, key models.RegisterKey) (int64, error) {
	if _, ok := r.db.teachers[key.TeacherID]; !ok {
		return 0, appErrors.NotFound("teacher", "id", key.TeacherID)
	}
	if _, ok := r.db.students[key.StudentID]; !ok {
		return 0, appErrors.NotFound("student", "id", key.StudentID)
	}
	for _, existing := range r.db.registers {
		if existing.TeacherID == key.TeacherID && existing.StudentID == key.StudentID && existing.Key().ClassKey() == key.ClassKey() {
			return existing.ID, nil
		}
	}
	id := r.db.id()
	r.db.registers[id] = models.Register{ID: id, TeacherID: key.TeacherID, StudentID: key.StudentID, ClassID: key.ClassID}
	return id, nil
}

func (r memRegisters) StudentIDsOfTeacher(ctx context.Context, teacherID int64) ([]int64, error) {
	seen := map[int64]bool{}
	ids := []int64{}
	for _, register := range r.db.registers {
		if register.TeacherID == teacherID && !seen[register.StudentID] {
			seen[register.StudentID] = true
			ids = append(ids, register.StudentID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r memRegisters) StudentIDsOfTeachers(ctx context.Context, teacherIDs []int64) ([]int64, error) {
	counts := map[int64]int{}
	for _, teacherID := range teacherIDs {
		ids, _ := r.StudentIDsOfTeacher(ctx, teacherID)
		for _, id := range ids {
			counts[id]++
		}
	}
	out := []int64{}
	for id, count := range counts {
		if count == len(teacherIDs) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

type memNotifications struct{ db *memDB }

func (r memNotifications) Create(ctx context.Context, exec sqlx.ExtContext, n *models.Notification) (int64, error) {
	if _, ok := r.db.teachers[n.TeacherID]; !ok {
		return 0, appErrors.NotFound("teacher", "id", n.TeacherID)
	}
	n.ID = r.db.id()
	r.db.notifications[n.ID] = *n
	return n.ID, nil
}

func (r memNotifications) FindByID(ctx context.Context, id int64) (*models.Notification, error) {
	n, ok := r.db.notifications[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (r memNotifications) ListByTeacher(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	out := []models.Notification{}
	for _, n := range r.db.notifications {
		if n.TeacherID == filter.TeacherID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

// recordingCache is a queryCache that remembers invalidations.
type recordingCache struct {
	entries     map[string][]string
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[string][]string{}}
}

func (c *recordingCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	value, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*[]string)) = value
	return true, nil
}

func (c *recordingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.entries[key] = value.([]string)
	return nil
}

func (c *recordingCache) Invalidate(ctx context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	c.entries = map[string][]string{}
	return nil
}

// recordingQueue captures enqueued jobs.
type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(ctx context.Context, job jobs.Job) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	if job.ID == "" {
		job.ID = "job-1"
	}
	q.jobs = append(q.jobs, job)
	return job.ID, nil
}

package models

import "time"

// NoClassKey stands in for an absent class when comparing register triples.
const NoClassKey int64 = 0

// Register links a teacher and a student, optionally within a class.
type Register struct {
	ID        int64     `db:"id" json:"id"`
	TeacherID int64     `db:"teacher_id" json:"teacher_id"`
	StudentID int64     `db:"student_id" json:"student_id"`
	ClassID   *int64    `db:"class_id" json:"class_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterKey identifies a register by its unique triple.
type RegisterKey struct {
	TeacherID int64
	StudentID int64
	ClassID   *int64
}

// ClassKey returns the class id used for uniqueness, NoClassKey when absent.
func (k RegisterKey) ClassKey() int64 {
	if k.ClassID == nil {
		return NoClassKey
	}
	return *k.ClassID
}

// Key returns the unique triple of the register.
func (r Register) Key() RegisterKey {
	return RegisterKey{TeacherID: r.TeacherID, StudentID: r.StudentID, ClassID: r.ClassID}
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

func newRegistrationFixture() (*RegistrationService, *memDB, *memTransactor, *recordingCache) {
	db := newMemDB()
	tx := &memTransactor{db: db}
	cache := newRecordingCache()
	svc := NewRegistrationService(tx, memTeachers{db}, memStudents{db}, memClasses{db}, memRegisters{db}, cache, NewMetricsService(), zap.NewNop())
	return svc, db, tx, cache
}

func TestRegisterStudentsIsIdempotent(t *testing.T) {
	svc, db, _, _ := newRegistrationFixture()
	ctx := context.Background()
	class := "P1"
	students := []string{"studentjon@gmail.com", "studenthon@gmail.com", "studentjon@gmail.com"}

	first, err := svc.RegisterStudents(ctx, "teacherken@gmail.com", students, &class)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, first[0], first[2])
	assert.NotEqual(t, first[0], first[1])

	second, err := svc.RegisterStudents(ctx, "teacherken@gmail.com", students, &class)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Len(t, db.teachers, 1)
	assert.Len(t, db.students, 2)
	assert.Len(t, db.classes, 1)
	assert.Len(t, db.registers, 2)
}

func TestRegisterStudentsDefaultsLazyTeacher(t *testing.T) {
	svc, db, _, _ := newRegistrationFixture()

	_, err := svc.RegisterStudents(context.Background(), "teacherken@gmail.com", []string{"studentjon@gmail.com"}, nil)
	require.NoError(t, err)

	teacher := memTeachers{db}.byEmail("teacherken@gmail.com")
	require.NotNil(t, teacher)
	assert.Equal(t, "teacherken", teacher.Name)
}

func TestRegisterStudentsClassIsPartOfTheKey(t *testing.T) {
	svc, db, _, _ := newRegistrationFixture()
	ctx := context.Background()
	class := "P1"

	withoutClass, err := svc.RegisterStudents(ctx, "teacherken@gmail.com", []string{"studentjon@gmail.com"}, nil)
	require.NoError(t, err)
	withClass, err := svc.RegisterStudents(ctx, "teacherken@gmail.com", []string{"studentjon@gmail.com"}, &class)
	require.NoError(t, err)
	again, err := svc.RegisterStudents(ctx, "teacherken@gmail.com", []string{"studentjon@gmail.com"}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, withoutClass[0], withClass[0])
	assert.Equal(t, withoutClass, again)
	assert.Len(t, db.registers, 2)
}

func TestRegisterStudentsBlankClassMeansNoClass(t *testing.T) {
	svc, db, _, _ := newRegistrationFixture()
	blank := "  "

	_, err := svc.RegisterStudents(context.Background(), "teacherken@gmail.com", []string{"studentjon@gmail.com"}, &blank)
	require.NoError(t, err)
	assert.Empty(t, db.classes)
}

func TestRegisterStudentsTrimsClassTitle(t *testing.T) {
	svc, db, _, _ := newRegistrationFixture()
	ctx := context.Background()
	padded, plain := " 1A ", "1A"

	first, err := svc.RegisterStudents(ctx, "teacherken@gmail.com", []string{"studentjon@gmail.com"}, &padded)
	require.NoError(t, err)
	second, err := svc.RegisterStudents(ctx, "teacherken@gmail.com", []string{"studentjon@gmail.com"}, &plain)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, db.classes, 1)
	for _, class := range db.classes {
		assert.Equal(t, "1A", class.Title)
	}
}

func TestRegisterStudentsRollsBackOnFailure(t *testing.T) {
	svc, db, tx, cache := newRegistrationFixture()
	db.failStudentEmail = "broken@gmail.com"
	class := "P1"

	ids, err := svc.RegisterStudents(context.Background(), "teacherken@gmail.com",
		[]string{"studentjon@gmail.com", "broken@gmail.com"}, &class)
	require.Error(t, err)
	assert.Nil(t, ids)
	assert.True(t, appErrors.IsKind(err, appErrors.KindUnknown))
	assert.Contains(t, err.Error(), "connection reset")

	assert.Empty(t, db.teachers)
	assert.Empty(t, db.students)
	assert.Empty(t, db.classes)
	assert.Empty(t, db.registers)
	assert.Zero(t, tx.commits)
	assert.Empty(t, cache.invalidated)
}

func TestRegisterStudentsInvalidatesQueryCache(t *testing.T) {
	svc, _, _, cache := newRegistrationFixture()
	cache.entries["common:teacherken@gmail.com"] = []string{"stale@gmail.com"}

	_, err := svc.RegisterStudents(context.Background(), "teacherken@gmail.com", []string{"studentjon@gmail.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{queryCachePattern}, cache.invalidated)
	assert.Empty(t, cache.entries)
}

func TestCreateStudentRefreshesCachedRecipients(t *testing.T) {
	cache := newRecordingCache()
	queries, db := newQueryFixture(cache)
	students := NewStudentService(memStudents{db}, cache, nil, zap.NewNop())
	db.addTeacher("teacherken@gmail.com")
	ctx := context.Background()

	before, err := queries.GetNotificationRecipients(ctx, "teacherken@gmail.com", "hello @new@gmail.com")
	require.NoError(t, err)
	assert.Empty(t, before)

	_, err = students.Create(ctx, CreateStudentRequest{Name: "New", Email: "new@gmail.com"})
	require.NoError(t, err)

	after, err := queries.GetNotificationRecipients(ctx, "teacherken@gmail.com", "hello @new@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"new@gmail.com"}, after)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/roster-api/pkg/errors"
	"github.com/noah-isme/roster-api/pkg/mention"
)

func newQueryFixture(cache queryCache) (*QueryService, *memDB) {
	db := newMemDB()
	svc := NewQueryService(memTeachers{db}, memStudents{db}, memRegisters{db}, mention.NewExtractor(nil), cache, zap.NewNop())
	return svc, db
}

func TestFindCommonStudentsIntersects(t *testing.T) {
	svc, db := newQueryFixture(nil)
	t1 := db.addTeacher("teacher1@gmail.com")
	t2 := db.addTeacher("teacher2@gmail.com")
	studentMax := db.addStudent("studentmax@gmail.com", false)
	matt := db.addStudent("studentmatt@gmail.com", false)
	may := db.addStudent("studentmay@gmail.com", false)
	db.register(t1, studentMax, matt)
	db.register(t2, may, matt)

	students, err := svc.FindCommonStudents(context.Background(), []string{"teacher1@gmail.com", "teacher2@gmail.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"studentmatt@gmail.com"}, students)

	single, err := svc.FindCommonStudents(context.Background(), []string{"teacher1@gmail.com"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"studentmax@gmail.com", "studentmatt@gmail.com"}, single)
}

func TestFindCommonStudentsKeepsRepeatedTeacherCount(t *testing.T) {
	svc, db := newQueryFixture(nil)
	t1 := db.addTeacher("teacher1@gmail.com")
	db.register(t1, db.addStudent("studentmax@gmail.com", false))

	students, err := svc.FindCommonStudents(context.Background(), []string{"teacher1@gmail.com", "teacher1@gmail.com"})
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestFindCommonStudentsMissingTeacher(t *testing.T) {
	svc, db := newQueryFixture(nil)
	db.addTeacher("teacher1@gmail.com")

	students, err := svc.FindCommonStudents(context.Background(), []string{"teacher1@gmail.com", "ghost@x.com"})
	require.Error(t, err)
	assert.Nil(t, students)
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
	assert.Contains(t, err.Error(), "ghost@x.com")
}

func TestGetNotificationRecipientsUnionMinusSuspended(t *testing.T) {
	svc, db := newQueryFixture(nil)
	teacher := db.addTeacher("teacherken@gmail.com")
	studentMax := db.addStudent("studentmax@gmail.com", false)
	matt := db.addStudent("studentmatt@gmail.com", true)
	db.addStudent("studentmay@gmail.com", false)
	db.register(teacher, studentMax, matt)

	recipients, err := svc.GetNotificationRecipients(context.Background(), "teacherken@gmail.com", "Hello students! @studentmay@gmail.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"studentmax@gmail.com", "studentmay@gmail.com"}, recipients)
}

func TestGetNotificationRecipientsIgnoresUnknownTagAndDuplicates(t *testing.T) {
	svc, db := newQueryFixture(nil)
	teacher := db.addTeacher("teacherken@gmail.com")
	studentMax := db.addStudent("studentmax@gmail.com", false)
	db.register(teacher, studentMax)

	recipients, err := svc.GetNotificationRecipients(context.Background(), "teacherken@gmail.com",
		"Hey @ghost@x.com and @studentmax@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"studentmax@gmail.com"}, recipients)
}

func TestGetNotificationRecipientsSuspendedTagStaysExcluded(t *testing.T) {
	svc, db := newQueryFixture(nil)
	db.addTeacher("teacherken@gmail.com")
	db.addStudent("studentbob@gmail.com", true)

	recipients, err := svc.GetNotificationRecipients(context.Background(), "teacherken@gmail.com", "@studentbob@gmail.com")
	require.NoError(t, err)
	assert.Empty(t, recipients)
	assert.NotNil(t, recipients)
}

func TestGetNotificationRecipientsMissingTeacher(t *testing.T) {
	svc, _ := newQueryFixture(nil)

	_, err := svc.GetNotificationRecipients(context.Background(), "ghost@x.com", "hi")
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
}

func TestQueryServiceServesFromCache(t *testing.T) {
	cache := newRecordingCache()
	svc, db := newQueryFixture(cache)
	t1 := db.addTeacher("teacher1@gmail.com")
	db.register(t1, db.addStudent("studentmax@gmail.com", false))

	first, err := svc.FindCommonStudents(context.Background(), []string{"teacher1@gmail.com"})
	require.NoError(t, err)
	assert.Contains(t, cache.entries, commonStudentsCacheKey([]string{"teacher1@gmail.com"}))

	// The store changes but the cached answer is returned until invalidated.
	delete(db.teachers, t1.ID)
	second, err := svc.FindCommonStudents(context.Background(), []string{"teacher1@gmail.com"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, cache.Invalidate(context.Background(), queryCachePattern))
	_, err = svc.FindCommonStudents(context.Background(), []string{"teacher1@gmail.com"})
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
}

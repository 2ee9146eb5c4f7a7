package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alem-hub/student-records/internal/domain/course"
	"github.com/alem-hub/student-records/internal/domain/shared"
	"github.com/alem-hub/student-records/internal/domain/student"
	"github.com/alem-hub/student-records/pkg/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a migrated, seeded store in a temporary file.
// A file is used instead of :memory: so every pooled connection sees the
// same database.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "records.db")

	ctx := context.Background()
	store, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(ctx))
	_, err = store.Courses().SeedDefaults(ctx)
	require.NoError(t, err)

	return store
}

func mustStudent(t *testing.T, id, name string, grade float64, courses ...string) *student.Student {
	t.Helper()

	s, err := student.Restore(student.RestoreParams{
		ID:             id,
		Name:           name,
		Age:            30,
		Grade:          grade,
		EnrollmentDate: timeutil.Date(2024, time.February, 29),
		Courses:        courses,
	})
	require.NoError(t, err)
	return s
}

func addStudent(t *testing.T, store *Store, s *student.Student) {
	t.Helper()

	err := store.Transact(context.Background(), func(uow student.UnitOfWork) error {
		if err := uow.Students().Create(context.Background(), s); err != nil {
			return err
		}
		return uow.Enrollments().Enroll(context.Background(), s.ID(), s.Courses())
	})
	require.NoError(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	version, err := store.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestSeedDefaults_OnlyWhenEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	catalog, err := store.Courses().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, course.DefaultCatalog().Names(), catalog.Names())

	seeded, err := store.Courses().SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, seeded)

	count, err := store.Courses().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestStudentRepository_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := mustStudent(t, "stu-1", "Ada Lovelace", 92.5, "MATH101", "CS101")
	addStudent(t, store, in)

	got, err := store.Students().GetByID(ctx, "stu-1")
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", got.Name())
	assert.Equal(t, 30, got.Age())
	assert.Equal(t, 92.5, got.Grade())
	assert.Equal(t, timeutil.Date(2024, time.February, 29), got.EnrollmentDate())
	assert.Equal(t, []string{"MATH101", "CS101"}, got.Courses())
}

func TestStudentRepository_GetByID_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Students().GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, student.ErrStudentNotFound)
	assert.True(t, shared.IsNotFound(err))
}

func TestStudentRepository_CreateDuplicate(t *testing.T) {
	store := newTestStore(t)
	addStudent(t, store, mustStudent(t, "dup", "Ada", 50))

	err := store.Students().Create(context.Background(), mustStudent(t, "dup", "Grace", 60))
	assert.ErrorIs(t, err, student.ErrStudentAlreadyExists)
}

func TestStudentRepository_UpdateMissingRow(t *testing.T) {
	store := newTestStore(t)

	updated, err := store.Students().Update(context.Background(), "ghost", mustStudent(t, "ghost", "Ada", 50))
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestStudentRepository_DeleteCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	addStudent(t, store, mustStudent(t, "stu-1", "Ada", 50, "CS101", "PHYS101"))

	require.NoError(t, store.Students().Delete(ctx, "stu-1"))
	require.NoError(t, store.Students().Delete(ctx, "stu-1"), "deleting twice is not an error")

	var n int
	require.NoError(t, store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM enrollments`).Scan(&n))
	assert.Zero(t, n)
}

func TestStudentRepository_ListOrderedByName(t *testing.T) {
	store := newTestStore(t)
	addStudent(t, store, mustStudent(t, "b", "Zoe", 70, "HIST101"))
	addStudent(t, store, mustStudent(t, "a", "Ada", 80))
	addStudent(t, store, mustStudent(t, "c", "Mia", 90, "CS101"))

	students, err := store.Students().List(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 3)

	assert.Equal(t, "Ada", students[0].Name())
	assert.Empty(t, students[0].Courses())
	assert.Equal(t, "Mia", students[1].Name())
	assert.Equal(t, []string{"CS101"}, students[1].Courses())
	assert.Equal(t, "Zoe", students[2].Name())
	assert.Equal(t, []string{"HIST101"}, students[2].Courses())
}

func TestStudentRepository_SearchMatchesWildcardsLiterally(t *testing.T) {
	store := newTestStore(t)
	addStudent(t, store, mustStudent(t, "id_100", "Ada", 80, "CS101"))
	addStudent(t, store, mustStudent(t, "id-200", "Grace", 70))
	addStudent(t, store, mustStudent(t, "x3", "Adam", 60))

	tests := []struct {
		query string
		want  []string
	}{
		{query: "Ada", want: []string{"Ada", "Adam"}},
		{query: "_", want: []string{"Ada"}},
		{query: "%", want: nil},
		{query: "200", want: []string{"Grace"}},
		{query: "", want: []string{"Ada", "Adam", "Grace"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("query %q", tt.query), func(t *testing.T) {
			found, err := store.Students().Search(context.Background(), tt.query)
			require.NoError(t, err)

			var names []string
			for _, s := range found {
				names = append(names, s.Name())
			}
			assert.Equal(t, tt.want, names)
		})
	}

	found, err := store.Students().Search(context.Background(), "id_1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []string{"CS101"}, found[0].Courses())
}

func TestStudentRepository_AverageGrade(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	avg, count, err := store.Students().AverageGrade(ctx)
	require.NoError(t, err)
	assert.Zero(t, avg)
	assert.Zero(t, count)

	addStudent(t, store, mustStudent(t, "1", "Ada", 0))
	addStudent(t, store, mustStudent(t, "2", "Bob", 80))
	addStudent(t, store, mustStudent(t, "3", "Cy", 90))

	avg, count, err = store.Students().AverageGrade(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 85.0, avg, 1e-9)
	assert.Equal(t, 2, count)
}

func TestEnrollmentRepository_UnknownCourse(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Transact(ctx, func(uow student.UnitOfWork) error {
		s := mustStudent(t, "stu-1", "Ada", 50)
		if err := uow.Students().Create(ctx, s); err != nil {
			return err
		}
		return uow.Enrollments().Enroll(ctx, s.ID(), []string{"CS101", "NOPE999"})
	})
	assert.ErrorIs(t, err, student.ErrUnknownCourse)

	_, err = store.Students().GetByID(ctx, "stu-1")
	assert.ErrorIs(t, err, student.ErrStudentNotFound, "student row must be rolled back")
}

func TestCourseRepository_CreateAndDeleteCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bio, err := course.New("BIO101", "Biology", 3)
	require.NoError(t, err)
	require.NoError(t, store.Courses().Create(ctx, bio))
	assert.ErrorIs(t, store.Courses().Create(ctx, bio), course.ErrCourseAlreadyExists)

	addStudent(t, store, mustStudent(t, "stu-1", "Ada", 50, "BIO101", "CS101"))

	require.NoError(t, store.Courses().Delete(ctx, "BIO101"))

	got, err := store.Students().GetByID(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"CS101"}, got.Courses())
}

func TestTransact_ConcurrentWriters(t *testing.T) {
	store := newTestStore(t)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := student.NewStudent(fmt.Sprintf("Writer %c", 'A'+i), 20+i, 50)
			if err != nil {
				errs <- err
				return
			}
			s.AddCourse("CS101")
			errs <- store.Transact(context.Background(), func(uow student.UnitOfWork) error {
				if err := uow.Students().Create(context.Background(), s); err != nil {
					return err
				}
				return uow.Enrollments().Enroll(context.Background(), s.ID(), s.Courses())
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	students, err := store.Students().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, students, writers)
}

func TestStore_ClosedIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.Ping(context.Background()), ErrStoreClosed)
	assert.ErrorIs(t, store.Migrate(context.Background()), ErrStoreClosed)
}

package student

import (
	"errors"
	"testing"
	"time"

	"github.com/alem-hub/student-records/internal/domain/shared"
	"github.com/alem-hub/student-records/pkg/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStudent_ValidFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		age   int
		grade float64
	}{
		{name: "simple", input: "Ada Lovelace", age: 30, grade: 92.50},
		{name: "lower bounds", input: "Al", age: 18, grade: 0},
		{name: "upper bounds", input: "Grace Hopper", age: 100, grade: 100},
		{name: "period and hyphen", input: "J. Smith-Jones", age: 45, grade: 67.89},
		{name: "non latin letters", input: "Әлия Жұмабаева", age: 21, grade: 88.1},
		{name: "one decimal", input: "Linus", age: 55, grade: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStudent(tt.input, tt.age, tt.grade)
			require.NoError(t, err)

			assert.Equal(t, tt.input, s.Name())
			assert.Equal(t, tt.age, s.Age())
			assert.Equal(t, tt.grade, s.Grade())
			assert.NotEmpty(t, s.ID())
			assert.Empty(t, s.Courses())
			assert.True(t, timeutil.IsSameDay(timeutil.Today(), s.EnrollmentDate()))
		})
	}
}

func TestNewStudent_TrimsName(t *testing.T) {
	s, err := NewStudent("  Ada Lovelace ", 30, 90)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", s.Name())
}

func TestNewStudent_DecomposedAccentsAccepted(t *testing.T) {
	// "e" followed by U+0301 COMBINING ACUTE ACCENT.
	s, err := NewStudent("Jose\u0301", 20, 70)
	require.NoError(t, err)
	assert.Equal(t, "Jose\u0301", s.Name())
}

func TestNewStudent_InvalidName(t *testing.T) {
	for _, name := range []string{"", "   ", "R2D2", "Ada_Lovelace", "Ada@home", "O'Neil", "Bob, Jr"} {
		t.Run(name, func(t *testing.T) {
			s, err := NewStudent(name, 30, 50)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, ErrInvalidName)
			assert.True(t, shared.IsValidation(err))
		})
	}
}

func TestNewStudent_InvalidAge(t *testing.T) {
	for _, age := range []int{-1, 0, 17, 101, 150} {
		s, err := NewStudent("Ada", age, 50)
		assert.Nil(t, s)
		assert.ErrorIs(t, err, ErrInvalidAge, "age %d", age)
		assert.True(t, shared.IsValidation(err))
	}
}

func TestNewStudent_InvalidGrade(t *testing.T) {
	tests := []struct {
		name  string
		grade float64
		want  error
	}{
		{name: "negative", grade: -0.01, want: ErrInvalidGrade},
		{name: "above max", grade: 100.01, want: ErrInvalidGrade},
		{name: "three decimals", grade: 85.555, want: ErrGradePrecision},
		{name: "tiny fraction", grade: 50.001, want: ErrGradePrecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStudent("Ada", 30, tt.grade)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, shared.IsValidation(err))
		})
	}
}

func TestNewStudent_TwoDecimalGradesAccepted(t *testing.T) {
	for cents := 0; cents <= 10000; cents += 37 {
		grade := float64(cents) / 100
		_, err := NewStudent("Ada", 30, grade)
		assert.NoError(t, err, "grade %.2f", grade)
	}
}

func TestRestore(t *testing.T) {
	date := time.Date(2023, time.September, 1, 15, 4, 5, 0, time.UTC)

	s, err := Restore(RestoreParams{
		ID:             "stu-1",
		Name:           "Ada Lovelace",
		Age:            30,
		Grade:          92.5,
		EnrollmentDate: date,
		Courses:        []string{"CS101", "MATH101", "CS101", " "},
	})
	require.NoError(t, err)

	assert.Equal(t, "stu-1", s.ID())
	assert.Equal(t, timeutil.Date(2023, time.September, 1), s.EnrollmentDate())
	assert.Equal(t, []string{"CS101", "MATH101"}, s.Courses())
}

func TestRestore_GeneratesMissingID(t *testing.T) {
	s, err := Restore(RestoreParams{Name: "Ada", Age: 30, Grade: 50})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.False(t, s.EnrollmentDate().IsZero())
}

func TestRestore_ValidatesFields(t *testing.T) {
	_, err := Restore(RestoreParams{ID: "x", Name: "Ada", Age: 10, Grade: 50})
	assert.ErrorIs(t, err, ErrInvalidAge)
}

func TestSetters_DoNotMutateOnFailure(t *testing.T) {
	s, err := NewStudent("Ada", 30, 90)
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetName("Ada 2"), ErrInvalidName)
	assert.ErrorIs(t, s.SetAge(12), ErrInvalidAge)
	assert.ErrorIs(t, s.SetGrade(85.555), ErrGradePrecision)
	assert.ErrorIs(t, s.SetEnrollmentDate(time.Time{}), ErrInvalidEnrollmentDate)

	assert.Equal(t, "Ada", s.Name())
	assert.Equal(t, 30, s.Age())
	assert.Equal(t, 90.0, s.Grade())

	require.NoError(t, s.SetName("Grace"))
	require.NoError(t, s.SetAge(40))
	require.NoError(t, s.SetGrade(77.25))
	assert.Equal(t, "Grace", s.Name())
	assert.Equal(t, 40, s.Age())
	assert.Equal(t, 77.25, s.Grade())
}

func TestAddCourse_Idempotent(t *testing.T) {
	s, err := NewStudent("Ada", 30, 90)
	require.NoError(t, err)

	s.AddCourse("CS101")
	s.AddCourse("CS101")
	s.AddCourse("MATH101")

	assert.Equal(t, []string{"CS101", "MATH101"}, s.Courses())
}

func TestRemoveCourse(t *testing.T) {
	s, err := NewStudent("Ada", 30, 90)
	require.NoError(t, err)
	s.AddCourse("CS101")
	s.AddCourse("MATH101")

	s.RemoveCourse("CS101")
	s.RemoveCourse("NOPE")

	assert.Equal(t, []string{"MATH101"}, s.Courses())
	assert.False(t, s.HasCourse("CS101"))
}

func TestCourses_ReturnsSnapshot(t *testing.T) {
	s, err := NewStudent("Ada", 30, 90)
	require.NoError(t, err)
	s.AddCourse("CS101")

	courses := s.Courses()
	courses[0] = "HACKED"

	assert.Equal(t, []string{"CS101"}, s.Courses())
}

func TestEqual_ByID(t *testing.T) {
	a, err := Restore(RestoreParams{ID: "same", Name: "Ada", Age: 30, Grade: 90})
	require.NoError(t, err)
	b, err := Restore(RestoreParams{ID: "same", Name: "Grace", Age: 50, Grade: 10})
	require.NoError(t, err)
	c, err := Restore(RestoreParams{ID: "other", Name: "Ada", Age: 30, Grade: 90})
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.Equal(t, a.Key(), b.Key())
}

func TestGPA(t *testing.T) {
	credits := map[string]int{"CS101": 5, "MATH101": 4}

	s, err := NewStudent("Ada", 30, 90)
	require.NoError(t, err)

	assert.Equal(t, 0.0, s.GPA(credits), "no courses")

	s.AddCourse("CS101")
	s.AddCourse("UNKNOWN")
	assert.InDelta(t, 3.5, s.GPA(credits), 1e-9)
	assert.Equal(t, 0.0, s.GPA(nil), "no credit table")
	assert.InDelta(t, 3.5, s.GPA(map[string]int{}), 1e-9, "empty table weighs every course at 1")

	low, err := NewStudent("Bob", 30, 10)
	require.NoError(t, err)
	low.AddCourse("CS101")
	assert.Equal(t, 0.0, low.GPA(credits), "points are clamped at zero")
}

func TestDetails(t *testing.T) {
	s, err := Restore(RestoreParams{
		ID:             "stu-1",
		Name:           "Ada Lovelace",
		Age:            30,
		Grade:          92.5,
		EnrollmentDate: timeutil.Date(2023, time.September, 1),
		Courses:        []string{"cs101"},
	})
	require.NoError(t, err)

	details := s.Details()
	assert.Contains(t, details, "ID: stu-1")
	assert.Contains(t, details, "Average Grade: 92.50")
	assert.Contains(t, details, "Enrolled: 2023-09-01")
	assert.Contains(t, details, "Courses: [CS101]")
}

func TestClone_IsDeep(t *testing.T) {
	s, err := NewStudent("Ada", 30, 90)
	require.NoError(t, err)
	s.AddCourse("CS101")

	clone := s.Clone()
	clone.AddCourse("MATH101")
	require.NoError(t, clone.SetName("Grace"))

	assert.Equal(t, []string{"CS101"}, s.Courses())
	assert.Equal(t, "Ada", s.Name())
	assert.True(t, s.Equal(clone))
}

func TestErrors_KindMatching(t *testing.T) {
	_, err := NewStudent("1", 30, 50)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "student", domainErr.Domain)
	assert.False(t, shared.IsPersistence(err))
}

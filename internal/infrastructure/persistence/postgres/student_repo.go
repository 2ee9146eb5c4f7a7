package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alem-hub/student-records/internal/domain/student"
	"github.com/alem-hub/student-records/pkg/timeutil"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const selectStudentColumns = `SELECT studentID, name, age, grade, enrollmentDate FROM students`

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	q Querier
}

// NewStudentRepository creates a new StudentRepository on a pool or transaction.
func NewStudentRepository(q Querier) *StudentRepository {
	return &StudentRepository{q: q}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts the student row. Enrollments are written separately.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (studentID, name, age, grade, enrollmentDate)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.Exec(ctx, query,
		s.ID(),
		s.Name(),
		s.Age(),
		s.Grade(),
		s.EnrollmentDate(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return student.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// Update overwrites name, age and grade of the row with the given ID.
func (r *StudentRepository) Update(ctx context.Context, id string, s *student.Student) (bool, error) {
	query := `
		UPDATE students SET
			name = $1,
			age = $2,
			grade = $3
		WHERE studentID = $4
	`

	result, err := r.q.Exec(ctx, query, s.Name(), s.Age(), s.Grade(), id)
	if err != nil {
		return false, fmt.Errorf("failed to update student: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Delete removes the student row. Enrollments go with it via ON DELETE CASCADE.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM students WHERE studentID = $1`, id); err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	return nil
}

// GetByID returns a student with its courses.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	raws, err := r.queryRows(ctx, selectStudentColumns+` WHERE studentID = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, student.ErrStudentNotFound
	}

	raw := raws[0]
	courses, err := NewEnrollmentRepository(r.q).ListByStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	raw.Courses = courses

	return student.Restore(raw)
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// List returns all students ordered by name.
func (r *StudentRepository) List(ctx context.Context) ([]*student.Student, error) {
	return r.queryStudents(ctx, "")
}

// Search returns students whose name or ID contains query, ignoring case.
// LIKE wildcards in query are matched literally.
func (r *StudentRepository) Search(ctx context.Context, query string) ([]*student.Student, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.queryStudents(ctx, `WHERE name ILIKE $1 OR studentID ILIKE $1`, pattern)
}

// AverageGrade returns the mean grade over students with a positive grade.
func (r *StudentRepository) AverageGrade(ctx context.Context) (float64, int, error) {
	query := `SELECT COALESCE(AVG(grade), 0), COUNT(*) FROM students WHERE grade > 0`

	var avg float64
	var count int
	if err := r.q.QueryRow(ctx, query).Scan(&avg, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to calculate average grade: %w", err)
	}

	return avg, count, nil
}

func (r *StudentRepository) queryStudents(ctx context.Context, filter string, args ...any) ([]*student.Student, error) {
	raws, err := r.queryRows(ctx, selectStudentColumns+" "+filter+` ORDER BY name ASC, studentID ASC`, args...)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return []*student.Student{}, nil
	}

	enrollmentQuery := `SELECT studentID, courseCode FROM enrollments`
	if filter != "" {
		enrollmentQuery += ` WHERE studentID IN (SELECT studentID FROM students ` + filter + `)`
	}
	enrollmentQuery += ` ORDER BY studentID, position, courseCode`

	courses, err := loadCourses(ctx, r.q, enrollmentQuery, args...)
	if err != nil {
		return nil, err
	}

	students := make([]*student.Student, 0, len(raws))
	for _, raw := range raws {
		raw.Courses = courses[raw.ID]
		s, err := student.Restore(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid student row %s: %w", raw.ID, err)
		}
		students = append(students, s)
	}

	return students, nil
}

// queryRows collects student rows; CollectRows closes rows before returning,
// so the connection is free for the enrollment query.
func (r *StudentRepository) queryRows(ctx context.Context, query string, args ...any) ([]student.RestoreParams, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}

	raws, err := pgx.CollectRows(rows, scanStudentRow)
	if err != nil {
		return nil, fmt.Errorf("failed to scan students: %w", err)
	}
	return raws, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanStudentRow(row pgx.CollectableRow) (student.RestoreParams, error) {
	var raw student.RestoreParams
	var enrolled time.Time

	if err := row.Scan(&raw.ID, &raw.Name, &raw.Age, &raw.Grade, &enrolled); err != nil {
		return raw, err
	}
	raw.EnrollmentDate = timeutil.StartOfDay(enrolled)

	return raw, nil
}

func loadCourses(ctx context.Context, q Querier, query string, args ...any) (map[string][]string, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	courses := make(map[string][]string)
	for rows.Next() {
		var studentID, code string
		if err := rows.Scan(&studentID, &code); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		courses[studentID] = append(courses[studentID], code)
	}

	return courses, rows.Err()
}

// escapeLike escapes LIKE wildcards for the default '\' escape character.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements student.EnrollmentRepository for PostgreSQL.
type EnrollmentRepository struct {
	q Querier
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(q Querier) *EnrollmentRepository {
	return &EnrollmentRepository{q: q}
}

// Enroll inserts one enrollment per course, keeping the list order.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID string, courseCodes []string) error {
	query := `
		INSERT INTO enrollments (studentID, courseCode, enrollmentGrade, position)
		VALUES ($1, $2, NULL, $3)
	`

	for i, code := range courseCodes {
		if _, err := r.q.Exec(ctx, query, studentID, code, i); err != nil {
			if IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: %s", student.ErrUnknownCourse, code)
			}
			return fmt.Errorf("failed to enroll student in %s: %w", code, err)
		}
	}

	return nil
}

// DeleteByStudent removes every enrollment of the student.
func (r *EnrollmentRepository) DeleteByStudent(ctx context.Context, studentID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM enrollments WHERE studentID = $1`, studentID); err != nil {
		return fmt.Errorf("failed to delete enrollments: %w", err)
	}
	return nil
}

// ListByStudent returns the student's course codes in enrollment order.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]string, error) {
	query := `SELECT studentID, courseCode FROM enrollments WHERE studentID = $1 ORDER BY position, courseCode`

	courses, err := loadCourses(ctx, r.q, query, studentID)
	if err != nil {
		return nil, err
	}
	return courses[studentID], nil
}

package sqlite

import (
	"context"
	"fmt"

	"github.com/alem-hub/student-records/internal/domain/course"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository for SQLite.
type CourseRepository struct {
	q Querier
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(q Querier) *CourseRepository {
	return &CourseRepository{q: q}
}

// List returns the catalog ordered by course code.
func (r *CourseRepository) List(ctx context.Context) (course.Catalog, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT courseCode, courseName, credits FROM courses ORDER BY courseCode`)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	catalog := course.Catalog{}
	for rows.Next() {
		var code, name string
		var credits int
		if err := rows.Scan(&code, &name, &credits); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}

		c, err := course.New(code, name, credits)
		if err != nil {
			return nil, fmt.Errorf("invalid course row %s: %w", code, err)
		}
		catalog = append(catalog, c)
	}

	return catalog, rows.Err()
}

// Count returns the number of courses.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}

// Create adds a course to the catalog.
func (r *CourseRepository) Create(ctx context.Context, c course.Course) error {
	query := `INSERT INTO courses (courseCode, courseName, credits) VALUES (?, ?, ?)`

	if _, err := r.q.ExecContext(ctx, query, c.Code(), c.Name(), c.Credits()); err != nil {
		if IsUniqueViolation(err) {
			return course.ErrCourseAlreadyExists
		}
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

// Delete removes a course. Enrollments in it are removed by ON DELETE CASCADE.
func (r *CourseRepository) Delete(ctx context.Context, code string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM courses WHERE courseCode = ?`, code); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	return nil
}

// SeedDefaults inserts the default catalog when the table is empty.
func (r *CourseRepository) SeedDefaults(ctx context.Context) (int, error) {
	count, err := r.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	query := `
		INSERT INTO courses (courseCode, courseName, credits)
		VALUES (?, ?, ?)
		ON CONFLICT (courseCode) DO NOTHING
	`

	seeded := 0
	for _, c := range course.DefaultCatalog() {
		result, err := r.q.ExecContext(ctx, query, c.Code(), c.Name(), c.Credits())
		if err != nil {
			return seeded, fmt.Errorf("failed to seed course %s: %w", c.Code(), err)
		}
		if n, err := result.RowsAffected(); err == nil {
			seeded += int(n)
		}
	}

	return seeded, nil
}

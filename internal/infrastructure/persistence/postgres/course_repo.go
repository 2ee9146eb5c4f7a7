package postgres

import (
	"context"
	"fmt"

	"github.com/alem-hub/student-records/internal/domain/course"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository for PostgreSQL.
type CourseRepository struct {
	q Querier
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(q Querier) *CourseRepository {
	return &CourseRepository{q: q}
}

// List returns the catalog ordered by course code.
func (r *CourseRepository) List(ctx context.Context) (course.Catalog, error) {
	rows, err := r.q.Query(ctx, `SELECT courseCode, courseName, credits FROM courses ORDER BY courseCode`)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}

	catalog, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (course.Course, error) {
		var code, name string
		var credits int
		if err := row.Scan(&code, &name, &credits); err != nil {
			return course.Course{}, err
		}
		return course.New(code, name, credits)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan courses: %w", err)
	}

	return course.Catalog(catalog), nil
}

// Count returns the number of courses.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}

// Create adds a course to the catalog.
func (r *CourseRepository) Create(ctx context.Context, c course.Course) error {
	query := `INSERT INTO courses (courseCode, courseName, credits) VALUES ($1, $2, $3)`

	if _, err := r.q.Exec(ctx, query, c.Code(), c.Name(), c.Credits()); err != nil {
		if IsUniqueViolation(err) {
			return course.ErrCourseAlreadyExists
		}
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

// Delete removes a course. Enrollments in it are removed by ON DELETE CASCADE.
func (r *CourseRepository) Delete(ctx context.Context, code string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM courses WHERE courseCode = $1`, code); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	return nil
}

// SeedDefaults inserts the default catalog in one batch when the table is empty.
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
		VALUES ($1, $2, $3)
		ON CONFLICT (courseCode) DO NOTHING
	`

	seeded := 0
	for _, c := range course.DefaultCatalog() {
		tag, err := r.q.Exec(ctx, query, c.Code(), c.Name(), c.Credits())
		if err != nil {
			return seeded, fmt.Errorf("failed to seed course %s: %w", c.Code(), err)
		}
		seeded += int(tag.RowsAffected())
	}

	return seeded, nil
}

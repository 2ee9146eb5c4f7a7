package manager

import (
	"context"

	"github.com/alem-hub/student-records/internal/domain/course"
	"github.com/alem-hub/student-records/internal/domain/shared"
	"github.com/alem-hub/student-records/internal/domain/student"
)

// ListCourses returns the catalog ordered by code, or an empty catalog on failure.
func (m *Manager) ListCourses(ctx context.Context) course.Catalog {
	if err := m.Init(ctx); err != nil {
		return course.Catalog{}
	}

	catalog, err := m.store.Courses().List(ctx)
	if err != nil {
		m.logger.Error("failed to list courses", "error", err)
		return course.Catalog{}
	}
	return catalog
}

// GetAllCourses returns course code -> course name.
func (m *Manager) GetAllCourses(ctx context.Context) map[string]string {
	return m.ListCourses(ctx).Names()
}

// CourseCredits returns course code -> credits.
func (m *Manager) CourseCredits(ctx context.Context) map[string]int {
	return m.ListCourses(ctx).Credits()
}

// StudentGPA returns the credit-weighted GPA of s on a 4.0 scale.
func (m *Manager) StudentGPA(ctx context.Context, s *student.Student) float64 {
	if s == nil {
		return 0
	}
	return s.GPA(m.CourseCredits(ctx))
}

// AddCourse adds a course to the catalog.
func (m *Manager) AddCourse(ctx context.Context, c course.Course) error {
	if err := m.Init(ctx); err != nil {
		return err
	}

	if err := m.store.Courses().Create(context.WithoutCancel(ctx), c); err != nil {
		m.logger.Error("failed to add course", "course", c.Code(), "error", err)
		return shared.WrapError("manager", "AddCourse", shared.ErrPersistence, "failed to add course", err)
	}
	return nil
}

// RemoveCourse deletes a course; enrollments in it are removed by cascade.
func (m *Manager) RemoveCourse(ctx context.Context, code string) error {
	if err := m.Init(ctx); err != nil {
		return err
	}

	if err := m.store.Courses().Delete(context.WithoutCancel(ctx), code); err != nil {
		m.logger.Error("failed to remove course", "course", code, "error", err)
		return shared.WrapError("manager", "RemoveCourse", shared.ErrPersistence, "failed to remove course", err)
	}
	return nil
}

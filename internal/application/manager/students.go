package manager

import (
	"context"
	"errors"

	"github.com/alem-hub/student-records/internal/domain/shared"
	"github.com/alem-hub/student-records/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// WRITE OPERATIONS
// Each write is one transaction spanning the student row and its
// enrollments. Once started it is detached from caller cancellation so it
// always ends in commit or rollback.
// ══════════════════════════════════════════════════════════════════════════════

var errNilStudent = shared.NewDomainError("manager", "Validate", shared.ErrValidation, "student is required")

// AddStudent inserts the student and its enrollments atomically.
func (m *Manager) AddStudent(ctx context.Context, s *student.Student) error {
	if s == nil {
		return errNilStudent
	}
	if err := m.Init(ctx); err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	err := m.store.Transact(ctx, func(uow student.UnitOfWork) error {
		if err := uow.Students().Create(ctx, s); err != nil {
			return err
		}
		return uow.Enrollments().Enroll(ctx, s.ID(), s.Courses())
	})
	if err != nil {
		m.logger.Error("failed to add student", "student_id", s.ID(), "error", err)
		return shared.WrapError("manager", "AddStudent", shared.ErrPersistence, "failed to add student", err)
	}

	m.logger.Debug("student added", "student_id", s.ID(), "courses", len(s.Courses()))
	return nil
}

// UpdateStudent overwrites name, age and grade of id and replaces its
// enrollments with s.Courses(). An unknown id is a silent no-op.
func (m *Manager) UpdateStudent(ctx context.Context, id string, s *student.Student) error {
	if s == nil {
		return errNilStudent
	}
	if err := m.Init(ctx); err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	matched := true
	err := m.store.Transact(ctx, func(uow student.UnitOfWork) error {
		updated, err := uow.Students().Update(ctx, id, s)
		if err != nil {
			return err
		}
		matched = updated
		if !updated {
			return nil
		}

		if err := uow.Enrollments().DeleteByStudent(ctx, id); err != nil {
			return err
		}
		return uow.Enrollments().Enroll(ctx, id, s.Courses())
	})
	if err != nil {
		m.logger.Error("failed to update student", "student_id", id, "error", err)
		return shared.WrapError("manager", "UpdateStudent", shared.ErrPersistence, "failed to update student", err)
	}

	if !matched {
		m.logger.Debug("update matched no student", "student_id", id)
	}
	return nil
}

// RemoveStudent deletes the student; enrollments follow by cascade.
// Removing an absent id is not an error.
func (m *Manager) RemoveStudent(ctx context.Context, id string) error {
	if err := m.Init(ctx); err != nil {
		return err
	}

	if err := m.store.Students().Delete(context.WithoutCancel(ctx), id); err != nil {
		m.logger.Error("failed to remove student", "student_id", id, "error", err)
		return shared.WrapError("manager", "RemoveStudent", shared.ErrPersistence, "failed to remove student", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// READ OPERATIONS
// List-style reads degrade to empty results on store failure; the failure
// is logged, not returned.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudent returns one student with its courses.
func (m *Manager) GetStudent(ctx context.Context, id string) (*student.Student, error) {
	if err := m.Init(ctx); err != nil {
		return nil, err
	}

	s, err := m.store.Students().GetByID(ctx, id)
	if errors.Is(err, student.ErrStudentNotFound) {
		return nil, err
	}
	if err != nil {
		m.logger.Error("failed to load student", "student_id", id, "error", err)
		return nil, shared.WrapError("manager", "GetStudent", shared.ErrPersistence, "failed to load student", err)
	}
	return s, nil
}

// DisplayAllStudents returns every student ordered by name.
func (m *Manager) DisplayAllStudents(ctx context.Context) []*student.Student {
	if err := m.Init(ctx); err != nil {
		return []*student.Student{}
	}

	students, err := m.store.Students().List(ctx)
	if err != nil {
		m.logger.Error("failed to list students", "error", err)
		return []*student.Student{}
	}
	return students
}

// SearchStudents returns students whose name or ID contains query.
func (m *Manager) SearchStudents(ctx context.Context, query string) []*student.Student {
	if err := m.Init(ctx); err != nil {
		return []*student.Student{}
	}

	students, err := m.store.Students().Search(ctx, query)
	if err != nil {
		m.logger.Error("failed to search students", "query", query, "error", err)
		return []*student.Student{}
	}
	return students
}

// CalculateAverageGrade returns the mean grade over students with a grade
// above zero, or 0 when there are none.
func (m *Manager) CalculateAverageGrade(ctx context.Context) float64 {
	if err := m.Init(ctx); err != nil {
		return 0
	}

	avg, _, err := m.store.Students().AverageGrade(ctx)
	if err != nil {
		m.logger.Error("failed to calculate average grade", "error", err)
		return 0
	}
	return avg
}

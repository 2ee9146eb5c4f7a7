package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции со строками таблицы students.
type Repository interface {
	// Create вставляет строку студента (без курсов).
	// Возвращает ErrStudentAlreadyExists, если ID уже занят.
	Create(ctx context.Context, s *Student) error

	// Update перезаписывает имя, возраст и оценку по ID.
	// Если строки нет, возвращает false без ошибки.
	Update(ctx context.Context, id string, s *Student) (updated bool, err error)

	// Delete удаляет студента. Записи на курсы удаляются каскадом.
	// Отсутствие строки ошибкой не считается.
	Delete(ctx context.Context, id string) error

	// GetByID возвращает студента вместе с курсами.
	// Возвращает ErrStudentNotFound, если студент не найден.
	GetByID(ctx context.Context, id string) (*Student, error)

	// List возвращает всех студентов, отсортированных по имени, вместе с курсами.
	List(ctx context.Context) ([]*Student, error)

	// Search возвращает студентов, у которых имя или ID содержит query.
	Search(ctx context.Context, query string) ([]*Student, error)

	// AverageGrade возвращает среднюю оценку по студентам с оценкой > 0
	// и количество таких студентов.
	AverageGrade(ctx context.Context) (avg float64, count int, err error)
}

// EnrollmentRepository определяет операции с таблицей enrollments.
type EnrollmentRepository interface {
	// Enroll записывает студента на курсы в заданном порядке.
	// Возвращает ErrUnknownCourse, если курса нет в каталоге.
	Enroll(ctx context.Context, studentID string, courseCodes []string) error

	// DeleteByStudent удаляет все записи студента.
	DeleteByStudent(ctx context.Context, studentID string) error

	// ListByStudent возвращает коды курсов студента.
	ListByStudent(ctx context.Context, studentID string) ([]string, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK (для транзакций)
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWork даёт репозитории, работающие в одной транзакции.
type UnitOfWork interface {
	// Students возвращает репозиторий студентов в рамках транзакции.
	Students() Repository

	// Enrollments возвращает репозиторий записей в рамках транзакции.
	Enrollments() EnrollmentRepository
}

// Transactor выполняет fn в одной транзакции.
//
// Если fn вернула ошибку, транзакция откатывается и ошибка возвращается
// как есть. Иначе транзакция фиксируется. Реализация может повторить fn
// целиком при временной блокировке хранилища, поэтому fn не должна иметь
// побочных эффектов вне UnitOfWork.
type Transactor interface {
	Transact(ctx context.Context, fn func(uow UnitOfWork) error) error
}

// Package course содержит каталог курсов: сущность Course, каталог по
// умолчанию и интерфейс репозитория.
package course

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/student-records/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidCourse - пустой код, пустое название или неположительные кредиты.
	ErrInvalidCourse = shared.NewDomainError("course", "Validate", shared.ErrValidation,
		"course requires a code, a name and a positive number of credits")

	// ErrCourseAlreadyExists - курс с таким кодом уже есть в каталоге.
	ErrCourseAlreadyExists = shared.NewDomainError("course", "Create", shared.ErrAlreadyExists, "course already exists")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Course - курс каталога. Значение неизменяемо после создания.
type Course struct {
	code    string
	name    string
	credits int
}

// New создаёт курс с валидацией полей.
func New(code, name string, credits int) (Course, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" || credits <= 0 {
		return Course{}, ErrInvalidCourse
	}
	return Course{code: code, name: name, credits: credits}, nil
}

// mustNew используется только для статического каталога.
func mustNew(code, name string, credits int) Course {
	c, err := New(code, name, credits)
	if err != nil {
		panic(err)
	}
	return c
}

// Code возвращает уникальный код курса.
func (c Course) Code() string { return c.code }

// Name возвращает название курса.
func (c Course) Name() string { return c.name }

// Credits возвращает количество кредитов.
func (c Course) Credits() int { return c.credits }

// String возвращает строковое представление для логирования.
func (c Course) String() string {
	return fmt.Sprintf("%s %s (%d)", c.code, c.name, c.credits)
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Catalog - упорядоченный список курсов.
type Catalog []Course

// DefaultCatalog возвращает курсы, которыми заполняется пустая таблица.
func DefaultCatalog() Catalog {
	return Catalog{
		mustNew("CS101", "Intro to Java", 5),
		mustNew("MATH101", "Calculus I", 4),
		mustNew("HIST101", "World History", 3),
		mustNew("PHYS101", "Physics", 4),
	}
}

// Names возвращает отображение код -> название.
func (c Catalog) Names() map[string]string {
	names := make(map[string]string, len(c))
	for _, course := range c {
		names[course.code] = course.name
	}
	return names
}

// Credits возвращает отображение код -> кредиты (таблица для расчёта GPA).
func (c Catalog) Credits() map[string]int {
	credits := make(map[string]int, len(c))
	for _, course := range c {
		credits[course.code] = course.credits
	}
	return credits
}

// Find ищет курс по коду.
func (c Catalog) Find(code string) (Course, bool) {
	for _, course := range c {
		if course.code == code {
			return course, true
		}
	}
	return Course{}, false
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции с таблицей courses.
type Repository interface {
	// List возвращает все курсы, отсортированные по коду.
	List(ctx context.Context) (Catalog, error)

	// Count возвращает количество курсов.
	Count(ctx context.Context) (int, error)

	// Create добавляет курс. Возвращает ErrCourseAlreadyExists при дубликате кода.
	Create(ctx context.Context, c Course) error

	// Delete удаляет курс. Записи студентов на курс удаляются каскадом.
	Delete(ctx context.Context, code string) error

	// SeedDefaults заполняет каталог курсами по умолчанию, если таблица пуста.
	// Возвращает количество добавленных курсов.
	SeedDefaults(ctx context.Context) (int, error)
}

package student

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/alem-hub/student-records/internal/domain/shared"
	"github.com/alem-hub/student-records/pkg/timeutil"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTRAINTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// MinAge - минимальный возраст студента (включительно).
	MinAge = 18

	// MaxAge - максимальный возраст студента (включительно).
	MaxAge = 100

	// MinGrade - минимальная общая оценка.
	MinGrade = 0.0

	// MaxGrade - максимальная общая оценка.
	MaxGrade = 100.0

	// gradePrecisionTolerance - допуск при проверке двух знаков после запятой.
	gradePrecisionTolerance = 1e-4
)

// namePattern - буквы любого алфавита, пробелы, точки и дефисы.
var namePattern = regexp.MustCompile(`^[\p{L} .-]+$`)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidName - имя пустое или содержит недопустимые символы.
	ErrInvalidName = shared.NewDomainError("student", "Validate", shared.ErrValidation,
		"name contains invalid characters: only letters, spaces, periods and hyphens are allowed")

	// ErrInvalidAge - возраст вне диапазона 18-100.
	ErrInvalidAge = shared.NewDomainError("student", "Validate", shared.ErrValidation,
		"student age must be between 18 and 100")

	// ErrInvalidGrade - оценка вне диапазона 0.0-100.0.
	ErrInvalidGrade = shared.NewDomainError("student", "Validate", shared.ErrValidation,
		"grade must be between 0.0 and 100.0")

	// ErrGradePrecision - больше двух знаков после запятой.
	ErrGradePrecision = shared.NewDomainError("student", "Validate", shared.ErrValidation,
		"grade must have no more than two decimal places")

	// ErrInvalidEnrollmentDate - нулевая дата зачисления.
	ErrInvalidEnrollmentDate = shared.NewDomainError("student", "Validate", shared.ErrValidation,
		"enrollment date is required")

	// ErrStudentNotFound - студент не найден.
	ErrStudentNotFound = shared.NewDomainError("student", "Find", shared.ErrNotFound, "student not found")

	// ErrStudentAlreadyExists - студент с таким ID уже существует.
	ErrStudentAlreadyExists = shared.NewDomainError("student", "Create", shared.ErrAlreadyExists, "student already exists")

	// ErrUnknownCourse - запись на курс, которого нет в каталоге.
	ErrUnknownCourse = shared.NewDomainError("student", "Enroll", shared.ErrNotFound, "course does not exist")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - запись о студенте вместе с кодами курсов, на которые он записан.
//
// Поля закрыты: экземпляр нельзя получить в невалидном состоянии.
// Все изменения проходят через сеттеры с валидацией, при ошибке
// ни одно поле не меняется.
type Student struct {
	id             string
	name           string
	age            int
	grade          float64
	enrollmentDate time.Time
	courses        []string
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewStudent создаёт нового студента: генерирует ID, дату зачисления
// (сегодня) и пустой список курсов.
func NewStudent(name string, age int, grade float64) (*Student, error) {
	return Restore(RestoreParams{
		Name:  name,
		Age:   age,
		Grade: grade,
	})
}

// RestoreParams содержит полный набор полей (загрузка из БД или CSV).
type RestoreParams struct {
	ID             string
	Name           string
	Age            int
	Grade          float64
	EnrollmentDate time.Time
	Courses        []string
}

// Restore восстанавливает студента из полного набора полей.
// Пустой ID генерируется, нулевая дата заменяется сегодняшней.
func Restore(params RestoreParams) (*Student, error) {
	name, err := validateName(params.Name)
	if err != nil {
		return nil, err
	}
	if err := validateAge(params.Age); err != nil {
		return nil, err
	}
	if err := validateGrade(params.Grade); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(params.ID)
	if id == "" {
		id = uuid.New().String()
	}

	date := params.EnrollmentDate
	if date.IsZero() {
		date = timeutil.Today()
	} else {
		date = timeutil.StartOfDay(date)
	}

	s := &Student{
		id:             id,
		name:           name,
		age:            params.Age,
		grade:          params.Grade,
		enrollmentDate: date,
		courses:        make([]string, 0, len(params.Courses)),
	}
	for _, code := range params.Courses {
		s.AddCourse(code)
	}

	return s, nil
}

func validateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrInvalidName
	}
	// NFC: "e" + combining acute must match \p{L} as a single letter.
	if !namePattern.MatchString(norm.NFC.String(trimmed)) {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

func validateAge(age int) error {
	if age < MinAge || age > MaxAge {
		return ErrInvalidAge
	}
	return nil
}

func validateGrade(grade float64) error {
	if math.IsNaN(grade) || math.IsInf(grade, 0) {
		return ErrInvalidGrade
	}
	if grade < MinGrade || grade > MaxGrade {
		return ErrInvalidGrade
	}
	scaled := grade * 100
	if math.Abs(scaled-math.Round(scaled)) > gradePrecisionTolerance {
		return ErrGradePrecision
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCESSORS
// ══════════════════════════════════════════════════════════════════════════════

// ID возвращает неизменяемый идентификатор.
func (s *Student) ID() string { return s.id }

// Name возвращает имя.
func (s *Student) Name() string { return s.name }

// Age возвращает возраст.
func (s *Student) Age() int { return s.age }

// Grade возвращает общую оценку (0.0 - 100.0).
func (s *Student) Grade() float64 { return s.grade }

// EnrollmentDate возвращает дату зачисления.
func (s *Student) EnrollmentDate() time.Time { return s.enrollmentDate }

// Courses возвращает копию списка курсов.
// Изменение результата не влияет на студента.
func (s *Student) Courses() []string {
	return slices.Clone(s.courses)
}

// Key возвращает ключ для map/set (совпадает с ID).
func (s *Student) Key() string { return s.id }

// ══════════════════════════════════════════════════════════════════════════════
// MUTATORS
// ══════════════════════════════════════════════════════════════════════════════

// SetName меняет имя после валидации.
func (s *Student) SetName(name string) error {
	valid, err := validateName(name)
	if err != nil {
		return err
	}
	s.name = valid
	return nil
}

// SetAge меняет возраст после валидации.
func (s *Student) SetAge(age int) error {
	if err := validateAge(age); err != nil {
		return err
	}
	s.age = age
	return nil
}

// SetGrade меняет оценку после валидации диапазона и точности.
func (s *Student) SetGrade(grade float64) error {
	if err := validateGrade(grade); err != nil {
		return err
	}
	s.grade = grade
	return nil
}

// SetEnrollmentDate меняет дату зачисления (время суток отбрасывается).
func (s *Student) SetEnrollmentDate(date time.Time) error {
	if date.IsZero() {
		return ErrInvalidEnrollmentDate
	}
	s.enrollmentDate = timeutil.StartOfDay(date)
	return nil
}

// AddCourse добавляет курс, если его ещё нет. Повторный вызов ничего не меняет.
func (s *Student) AddCourse(code string) {
	code = strings.TrimSpace(code)
	if code == "" || s.HasCourse(code) {
		return
	}
	s.courses = append(s.courses, code)
}

// RemoveCourse удаляет курс, если он есть.
func (s *Student) RemoveCourse(code string) {
	code = strings.TrimSpace(code)
	if idx := slices.Index(s.courses, code); idx >= 0 {
		s.courses = slices.Delete(s.courses, idx, idx+1)
	}
}

// HasCourse проверяет, записан ли студент на курс.
func (s *Student) HasCourse(code string) bool {
	return slices.Contains(s.courses, code)
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// GradePoints переводит общую оценку в шкалу 4.0: max(0, grade/20 - 1).
func (s *Student) GradePoints() float64 {
	return math.Max(0, s.grade/20.0-1.0)
}

// GPA возвращает средневзвешенный по кредитам балл по шкале 4.0.
//
// В схеме есть только общая оценка, поэтому у каждого курса один и тот же
// балл, а кредиты задают вес. Курс без записи в таблице кредитов весит 1,
// так что пустая таблица даёт равные веса. Без курсов или при nil-таблице
// возвращается 0.
func (s *Student) GPA(creditsByCourse map[string]int) float64 {
	if len(s.courses) == 0 || creditsByCourse == nil {
		return 0
	}

	points := s.GradePoints()
	var weighted, totalWeight float64
	for _, code := range s.courses {
		weight := 1.0
		if credits, ok := creditsByCourse[code]; ok && credits > 0 {
			weight = float64(credits)
		}
		weighted += points * weight
		totalWeight += weight
	}

	return weighted / totalWeight
}

// Equal сравнивает студентов по ID.
func (s *Student) Equal(other *Student) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.id == other.id
}

// Details возвращает подробное описание для отображения.
func (s *Student) Details() string {
	upper := make([]string, len(s.courses))
	for i, code := range s.courses {
		upper[i] = strings.ToUpper(code)
	}

	var sb strings.Builder
	sb.WriteString("Student Details:\n")
	sb.WriteString("----------------\n")
	fmt.Fprintf(&sb, "ID: %s\n", s.id)
	fmt.Fprintf(&sb, "Name: %s\n", s.name)
	fmt.Fprintf(&sb, "Age: %d\n", s.age)
	fmt.Fprintf(&sb, "Average Grade: %.2f\n", s.grade)
	fmt.Fprintf(&sb, "Enrolled: %s\n", timeutil.FormatDate(s.enrollmentDate))
	fmt.Fprintf(&sb, "Courses: [%s]", strings.Join(upper, ", "))
	return sb.String()
}

// String возвращает строковое представление студента для логирования.
func (s *Student) String() string {
	return fmt.Sprintf(
		"Student{ID: %s, Name: %s, Age: %d, Grade: %.2f, Courses: %d}",
		s.id, s.name, s.age, s.grade, len(s.courses),
	)
}

// Clone создаёт глубокую копию студента.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}

	clone := *s
	clone.courses = slices.Clone(s.courses)
	return &clone
}

// Package student содержит доменную модель студента.
//
// Пакет определяет:
//
//   - Сущность Student: валидируемый value object с набором курсов
//   - Доменные ошибки (вид shared.ErrValidation для нарушений инвариантов)
//   - Интерфейсы репозиториев: Repository, EnrollmentRepository, UnitOfWork
//
// # Архитектурные принципы
//
//  1. Инварианты проверяются при создании и в каждом сеттере
//  2. Dependency Inversion - интерфейсы определяются здесь, реализации в infrastructure
//  3. Список курсов принадлежит студенту, наружу отдаётся только копия
//
// # Основные операции
//
// Создание нового студента (ID и дата зачисления генерируются):
//
//	s, err := student.NewStudent("Ada Lovelace", 30, 92.50)
//	if err != nil {
//	    // errors.Is(err, shared.ErrValidation) == true
//	}
//	s.AddCourse("CS101")
//
// Восстановление из хранилища:
//
//	s, err := student.Restore(student.RestoreParams{
//	    ID:             id,
//	    Name:           name,
//	    Age:            age,
//	    Grade:          grade,
//	    EnrollmentDate: date,
//	    Courses:        codes,
//	})
//
// Средний балл по шкале 4.0 с весами по кредитам:
//
//	gpa := s.GPA(map[string]int{"CS101": 5, "MATH101": 4})
package student

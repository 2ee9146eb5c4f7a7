package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError("student", "Validate", ErrValidation, "bad age")
	assert.Equal(t, "student.Validate: bad age", err.Error())

	wrapped := WrapError("manager", "AddStudent", ErrPersistence, "failed to add student", errors.New("disk full"))
	assert.Equal(t, "manager.AddStudent: failed to add student: disk full", wrapped.Error())
}

func TestDomainError_MatchesKindAndCause(t *testing.T) {
	cause := NewDomainError("student", "Create", ErrAlreadyExists, "student already exists")
	err := fmt.Errorf("outer: %w", WrapError("manager", "AddStudent", ErrPersistence, "failed", cause))

	assert.True(t, IsPersistence(err))
	assert.True(t, IsAlreadyExists(err))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, IsValidation(err))
	assert.False(t, IsIO(err))
	assert.False(t, IsNotFound(err))

	var domainErr *DomainError
	assert.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "manager", domainErr.Domain)
}

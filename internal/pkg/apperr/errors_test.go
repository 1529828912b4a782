// internal/pkg/apperr/errors_test.go
package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCode(t *testing.T) {
	err := New(CodeInsufficientStock, "bar %d short by %d ml", 3, 500)

	assert.True(t, IsCode(err, CodeInsufficientStock))
	assert.False(t, IsCode(err, CodeOverReturn))
	assert.False(t, IsCode(errors.New("plain"), CodeInsufficientStock))
}

func TestIsCodeUnwrapsWrappedErrors(t *testing.T) {
	inner := NotFound("drink")
	wrapped := fmt.Errorf("loading sale components: %w", inner)

	assert.True(t, IsCode(wrapped, CodeNotFound))
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	a := New(CodeOverReturn, "return of 500 ml exceeds live stock")
	b := New(CodeOverReturn, "different message")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, New(CodeNotOwner, "x")))
}

func TestErrorFormat(t *testing.T) {
	err := NotFound("bar")
	assert.Equal(t, "not_found: bar not found", err.Error())
}

package checker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFault_Error(t *testing.T) {
	cause := errors.New("connection refused")
	fault := NewFault(FaultBackend, "reasoning backend call failed", cause)

	assert.Contains(t, fault.Error(), "backend fault")
	assert.Contains(t, fault.Error(), "reasoning backend call failed")
	assert.Contains(t, fault.Error(), "connection refused")
	assert.Equal(t, cause, errors.Unwrap(fault))
}

func TestFault_ErrorWithoutCause(t *testing.T) {
	fault := NewFault(FaultParse, "final reply is not well-formed JSON", nil)

	assert.Equal(t, "parse fault: final reply is not well-formed JSON", fault.Error())
	assert.Nil(t, errors.Unwrap(fault))
}

func TestKindOf(t *testing.T) {
	fault := NewFault(FaultExtraction, "image text extraction failed", errors.New("timeout"))

	assert.Equal(t, FaultExtraction, KindOf(fault))
	assert.Equal(t, FaultExtraction, KindOf(fmt.Errorf("wrapped: %w", fault)))
	assert.Equal(t, FaultKind(""), KindOf(errors.New("plain error")))
}

func TestDetail(t *testing.T) {
	assert.Equal(t, "backend call failed: timeout", detail(NewFault(FaultBackend, "backend call failed", errors.New("timeout"))))
	assert.Equal(t, "backend call failed", detail(NewFault(FaultBackend, "backend call failed", nil)))
	assert.Equal(t, "plain error", detail(errors.New("plain error")))
}

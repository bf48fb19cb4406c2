package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/travelops/backoffice/internal/domain/shared"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeInvalidInput, http.StatusBadRequest},
		{shared.CodeInvalidAmount, http.StatusBadRequest},
		{shared.CodeOverAllocation, http.StatusConflict},
		{shared.CodeConcurrencyConflict, http.StatusConflict},
		{shared.CodeAlreadyRefunded, http.StatusUnprocessableEntity},
		{shared.CodeAlreadyDeleted, http.StatusUnprocessableEntity},
		{shared.CodeClosed, http.StatusUnprocessableEntity},
		{shared.CodeInvalidState, http.StatusUnprocessableEntity},
		{shared.CodePersistenceFailure, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 5, 1, 2)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	resp = NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Equal(t, 0, resp.Meta.TotalPages)
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{{Field: "amount", Message: "bad"}})
	assert.False(t, resp.Success)
	assert.Equal(t, "Request validation failed", resp.Message)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 1)
}

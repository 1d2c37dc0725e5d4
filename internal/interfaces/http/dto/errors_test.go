package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{shared.CodeUnauthenticated, http.StatusUnauthorized},
		{shared.CodeUnauthorized, http.StatusForbidden},
		{shared.CodeIllegalTransition, http.StatusConflict},
		{shared.CodeValidation, http.StatusUnprocessableEntity},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeStoreUnavailable, http.StatusServiceUnavailable},
		{shared.CodeConflict, http.StatusConflict},
		{shared.CodePermissionDenied, http.StatusForbidden},
		{shared.CodeAlreadyExists, http.StatusConflict},
		{shared.CodeInvalidInput, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{shared.CodeStaleSnapshot, http.StatusInternalServerError},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		pages    int
	}{
		{0, 20, 0},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta([]string{}, tt.total, 1, tt.pageSize)
		assert.True(t, resp.Success)
		assert.Equal(t, tt.pages, resp.Meta.TotalPages, "total=%d pageSize=%d", tt.total, tt.pageSize)
	}
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("missing or invalid fields", "req-1", []ValidationDetail{
		{Field: "craft.hullId", Message: "This field is required"},
	})

	body, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, false, decoded["success"])
	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
	assert.Equal(t, "req-1", errObj["requestId"])
	details := errObj["details"].([]any)
	require.Len(t, details, 1)
	assert.Equal(t, "craft.hullId", details[0].(map[string]any)["field"])
	assert.NotContains(t, errObj, "retryable")
}

package errors

import (
	"context"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_PassThrough(t *testing.T) {
	orig := NewClientError("lendingkart", 400, "bad request")

	normalized := Normalize("lendingkart", orig)

	assert.Same(t, orig, normalized)
}

func TestNormalize_Timeout(t *testing.T) {
	err := Normalize("capital_float", context.DeadlineExceeded)

	assert.Equal(t, ErrCodeTimeout, err.Code)
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Message, "Timeout")
}

func TestNormalize_ConnectionRefused(t *testing.T) {
	err := Normalize("lendingkart", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED))

	assert.Equal(t, ErrCodeNetwork, err.Code)
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Message, "Network error")
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{400, ErrCodeClient, false},
		{404, ErrCodeClient, false},
		{429, ErrCodeClient, false},
		{500, ErrCodeServer, true},
		{503, ErrCodeServer, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := FromHTTPStatus("test_partner", tt.status, "body")
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.status, err.Status)
		})
	}
}

func TestFromHTTPStatus_Success(t *testing.T) {
	assert.Nil(t, FromHTTPStatus("test_partner", 200, ""))
	assert.Nil(t, FromHTTPStatus("test_partner", 201, ""))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(NewClientError("p", 400, "")))
	assert.False(t, IsRetryable(NewSignatureInvalidError("p")))
	assert.True(t, IsRetryable(NewServerError("p", 500, "")))
	assert.True(t, IsRetryable(NewTimeoutError("p", nil)))
	assert.True(t, IsRetryable(fmt.Errorf("something unknown")))
}

func TestContractValidationError_CarriesProblems(t *testing.T) {
	err := NewContractValidationError("broken", []string{"Missing partnerId", "Missing required method: GetOffers"})

	assert.Equal(t, ErrCodeContractValidation, err.Code)
	assert.Contains(t, err.Details, "Missing partnerId")
	assert.Contains(t, err.Details, "GetOffers")
	assert.False(t, err.Retryable)
}

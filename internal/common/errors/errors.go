// Package errors provides standardized error handling for partner integrations.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeClient             ErrorCode = "PARTNER_CLIENT_ERROR"    // 4xx, never retried
	ErrCodeServer             ErrorCode = "PARTNER_SERVER_ERROR"    // 5xx, retryable
	ErrCodeNetwork            ErrorCode = "PARTNER_NETWORK_ERROR"   // connection-level, retryable
	ErrCodeTimeout            ErrorCode = "PARTNER_TIMEOUT"         // deadline exceeded, retryable
	ErrCodeSignatureInvalid   ErrorCode = "SIGNATURE_INVALID"       // webhook only, never retried
	ErrCodeContractValidation ErrorCode = "CONTRACT_VALIDATION"     // registry-time adapter rejection
	ErrCodeResponseMalformed  ErrorCode = "PARTNER_BAD_RESPONSE"    // undecodable partner payload
	ErrCodeUnsupported        ErrorCode = "OPERATION_NOT_SUPPORTED" // optional capability missing
)

// PartnerError is the normalized shape every transport/HTTP failure is mapped
// into before an adapter converts it to the contract's non-throwing returns.
type PartnerError struct {
	Partner   string                 `json:"partner"`
	Status    int                    `json:"status,omitempty"`
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *PartnerError) Error() string {
	return fmt.Sprintf("PartnerError[%s/%s]: %s", e.Partner, e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewClientError creates a non-retryable 4xx error.
func NewClientError(partner string, status int, details string) *PartnerError {
	return &PartnerError{
		Partner:   partner,
		Status:    status,
		Code:      ErrCodeClient,
		Message:   fmt.Sprintf("Partner rejected the request (HTTP %d)", status),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewServerError creates a retryable 5xx error.
func NewServerError(partner string, status int, details string) *PartnerError {
	return &PartnerError{
		Partner:   partner,
		Status:    status,
		Code:      ErrCodeServer,
		Message:   fmt.Sprintf("Partner service error (HTTP %d)", status),
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNetworkError creates a retryable connection-level error.
func NewNetworkError(partner string, err error) *PartnerError {
	return &PartnerError{
		Partner:   partner,
		Code:      ErrCodeNetwork,
		Message:   "Network error: partner unreachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(partner string, err error) *PartnerError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &PartnerError{
		Partner:   partner,
		Code:      ErrCodeTimeout,
		Message:   "Timeout: partner did not respond in time",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSignatureInvalidError creates a non-retryable webhook signature error.
func NewSignatureInvalidError(partner string) *PartnerError {
	return &PartnerError{
		Partner:   partner,
		Code:      ErrCodeSignatureInvalid,
		Message:   "Invalid signature on webhook payload",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewContractValidationError creates a registry-time rejection carrying the
// full diagnostic list.
func NewContractValidationError(partner string, problems []string) *PartnerError {
	return &PartnerError{
		Partner:   partner,
		Code:      ErrCodeContractValidation,
		Message:   "Adapter failed contract validation",
		Details:   strings.Join(problems, "; "),
		Retryable: false,
		Metadata:  map[string]interface{}{"problems": problems},
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedResponseError creates a non-retryable decode error.
func NewMalformedResponseError(partner string, err error) *PartnerError {
	return &PartnerError{
		Partner:   partner,
		Code:      ErrCodeResponseMalformed,
		Message:   "Partner returned an undecodable response",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnsupportedError marks an optional capability the partner does not offer.
func NewUnsupportedError(partner, operation string) *PartnerError {
	return &PartnerError{
		Partner:   partner,
		Code:      ErrCodeUnsupported,
		Message:   fmt.Sprintf("Partner does not support %s", operation),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Error Normalization
// ==========================

// Normalize maps an arbitrary transport error to a PartnerError. Already
// normalized errors pass through unchanged.
func Normalize(partner string, err error) *PartnerError {
	if err == nil {
		return nil
	}

	var pe *PartnerError
	if errors.As(err, &pe) {
		return pe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(partner, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(partner, err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return NewNetworkError(partner, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewNetworkError(partner, err)
	}

	return &PartnerError{
		Partner:   partner,
		Code:      ErrCodeNetwork,
		Message:   "Network error communicating with partner",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// FromHTTPStatus maps a non-2xx response to the taxonomy. Status below 400
// yields nil.
func FromHTTPStatus(partner string, status int, body string) *PartnerError {
	switch {
	case status >= 500:
		return NewServerError(partner, status, body)
	case status >= 400:
		return NewClientError(partner, status, body)
	default:
		return nil
	}
}

// IsRetryable reports whether the retry loop may attempt err again.
func IsRetryable(err error) bool {
	var pe *PartnerError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	// Unclassified errors default to retryable; the attempt bound still caps
	// the damage.
	return true
}

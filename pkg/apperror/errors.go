package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError carrying the same code, so callers
// can branch with errors.Is(err, apperror.ErrAlreadyProcessed()).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf returns the AppError code carried by err, or "" when err is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Security & Authentication (SEC) ----

func ErrInvalidSignature() *AppError {
	return New("SEC_001", "Invalid signature", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("SEC_002", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Payment notifications & transactions (PAY) ----

func ErrTransactionNotFound() *AppError {
	return New("PAY_001", "Transaction not found", http.StatusNotFound)
}

func ErrAlreadyProcessed() *AppError {
	return New("PAY_002", "Operation not permitted", http.StatusForbidden)
}

func ErrGatewayUnavailable(err error) *AppError {
	return Wrap("PAY_003", "Payment gateway unavailable", http.StatusBadGateway, err)
}

func ErrInvalidNotification(message string) *AppError {
	return New("PAY_004", message, http.StatusBadRequest)
}

// ---- Checkout (CHK) ----

func ErrNotFound(entity string) *AppError {
	return New("CHK_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAlreadyOwned() *AppError {
	return New("CHK_002", "Product already purchased", http.StatusConflict)
}

func ErrBelowMinimumAmount(minimum string) *AppError {
	return New("CHK_003", fmt.Sprintf("Payable amount must be 0 or at least %s", minimum), http.StatusUnprocessableEntity)
}

// ---- Vouchers (VCH) ----

func ErrVoucherNotFound() *AppError {
	return New("VCH_001", "Voucher not found", http.StatusNotFound)
}

func ErrVoucherInactive() *AppError {
	return New("VCH_002", "Voucher is not active", http.StatusUnprocessableEntity)
}

func ErrVoucherOutsideWindow() *AppError {
	return New("VCH_003", "Voucher is not valid at this time", http.StatusUnprocessableEntity)
}

func ErrVoucherExhausted() *AppError {
	return New("VCH_004", "Voucher quota exhausted", http.StatusUnprocessableEntity)
}

func ErrVoucherAlreadyUsed() *AppError {
	return New("VCH_005", "Voucher already used", http.StatusUnprocessableEntity)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("SYS_002", message, http.StatusBadRequest)
}

package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code. This lets
// callers match wrapped errors against the sentinel values below with
// errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || e.Message == t.Message)
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeLoad       = "LOAD_ERROR"
	ErrCodeNotLoaded  = "NOT_LOADED"
	ErrCodeGeneration = "GENERATION_ERROR"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyMessage   = NewDomainError(ErrCodeValidation, "message cannot be empty")
	ErrEmptySessionID = NewDomainError(ErrCodeValidation, "session id cannot be empty")
	ErrInvalidRole    = NewDomainError(ErrCodeValidation, "invalid conversation role")
)

// Index errors
var (
	ErrIndexCorrupt       = NewDomainError(ErrCodeLoad, "index payload is malformed")
	ErrIndexCountMismatch = NewDomainError(ErrCodeLoad, "index and metadata chunk counts differ")
	ErrIndexNotLoaded     = NewDomainError(ErrCodeNotLoaded, "document index has not been loaded")
)

// Generation errors
var (
	// ErrGenerationFailed is returned after the completion service has
	// failed the initial attempt and the single retry.
	ErrGenerationFailed = NewDomainError(ErrCodeGeneration, "completion service failed")
)

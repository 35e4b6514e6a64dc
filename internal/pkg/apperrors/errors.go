package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrAccountDisabled    = errors.New("account is disabled")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")

	// Store errors
	ErrDependencyFailure = errors.New("store operation failed")
)

// Community and membership errors
var (
	ErrCommunityNotFound      = errors.New("community not found")
	ErrCommunityAlreadyExists = errors.New("community with this name already exists")
	ErrMemberNotFound         = errors.New("member not found")
	ErrMemberAlreadyExists    = errors.New("user is already a member of this community")
	ErrMemberNotPending       = errors.New("member is not pending approval")
)

// Household errors
var (
	ErrHouseholdNotFound    = errors.New("household not found")
	ErrHouseholdExists      = errors.New("household with this unit name already exists")
	ErrHouseholdSuspended   = errors.New("household is suspended")
	ErrCapacityExceeded     = errors.New("household resident limit reached")
	ErrMemberNotInHousehold = errors.New("member does not belong to this household")
	ErrAlreadyAssigned      = errors.New("user is already assigned to a household")
)

// Access-code errors
var (
	ErrAccessCodeNotFound  = errors.New("access code not found")
	ErrCodeSuspended       = errors.New("access code is suspended")
	ErrCodeNotYetActive    = errors.New("access code is not active yet")
	ErrCodeExpired         = errors.New("access code has expired")
	ErrCodeAlreadyUsed     = errors.New("access code has already been used")
	ErrCodeLimitExhausted  = errors.New("access code usage limit exhausted")
	ErrEntryLogWriteFailed = errors.New("entry could not be recorded")
	ErrCodeGeneration      = errors.New("could not generate a unique access code")
)

// Invitation errors
var (
	ErrInvitationNotFound = errors.New("invitation not found")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

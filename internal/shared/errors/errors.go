package errors

import (
	"errors"

	"github.com/samber/oops"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyRunning     = errors.New("monitoring is already running")
	ErrMissingPostgresURL = errors.New("POSTGRES_URL is required when STORAGE_DRIVER=postgres")
	ErrUnauthorized       = errors.New("unauthorized user")
	ErrAdminExists        = errors.New("another operator is already the admin")
)

// CodeValidation tags oops errors that wrap a ValidationError.
const CodeValidation = "validation"

// ValidationError reports a precondition the caller can fix. The triggering
// action is rejected and state is left unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Validation builds a ValidationError wrapped with oops context.
func Validation(field, message string, kv ...any) error {
	return oops.
		Code(CodeValidation).
		With(kv...).
		Wrap(&ValidationError{Field: field, Message: message})
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Message returns the user-facing text of err. For validation failures that
// is the bare message without field prefix or wrapping context.
func Message(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFileName      = errors.New("invalid roster file name")
	ErrEmptyRoster          = errors.New("roster contains no records")
	ErrInvalidMode          = errors.New("invalid import mode")
	ErrImportInFlight       = errors.New("import already in progress")
	ErrImportNotFound       = errors.New("import not found")
	ErrSubmissionRejected   = errors.New("packet server rejected submission")
	ErrPacketAPITimeout     = errors.New("packet API timeout")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

type RetryableError struct {
	Err     error
	Message string
}

func (e RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %s - %s", e.Message, e.Err.Error())
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error, message string) error {
	return RetryableError{
		Err:     err,
		Message: message,
	}
}

// IsRetryable reports whether err, or anything it wraps, is a RetryableError.
func IsRetryable(err error) bool {
	var re RetryableError
	return errors.As(err, &re)
}

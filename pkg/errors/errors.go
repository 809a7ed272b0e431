package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents failures fetching the listing page
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents per-card parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeNotification represents push delivery errors
	ErrorTypeNotification ErrorType = "notification"
	// ErrorTypePersistence represents property store errors
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// Error is the error value shared by every stage of a sync run.
// Subject names what failed: a URL, a property id or a component.
type Error struct {
	Type    ErrorType
	Subject string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Subject, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Subject, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypePersistence:
		return true
	case ErrorTypeRateLimit, ErrorTypeParsing:
		return false
	default:
		return false
	}
}

// Is reports whether err is, or wraps, an *Error of the given type.
func Is(err error, errType ErrorType) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// New creates a new Error
func New(errType ErrorType, subject, message string, err error) *Error {
	return &Error{
		Type:    errType,
		Subject: subject,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(subject, message string, err error) *Error {
	return New(ErrorTypeNetwork, subject, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(subject, message string, err error) *Error {
	return New(ErrorTypeParsing, subject, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(subject string, duration time.Duration) *Error {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, subject, message, nil)
}

// NewNotification creates a new notification delivery error
func NewNotification(subject, message string, err error) *Error {
	return New(ErrorTypeNotification, subject, message, err)
}

// NewPersistence creates a new persistence error
func NewPersistence(subject, message string, err error) *Error {
	return New(ErrorTypePersistence, subject, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(subject, message string, err error) *Error {
	return New(ErrorTypePublisher, subject, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *Error {
	return New(ErrorTypeConfiguration, "", message, err)
}

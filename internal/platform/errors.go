package platform

import (
	"errors"
	"fmt"
)

// Kind buckets platform failures into the categories the sync engine reacts
// to. Only transient errors are retried; everything else fails fast.
type Kind string

const (
	KindConfig     Kind = "config"
	KindPermission Kind = "permission"
	KindNotFound   Kind = "not_found"
	KindTransient  Kind = "transient"
	KindUnknown    Kind = "unknown"
)

type Error struct {
	Kind     Kind
	Platform string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Platform, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, platform, message string, err error) *Error {
	return &Error{Kind: kind, Platform: platform, Message: message, Err: err}
}

// KindOf returns the error's Kind, or KindUnknown for errors raised outside
// the adapter taxonomy.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

func IsRetryable(err error) bool {
	return IsTransient(err)
}

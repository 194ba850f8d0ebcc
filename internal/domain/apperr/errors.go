// Package apperr classifies failures of the storefront core into validation,
// transport, server rejection and race errors.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindRejected   Kind = "rejected"
	KindRace       Kind = "race"
)

// Error carries the kind, the failing operation and a message fit for the user.
// Details holds structured data such as over-limit lines.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Status  int
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message == e.Err.Error():
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// ValidationErr wraps a sentinel so errors.Is keeps working.
func ValidationErr(op string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: err.Error(), Err: err}
}

func Transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: "market service unavailable", Err: err}
}

func Rejected(op string, status int, message string) *Error {
	return &Error{Kind: KindRejected, Op: op, Status: status, Message: message}
}

func Race(op, message string, details interface{}) *Error {
	return &Error{Kind: KindRace, Op: op, Message: message, Details: details}
}

// KindOf returns the kind of the first *Error in the chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }

func IsTransport(err error) bool { return KindOf(err) == KindTransport }

// IsRejected is true for server rejections and races alike.
func IsRejected(err error) bool {
	k := KindOf(err)
	return k == KindRejected || k == KindRace
}

// MessageOf returns the user-facing message, falling back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// DetailsOf returns structured details attached to the first *Error in the chain.
func DetailsOf(err error) interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

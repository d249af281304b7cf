/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package apperrors implements the closed error taxonomy every mutating
// coordination-core operation maps onto: Unauthorized, NotFound, Conflict,
// InvalidArgument, PreconditionFailed, Internal.
package apperrors

import (
	"fmt"
	"net/http"

	faster "github.com/go-faster/errors"
)

// Kind is a closed taxonomy tag. Callers pattern-match on it, not on
// message text.
type Kind string

const (
	Unauthorized       Kind = "unauthorized"
	NotFound           Kind = "not_found"
	Conflict           Kind = "conflict"
	InvalidArgument    Kind = "invalid_argument"
	PreconditionFailed Kind = "precondition_failed"
	Internal           Kind = "internal"
)

var statusByKind = map[Kind]int{
	Unauthorized:       http.StatusUnauthorized,
	NotFound:           http.StatusNotFound,
	Conflict:           http.StatusConflict,
	InvalidArgument:    http.StatusBadRequest,
	PreconditionFailed: http.StatusPreconditionFailed,
	Internal:           http.StatusInternalServerError,
}

// AppError is the single error type returned by every core operation.
type AppError struct {
	Kind    Kind
	Message string
	Details string
	Cause   error
}

// New creates an AppError with no cause.
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(kind Kind, format string, args ...any) *AppError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches kind and message to an underlying cause.
func Wrap(cause error, kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message, Cause: faster.Wrap(cause, message)}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(cause error, kind Kind, format string, args ...any) *AppError {
	return Wrap(cause, kind, fmt.Sprintf(format, args...))
}

// WithDetails mutates and returns the same error, for chaining at the
// construction site.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithDetailsf is WithDetails with formatting.
func (e *AppError) WithDetailsf(format string, args ...any) *AppError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// StatusCode returns the HTTP status the kind maps onto.
func (e *AppError) StatusCode() int {
	if code, ok := statusByKind[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// Is supports errors.Is comparison against a bare Kind sentinel created via New(kind, "").
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind from err, defaulting to Internal for unknown errors.
func KindOf(err error) Kind {
	var ae *AppError
	if as(err, &ae) {
		return ae.Kind
	}
	return Internal
}

func as(err error, target **AppError) bool {
	for err != nil {
		if ae, ok := err.(*AppError); ok {
			*target = ae
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Convenience constructors, one per Kind.

func NewUnauthorized(message string) *AppError { return New(Unauthorized, message) }

func NewNotFound(resource string) *AppError {
	return Newf(NotFound, "%s not found", resource)
}

func NewConflict(message string) *AppError { return New(Conflict, message) }

func NewInvalidArgument(message string) *AppError { return New(InvalidArgument, message) }

func NewPreconditionFailed(message string) *AppError { return New(PreconditionFailed, message) }

func NewInternal(message string, cause error) *AppError {
	return Wrap(cause, Internal, message)
}

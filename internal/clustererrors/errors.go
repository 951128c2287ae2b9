// Package clustererrors defines the error taxonomy shared by the control
// plane's state machine, scheduler, and HTTP layer.
package clustererrors

import (
	"errors"
	"fmt"
)

// Kind classifies a ClusterError for the HTTP layer's status mapping.
type Kind string

const (
	InvalidArgument Kind = "InvalidArgument"
	NotFound        Kind = "NotFound"
	Conflict        Kind = "Conflict"
	NoCapacity      Kind = "NoCapacity"
	RuntimeFailure  Kind = "RuntimeFailure"
	Internal        Kind = "Internal"
)

// ClusterError is a typed error carrying a Kind the caller can switch on
// with errors.As, without string-matching messages.
type ClusterError struct {
	Kind Kind
	msg  string
	err  error
}

func (e *ClusterError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *ClusterError) Unwrap() error { return e.err }

// Is allows errors.Is(err, clustererrors.New(SomeKind, "")) to match by Kind.
func (e *ClusterError) Is(target error) bool {
	var t *ClusterError
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New builds a ClusterError of the given Kind.
func New(kind Kind, msg string) error {
	return &ClusterError{Kind: kind, msg: msg}
}

// Wrap builds a ClusterError of the given Kind wrapping an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	return &ClusterError{Kind: kind, msg: msg, err: err}
}

// KindOf extracts the Kind of err, defaulting to Internal when err is not a
// *ClusterError.
func KindOf(err error) Kind {
	var ce *ClusterError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Internal
}

var (
	ErrNotFound        = New(NotFound, "not found")
	ErrInvalidArgument = New(InvalidArgument, "invalid argument")
	ErrConflict        = New(Conflict, "conflict")
	ErrNoCapacity      = New(NoCapacity, "no capacity")
	ErrRuntimeFailure  = New(RuntimeFailure, "runtime failure")
	ErrNodeStopped     = New(Conflict, "node is stopped")
)

// ABOUTME: Error taxonomy shared by the index, search service and MCP layer
// ABOUTME: Each failure kind carries a stable numeric code for protocol responses
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure
type Kind string

const (
	IndexLoad         Kind = "IndexLoadError"
	DimensionMismatch Kind = "DimensionMismatchError"
	NoteNotFound      Kind = "NoteNotFoundError"
	Embedding         Kind = "EmbeddingError"
	UnknownTool       Kind = "UnknownToolError"
	InvalidArgument   Kind = "InvalidArgumentError"
	MalformedRequest  Kind = "MalformedRequestError"
	NotInitialized    Kind = "NotInitializedError"
	Internal          Kind = "InternalError"
)

var codes = map[Kind]int{
	IndexLoad:         -32010,
	DimensionMismatch: -32011,
	NoteNotFound:      -32020,
	Embedding:         -32030,
	UnknownTool:       -32040,
	InvalidArgument:   -32602,
	MalformedRequest:  -32700,
	NotInitialized:    -32002,
	Internal:          -32603,
}

// Code returns the stable protocol code for the kind
func (k Kind) Code() int {
	if c, ok := codes[k]; ok {
		return c
	}
	return codes[Internal]
}

// Fatal reports whether the kind prevents the server from becoming ready
func (k Kind) Fatal() bool {
	return k == IndexLoad || k == DimensionMismatch
}

// Error is a tagged failure. Err, when set, is the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.New(NoteNotFound, ""))
// works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an Error of the given kind
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around cause
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the message of the first *Error in err's chain, or err.Error()
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return err.Error()
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

package larch

import (
	"errors"
	"strings"
)

// Error is the larch error domain type.
//
// Errors coming from larch components should be inspectable ([errors.As]) as
// an *Error at some point in the error chain.
//
// Components create an Error at the system boundary (a filesystem call, a
// stream read) and intermediate layers wrap with [fmt.Errorf] and a "%w" verb
// in preference to constructing another containing Error.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

// Assert this implements all the cool features.
var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case ErrAbsent, ErrBadName, ErrBadPath, ErrFilesystem, ErrHeaderParse, ErrUpstreamStream:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Message != "" && e.Inner != nil {
		b.WriteString(": ")
	}
	if e.Op == "" && e.Message == "" {
		b.Reset()
	}
	if e.Inner != nil {
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is].
//
// It compares the error kind. Callers should compare against a declared
// [ErrorKind] over a specific error.
func (e *Error) Is(kind error) bool {
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind represents classes of errors the gateway can report.
//
// Each kind maps to exactly one class of HTTP status at the front door.
type ErrorKind string

// Error implements error so an ErrorKind can be compared with [errors.Is].
func (k ErrorKind) Error() string { return string(k) }

// Defined error kinds.
var (
	// ErrAbsent means a layer or sub-file was not present on a consulted
	// tier. Not an error to the core: reported as ok=false, surfaced as 404
	// by the HTTP front door.
	ErrAbsent = ErrorKind("absent")
	// ErrBadName means a textual layer identifier failed to parse as 40 hex
	// characters. The HTTP front door answers a malformed name in a request
	// path with 500 and a diagnostic body.
	ErrBadName = ErrorKind("bad-name")
	// ErrBadPath means an external upload path failed the
	// parent-equals-canonicalized-upload-root check. Surfaced as 5xx: it
	// indicates a misconfigured upstream, not a client mistake.
	ErrBadPath = ErrorKind("bad-path")
	// ErrFilesystem covers any stat/open/read/write/rename/copy/mkdir
	// failure other than not-found. Surfaced as 5xx for user-initiated
	// requests; logged and dropped for background promotions.
	ErrFilesystem = ErrorKind("filesystem-failure")
	// ErrHeaderParse means the archive header oracle could not parse the
	// layer's prefix. Surfaced as 5xx.
	ErrHeaderParse = ErrorKind("header-parse-failure")
	// ErrUpstreamStream means the incoming request body errored mid-upload.
	// Surfaced as 5xx; the partial temp file is discarded and nothing is
	// moved into primary.
	ErrUpstreamStream = ErrorKind("upstream-stream-failure")
)

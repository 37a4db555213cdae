// Package imgerr defines the closed set of build error kinds and attaches
// an optional backtrace, gated behind the RUST_BACKTRACE environment
// variable.
package imgerr

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Kind identifies one of the fatal error categories a build can fail with.
type Kind int

const (
	KindUnknown Kind = iota
	KindParseError
	KindDuplicateComponentName
	KindReferenceDropped
	KindInvalidBuildDir
	KindFailedDependency
	KindLoopError
	KindFailedToCreateImage
	KindFailedToPartition
	KindFailedToCreateFilesystem
	KindUnrecognisedFilesystem
	KindQmpHandshakeFailed
	KindQmpQuitFailed
	KindMountFailed
	KindUnmountFailed
	KindSubprocessFailed
	KindInvalidPartitionReference
	KindUnresolvedArtifact
)

func (k Kind) String() string {
	switch k {
	case KindParseError:
		return "ParseError"
	case KindDuplicateComponentName:
		return "DuplicateComponentName"
	case KindReferenceDropped:
		return "ReferenceDropped"
	case KindInvalidBuildDir:
		return "InvalidBuildDir"
	case KindFailedDependency:
		return "FailedDependency"
	case KindLoopError:
		return "LoopError"
	case KindFailedToCreateImage:
		return "FailedToCreateImage"
	case KindFailedToPartition:
		return "FailedToPartition"
	case KindFailedToCreateFilesystem:
		return "FailedToCreateFilesystem"
	case KindUnrecognisedFilesystem:
		return "UnrecognisedFilesystem"
	case KindQmpHandshakeFailed:
		return "QmpHandshakeFailed"
	case KindQmpQuitFailed:
		return "QmpQuitFailed"
	case KindMountFailed:
		return "MountFailed"
	case KindUnmountFailed:
		return "UnmountFailed"
	case KindSubprocessFailed:
		return "SubprocessFailed"
	case KindInvalidPartitionReference:
		return "InvalidPartitionReference"
	case KindUnresolvedArtifact:
		return "UnresolvedArtifact"
	default:
		return "Unknown"
	}
}

// Error is imagecraft's structured error type: a kind, a human message, an
// optional wrapped cause, and a backtrace captured only when RUST_BACKTRACE
// is set to "1" or "full".
type Error struct {
	Kind      Kind
	Message   string
	Cause     error
	backtrace []uintptr
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Message != "" {
		fmt.Fprintf(&b, "%s(%s)", e.Kind, e.Message)
	} else {
		fmt.Fprintf(&b, "%s", e.Kind)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if bt := e.formatBacktrace(); bt != "" {
		b.WriteString("\n")
		b.WriteString(bt)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) formatBacktrace() string {
	mode := os.Getenv("RUST_BACKTRACE")
	if mode != "1" && mode != "full" {
		return ""
	}
	if len(e.backtrace) == 0 {
		return ""
	}
	frames := runtime.CallersFrames(e.backtrace)
	var b strings.Builder
	n := 0
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "  at %s (%s:%d)\n", frame.Function, frame.File, frame.Line)
		n++
		if !more || (mode != "full" && n >= 8) {
			break
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func capture() []uintptr {
	mode := os.Getenv("RUST_BACKTRACE")
	if mode != "1" && mode != "full" {
		return nil
	}
	pc := make([]uintptr, 32)
	n := runtime.Callers(3, pc)
	return pc[:n]
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), backtrace: capture()}
}

// Wrap constructs an Error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause, backtrace: capture()}
}

// Is reports whether err is an *Error of the given kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		break
	}
	return false
}

package download

import "fmt"

// Error kinds used internally to label metrics. Callers see a single error
// type and are expected to match on message content only for logging.
const (
	kindConfig       = "config"
	kindTransport    = "transport"
	kindPrecondition = "precondition"
)

// Error is the single error kind surfaced by every downloader. It carries a
// human-readable message with enough context (URL, bucket/key, repo/ref,
// command line) to diagnose a failure without re-running.
type Error struct {
	kind  string
	msg   string
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.msg
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind string, cause error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

// configErrorf reports missing or conflicting parameters, unknown source
// keys, and other failures raised synchronously before any I/O.
func configErrorf(format string, args ...interface{}) *Error {
	return newError(kindConfig, format, args...)
}

// preconditionErrorf reports an environment that does not match the
// operation's requirements: destination already populated, missing local
// source, absent release asset or archive subdirectory.
func preconditionErrorf(format string, args ...interface{}) *Error {
	return newError(kindPrecondition, format, args...)
}

// transportErrorf reports a failed network call, client-library exception or
// subprocess failure.
func transportErrorf(format string, args ...interface{}) *Error {
	return newError(kindTransport, format, args...)
}

func wrapTransport(cause error, format string, args ...interface{}) *Error {
	return wrapError(kindTransport, cause, format, args...)
}

// errorKind returns the metrics label for an error produced by this package,
// or "internal" for anything else.
func errorKind(err error) string {
	if e, ok := err.(*Error); ok {
		return e.kind
	}
	return "internal"
}

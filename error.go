package rmi

import "fmt"

// Error is the single RMI-error kind: it carries every transport and
// dispatch failure (§7.1). It is distinct from RemoteError so that a
// caller can always tell a network/protocol fault apart from a user error
// re-raised from the server object.
type Error struct {
	Text  string
	cause error
}

func (e Error) Error() string {
	if e.cause != nil {
		return e.Text + ": " + e.cause.Error()
	}
	return e.Text
}

func (e Error) Unwrap() error {
	return e.cause
}

// Errorf builds an Error from a formatted message. The result has no
// underlying cause; use Wrap to attach one.
func Errorf(format string, args ...interface{}) Error {
	return Error{Text: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error reporting msg, with err as its underlying cause.
func Wrap(msg string, err error) Error {
	return Error{Text: msg, cause: err}
}

// RemoteError is what a Stub invocation raises when the server object's
// method itself returned an error (Response status Exception). Only the
// message survives the trip; the original concrete error type does not,
// since the receiving process has no way to reconstruct an arbitrary,
// unregistered Go type (§8 scenario 3: the caller still sees a plain error
// with the original message, never an rmi.Error).
type RemoteError struct {
	Text string
}

func (e RemoteError) Error() string {
	return e.Text
}

// ProgrammerError marks an unrecoverable misuse of this package's API
// (§7.1): a descriptor that fails validation, a nil server object, a
// request for an address that doesn't exist yet. Recovered only by fixing
// the calling code, never by retrying.
type ProgrammerError struct {
	Text string
}

func (e ProgrammerError) Error() string {
	return e.Text
}

// fatal panics with a ProgrammerError built from format/args. The public
// constructors in stub and skeleton do not call it: each of those packages
// declares its own fatal helper that panics with a ProgrammerError.
func fatal(format string, args ...interface{}) {
	panic(ProgrammerError{Text: fmt.Sprintf(format, args...)})
}

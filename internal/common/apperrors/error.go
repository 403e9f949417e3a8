// Package apperrors provides the error type shared by the fine SDK and CLI. Errors carry a
// human readable message, an optional HTTP status code and a chain of wrapped causes, and they
// remain compatible with errors.Is and errors.As.
package apperrors

// Error extends the standard error interface with chaining helpers. Every helper returns a new
// value; the receiver is never modified, so package level sentinels can be shared freely.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // fresh error that matches the receiver via errors.Is
	Msg(msg string) Error                  // new message, receiver kept as a cause
	MsgErr(msg string, err ...error) Error // new message, receiver and err kept as causes
	Err(err ...error) Error                // same message, err attached as causes
	SetStatusCode(int) Error               // attach an HTTP status code
	StatusCode() int                       // status code, 0 when unset
	ErrorAll() string                      // message followed by every wrapped cause
	UnwrapAll() []error                    // wrapped causes in the order they were added
}

/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

// Package pserrors provides the sentinel error taxonomy for the
// PowerShell supervisor and stack-capturing wrapping in the style of
// [github.com/haraldrudell/parl/perrors].
package pserrors

import (
	"errors"

	"github.com/haraldrudell/parl/perrors"
)

// the four error categories a command's result sink can be resolved with
//   - §7 of the supervisor specification
var (
	// ErrTimeout: no envelope received within the configured timeout
	ErrTimeout = errors.New("powershell command timeout")
	// ErrClosed: the child exited before this command completed
	ErrClosed = errors.New("powershell child closed")
	// ErrWriteFailed: the stdin write returned an error
	ErrWriteFailed = errors.New("powershell stdin write failed")
	// ErrDecode: envelope bytes were not valid JSON in the expected shape
	ErrDecode = errors.New("powershell envelope decode failed")
	// ErrQueueFull: Options.MaxQueueDepth exceeded
	ErrQueueFull = errors.New("powershell command queue full")
)

// Timeout wraps ErrTimeout with the configured duration, retaining a stack trace
func Timeout(timeoutMS int64) (err error) {
	return perrors.Errorf("%w after %dms", ErrTimeout, timeoutMS)
}

// Closed wraps ErrClosed with a reason, retaining a stack trace
func Closed(reason string) (err error) {
	return perrors.Errorf("%w: %s", ErrClosed, reason)
}

// WriteFailed wraps ErrWriteFailed with the underlying write error
func WriteFailed(cause error) (err error) {
	return perrors.Errorf("%w: %w", ErrWriteFailed, cause)
}

// Decode wraps ErrDecode with the underlying JSON error
func Decode(cause error) (err error) {
	return perrors.Errorf("%w: %w", ErrDecode, cause)
}

// QueueFull wraps ErrQueueFull with the depth observed at rejection
func QueueFull(depth int) (err error) {
	return perrors.Errorf("%w: depth %d", ErrQueueFull, depth)
}

// Join is a convenience join that always produces stack-adorned errors
func Join(errs ...error) (err error) {
	if err = errors.Join(errs...); err != nil && !perrors.HasStack(err) {
		err = perrors.Errorf("%w", err)
	}
	return
}

// Short renders err as a single debug-friendly line, delegating to [perrors.Short]
func Short(err error) string { return perrors.Short(err) }

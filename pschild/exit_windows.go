//go:build windows

/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package pschild

import (
	"errors"
	"os"
	"os/exec"
)

// signalLike is the type Kill accepts. Windows has no POSIX signals;
// the kill escalation (spec §4.5) degrades to plain process kill on
// every escalation step on this platform
type signalLike = os.Signal

// exitCodeAndSignal decodes an [exec.Cmd.Wait] error into an exit
// code. Windows process termination carries no POSIX signal, so signal
// is always empty
func exitCodeAndSignal(cmd *exec.Cmd, waitErr error) (exitCode int, signal string) {
	if waitErr == nil {
		return
	}
	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		exitCode = -1
		return
	}
	exitCode = exitErr.ExitCode()
	return
}

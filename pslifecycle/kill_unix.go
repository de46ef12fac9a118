//go:build !windows

/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package pslifecycle

import (
	"golang.org/x/sys/unix"

	"github.com/haraldrudell/fullpwsh/pschild"
)

// escalation signals, via golang.org/x/sys/unix the way the teacher's
// pexec decodes and sends signals rather than bare package syscall
// (_examples/haraldrudell-parl/pexec/exit-error.go)
func killTerm(c *pschild.Child) error  { return c.Kill(unix.SIGTERM) }
func killInt(c *pschild.Child) error   { return c.Kill(unix.SIGINT) }
func killForce(c *pschild.Child) error { return c.Kill(unix.SIGKILL) }

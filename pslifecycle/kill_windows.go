//go:build windows

/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package pslifecycle

import (
	"os"

	"github.com/haraldrudell/fullpwsh/pschild"
)

// Windows has no POSIX signal distinctions: every escalation step is a
// plain process kill (spec §4.5 "Windows-like hosts")
func killTerm(c *pschild.Child) error  { return c.Kill(os.Kill) }
func killInt(c *pschild.Child) error   { return c.Kill(os.Kill) }
func killForce(c *pschild.Child) error { return c.Kill(os.Kill) }

/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package pschild

import (
	gosysinfo "github.com/elastic/go-sysinfo"
)

// Running cross-checks pid against the host process table, grounded
// on the teacher's use of go-sysinfo for process inspection
// (_examples/haraldrudell-parl/parlp/process-start.go). Used to verify
// spec §8 invariant 6: after destroy completes, the child pid is not
// running. A lookup error is treated as "not running" — go-sysinfo
// returns an error for an absent pid on every supported platform.
func Running(pid int) bool {
	_, err := gosysinfo.Process(pid)
	return err == nil
}

// Running reports whether this child's process is still present in
// the host process table
func (c *Child) Running() bool { return Running(c.Pid) }

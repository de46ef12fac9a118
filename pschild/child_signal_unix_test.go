//go:build !windows

/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package pschild

import "syscall"

func killSignal() signalLike { return syscall.SIGTERM }

//go:build windows

/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package pschild

import "os"

func killSignal() signalLike { return os.Kill }

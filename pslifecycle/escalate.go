/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package pslifecycle

import (
	"time"

	"github.com/haraldrudell/fullpwsh/pschild"
)

// killStepDelay is the interval between escalation signals (spec §4.5)
const killStepDelay = 10 * time.Second

// killEscalate sends SIGTERM immediately, then SIGINT and SIGKILL on a
// 10-second schedule, stopping early once done is closed — which the
// caller does as soon as the child's closed signal is observed
// (spec §4.5 "racing against closed or restarted")
func killEscalate(child *pschild.Child, done <-chan struct{}) {
	killTerm(child)

	select {
	case <-done:
		return
	case <-time.After(killStepDelay):
	}
	killInt(child)

	select {
	case <-done:
		return
	case <-time.After(killStepDelay):
	}
	killForce(child)
}

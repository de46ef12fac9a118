/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package pschild

import (
	"os"
	"testing"
)

func TestRunningReportsSelf(t *testing.T) {
	if !Running(os.Getpid()) {
		t.Error("Running(os.Getpid()) = false, want true")
	}
}

func TestRunningReportsAbsentPid(t *testing.T) {
	// a pid far beyond any realistic host process table entry
	if Running(1 << 30) {
		t.Error("Running(huge pid) = true, want false")
	}
}

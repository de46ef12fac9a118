/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package pslifecycle

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/haraldrudell/fullpwsh/pschild"
	"github.com/haraldrudell/fullpwsh/pserrors"
	"github.com/haraldrudell/fullpwsh/psdispatch"
)

func lookupInterpreter(t *testing.T) string {
	t.Helper()
	if _, ok := os.LookupEnv("ITEST"); !ok {
		t.Skip("skip because ITEST not set")
	}
	for _, exe := range []string{"pwsh", "powershell"} {
		if _, err := exec.LookPath(exe); err == nil {
			return exe
		}
	}
	t.Skip("no PowerShell interpreter on PATH")
	return ""
}

// TestStartCallDestroy exercises the real lifecycle end to end:
// startup, one call that must complete without error, graceful shutdown.
func TestStartCallDestroy(t *testing.T) {
	var exe = lookupInterpreter(t)

	var d = psdispatch.New(time.Minute, noopBroadcasters{})
	d.Run()

	var c = New(Config{Child: pschild.Config{ExePath: exe, TmpDir: t.TempDir()}}, d)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %s", err)
	}

	var cmd = psdispatch.NewCommand(`"hello"`, "json", false, false)
	d.Submit(cmd)

	select {
	case r := <-cmd.Result():
		if r.Err != nil {
			t.Fatalf("call failed: %s", r.Err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("timed out waiting for call result")
	}

	var ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := c.Destroy(ctx); err != nil {
		t.Fatalf("Destroy: %s", err)
	}
}

// TestTimeoutTriggersRestart exercises spec §8 scenario 5: a timed-out
// call errors, and a subsequent call on the restarted interpreter
// succeeds.
func TestTimeoutTriggersRestart(t *testing.T) {
	var exe = lookupInterpreter(t)

	var d = psdispatch.New(500*time.Millisecond, noopBroadcasters{})
	d.Run()

	var c = New(Config{Child: pschild.Config{ExePath: exe, TmpDir: t.TempDir()}}, d)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %s", err)
	}

	var slow = psdispatch.NewCommand("Start-Sleep -Seconds 5;", "json", false, false)
	d.Submit(slow)
	select {
	case r := <-slow.Result():
		if !errors.Is(r.Err, pserrors.ErrTimeout) {
			t.Fatalf("expected timeout error, got %v", r.Err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for slow command to fail")
	}

	var after = psdispatch.NewCommand(`"Call After Reset"`, "json", false, false)
	d.Submit(after)
	select {
	case r := <-after.Result():
		if r.Err != nil {
			t.Fatalf("call after restart failed: %s", r.Err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("timed out waiting for post-restart call")
	}

	var ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	c.Destroy(ctx)
}

type noopBroadcasters struct{}

func (noopBroadcasters) Success(v []byte)   {}
func (noopBroadcasters) Error(v []string)   {}
func (noopBroadcasters) Warning(v []string) {}
func (noopBroadcasters) Verbose(v []string) {}
func (noopBroadcasters) Debug(v []string)   {}
func (noopBroadcasters) Info(v []string)    {}

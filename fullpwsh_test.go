/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package fullpwsh

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/haraldrudell/fullpwsh/psdispatch"
)

// TestDefaultOptionsMatchesSpec covers spec §6's configuration defaults:
// a 600s timeout and both Verbose/Debug streams collected.
func TestDefaultOptionsMatchesSpec(t *testing.T) {
	var opts = DefaultOptions()
	if opts.Timeout != 600_000*time.Millisecond {
		t.Errorf("Timeout = %s, want 600000ms", opts.Timeout)
	}
	if !opts.CollectVerbose {
		t.Error("CollectVerbose = false, want true")
	}
	if !opts.CollectDebug {
		t.Error("CollectDebug = false, want true")
	}
}

func TestSetTimeoutAndCollectFlags(t *testing.T) {
	var d = psdispatch.New(time.Minute, newBroadcastSet())
	var s = &Supervisor{opts: DefaultOptions(), d: d, bc: newBroadcastSet()}

	s.SetTimeout(5 * time.Second)
	if s.opts.Timeout != 5*time.Second {
		t.Errorf("opts.Timeout = %s, want 5s", s.opts.Timeout)
	}

	s.SetCollectFlags(true, true)
	if !s.opts.CollectVerbose || !s.opts.CollectDebug {
		t.Error("SetCollectFlags did not update opts")
	}
}

func TestReserveReleaseSlotRespectsMaxQueueDepth(t *testing.T) {
	var s = &Supervisor{opts: Options{MaxQueueDepth: 2}}

	if !s.reserveSlot() {
		t.Fatal("first reserve should succeed")
	}
	if !s.reserveSlot() {
		t.Fatal("second reserve should succeed")
	}
	if s.reserveSlot() {
		t.Fatal("third reserve should fail: depth exceeds MaxQueueDepth")
	}

	s.releaseSlot()
	if !s.reserveSlot() {
		t.Fatal("reserve should succeed again after a release")
	}
}

func TestReserveSlotUnboundedWhenMaxQueueDepthZero(t *testing.T) {
	var s = &Supervisor{opts: Options{MaxQueueDepth: 0}}
	for i := 0; i < 1000; i++ {
		if !s.reserveSlot() {
			t.Fatalf("reserve %d should always succeed when unbounded", i)
		}
	}
}

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

// TestNewCallDestroy exercises the façade end to end: construction, one
// call, stream subscription, and shutdown.
func TestNewCallDestroy(t *testing.T) {
	var exe = lookupInterpreter(t)

	var opts = DefaultOptions()
	opts.ExePath = exe
	opts.TmpDir = t.TempDir()

	var s, err = New(opts)
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	var successCh = s.Success()

	var ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	var result StreamsResult
	if result, err = s.CallWait(ctx, `"hello"`, FormatJSON); err != nil {
		t.Fatalf("CallWait: %s", err)
	}
	if result.Err != nil {
		t.Fatalf("call failed: %s", result.Err)
	}

	select {
	case v := <-successCh:
		if len(v) != 1 {
			t.Errorf("success broadcast got %v, want one element", v)
		}
	case <-time.After(5 * time.Second):
		t.Error("timed out waiting for success broadcast")
	}

	var destroyCtx, destroyCancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer destroyCancel()
	if err = s.Destroy(destroyCtx); err != nil {
		t.Fatalf("Destroy: %s", err)
	}
}

// TestCallRejectsWhenQueueFull exercises the resolved Open Question on
// bounded queue depth (spec SPEC_FULL.md §"Unbounded vs bounded queue").
func TestCallRejectsWhenQueueFull(t *testing.T) {
	var exe = lookupInterpreter(t)

	var opts = DefaultOptions()
	opts.ExePath = exe
	opts.TmpDir = t.TempDir()
	opts.MaxQueueDepth = 1
	opts.Timeout = time.Minute

	var s, err = New(opts)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	defer func() {
		var ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.Destroy(ctx)
	}()

	var ctx = context.Background()
	if _, err = s.Call(ctx, "Start-Sleep -Seconds 5;", FormatJSON); err != nil {
		t.Fatalf("first Call should be admitted: %s", err)
	}
	if _, err = s.Call(ctx, `"second"`, FormatJSON); err == nil {
		t.Error("second Call should be rejected: queue depth 1 already occupied")
	}
}

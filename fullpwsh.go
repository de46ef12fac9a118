/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

// Package fullpwsh is the façade over a supervised PowerShell
// interpreter: one call submits script source and gets back decoded
// success/error/warning/verbose/debug/info streams, while a restart
// and shutdown machinery underneath keeps exactly one interpreter
// process alive (spec §4.6). It wires together [psdispatch.Dispatcher]
// and [pslifecycle.Controller] the way the teacher's `cmd/` mains wire
// together a `g0.GoGroup` and its workers
// (_examples/haraldrudell-parl/g0/go-group.go).
package fullpwsh

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/haraldrudell/fullpwsh/pschild"
	"github.com/haraldrudell/fullpwsh/pserrors"
	"github.com/haraldrudell/fullpwsh/psdispatch"
	"github.com/haraldrudell/fullpwsh/pslifecycle"
	"github.com/haraldrudell/fullpwsh/pswrap"
)

// Format selects how a call's success stream is serialized; an alias
// of [pswrap.Format] so callers never need to import pswrap directly
type Format = pswrap.Format

const (
	FormatJSON   = pswrap.FormatJSON
	FormatString = pswrap.FormatString
	FormatNone   = pswrap.FormatNone
)

// Options configures a Supervisor. The zero value is not directly
// usable; start from [DefaultOptions].
type Options struct {
	ExePath        string // "pwsh"/"powershell"; empty resolves to the platform default
	TmpDir         string // scratch dir for the two per-child temp files; empty uses the working directory
	Timeout        time.Duration
	CollectVerbose bool
	CollectDebug   bool
	MaxQueueDepth  int // 0: unbounded: Call blocks only as long as Submit's buffered channel allows
	Log            pslifecycle.Logf
}

// DefaultOptions returns an Options with the teacher's preference for
// explicit, zero-value-safe Go defaults over struct-tag magic
// (_examples/haraldrudell-parl/pexec constants), matching spec §6's
// configuration defaults: a 600s timeout and both Verbose/Debug streams
// collected.
func DefaultOptions() Options {
	return Options{
		Timeout:        600_000 * time.Millisecond,
		CollectVerbose: true,
		CollectDebug:   true,
	}
}

// CallResult is one command's decoded outcome (spec §3 "Envelope"): at
// most one of Success/Err is meaningful, since a dispatch-level failure
// (timeout, closed, write-failed, decode) never carries a decoded
// envelope
type CallResult struct {
	Success []byte // raw JSON; unmarshal with [pschild.DecodeSuccess]-equivalent or encoding/json directly
	Error   []string
	Warning []string
	Verbose []string
	Debug   []string
	Info    []string
	Format  Format
	Err     error
}

// StreamsResult is what CallWait returns: identical shape to
// CallResult, named separately because it is a synchronous result
// rather than a promise
type StreamsResult = CallResult

// Supervisor owns the dispatcher, the lifecycle controller, and the
// six broadcaster fan-outs. The zero value is not usable; construct
// with [New].
type Supervisor struct {
	opts Options
	d    *psdispatch.Dispatcher
	c    *pslifecycle.Controller
	bc   *broadcastSet

	depth int32 // only meaningful when opts.MaxQueueDepth > 0
}

// New spawns the first interpreter and starts the dispatcher and
// lifecycle controller (spec §4.6 "construction")
func New(opts Options) (s *Supervisor, err error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}

	var bc = newBroadcastSet()
	var d = psdispatch.New(opts.Timeout, bc)
	d.Run()

	var c = pslifecycle.New(pslifecycle.Config{
		Child: pschild.Config{ExePath: opts.ExePath, TmpDir: opts.TmpDir},
		Log:   opts.Log,
	}, d)
	if err = c.Start(); err != nil {
		d.Stop()
		return
	}

	s = &Supervisor{opts: opts, d: d, c: c, bc: bc}
	return
}

// Call submits source and returns immediately with a one-shot channel
// that receives the single decoded result (spec §4.6 "call constructs
// a Command ... and returns it" — the handle is returned before
// completion)
func (s *Supervisor) Call(ctx context.Context, source string, format Format) (result <-chan CallResult, err error) {
	if s.opts.MaxQueueDepth > 0 && !s.reserveSlot() {
		err = pserrors.QueueFull(s.opts.MaxQueueDepth)
		return
	}

	var cmd = psdispatch.NewCommand(source, format, s.opts.CollectVerbose, s.opts.CollectDebug)
	var out = make(chan CallResult, 1)
	result = out

	s.d.Submit(cmd)
	go s.await(ctx, cmd, out)

	return
}

// CallWait submits source and blocks until the result is available or
// ctx is done
func (s *Supervisor) CallWait(ctx context.Context, source string, format Format) (result StreamsResult, err error) {
	var ch <-chan CallResult
	if ch, err = s.Call(ctx, source, format); err != nil {
		return
	}
	select {
	case result = <-ch:
	case <-ctx.Done():
		err = ctx.Err()
	}
	return
}

// await forwards cmd's eventual result (or a context cancellation) to
// out, then releases this command's queue-depth slot
func (s *Supervisor) await(ctx context.Context, cmd *psdispatch.Command, out chan CallResult) {
	var resultCh = cmd.Result()
	select {
	case r := <-resultCh:
		s.releaseSlot()
		out <- toCallResult(r)
	case <-ctx.Done():
		out <- CallResult{Err: ctx.Err()}
		// the command is still queued or in flight; release the slot
		// once the dispatcher actually resolves it rather than now
		go func() {
			<-resultCh
			s.releaseSlot()
		}()
	}
}

func toCallResult(r psdispatch.Result) CallResult {
	return CallResult{
		Success: r.Success,
		Error:   r.Error,
		Warning: r.Warning,
		Verbose: r.Verbose,
		Debug:   r.Debug,
		Info:    r.Info,
		Format:  r.Format,
		Err:     r.Err,
	}
}

func (s *Supervisor) reserveSlot() bool {
	if s.opts.MaxQueueDepth <= 0 {
		return true // unbounded
	}
	for {
		var cur = atomic.LoadInt32(&s.depth)
		if int(cur) >= s.opts.MaxQueueDepth {
			return false
		}
		if atomic.CompareAndSwapInt32(&s.depth, cur, cur+1) {
			return true
		}
	}
}

func (s *Supervisor) releaseSlot() {
	if s.opts.MaxQueueDepth > 0 {
		atomic.AddInt32(&s.depth, -1)
	}
}

// SetTimeout changes the per-command timeout applied to commands
// dispatched from now on (cmd/pwsh-probe's -watch live-reload; spec's
// domain stack fsnotify wiring)
func (s *Supervisor) SetTimeout(timeout time.Duration) {
	s.opts.Timeout = timeout
	s.d.SetTimeout(timeout)
}

// SetCollectFlags changes whether subsequently dispatched commands
// collect the Verbose/Debug streams via their scratch files
func (s *Supervisor) SetCollectFlags(collectVerbose, collectDebug bool) {
	s.opts.CollectVerbose = collectVerbose
	s.opts.CollectDebug = collectDebug
}

// Destroy shuts the interpreter down and closes every broadcaster
// (spec §4.5 "Shutdown"); idempotent, like [pslifecycle.Controller.Destroy]
func (s *Supervisor) Destroy(ctx context.Context) (err error) {
	err = s.c.Destroy(ctx)
	s.bc.closeAll()
	return
}

// Success returns a fresh subscription to the success stream; each
// call registers an independent subscriber (spec §6 "Broadcaster set")
func (s *Supervisor) Success() (ch <-chan []any) { return s.bc.success.subscribe() }

// ErrorStream returns a fresh subscription to the error stream
func (s *Supervisor) ErrorStream() (ch <-chan []string) { return s.bc.errorS.subscribe() }

// Warning returns a fresh subscription to the warning stream
func (s *Supervisor) Warning() (ch <-chan []string) { return s.bc.warning.subscribe() }

// Verbose returns a fresh subscription to the verbose stream
func (s *Supervisor) Verbose() (ch <-chan []string) { return s.bc.verbose.subscribe() }

// Debug returns a fresh subscription to the debug stream
func (s *Supervisor) Debug() (ch <-chan []string) { return s.bc.debug.subscribe() }

// Info returns a fresh subscription to the info stream
func (s *Supervisor) Info() (ch <-chan []string) { return s.bc.info.subscribe() }

/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

// Package psdispatch implements the queue and dispatcher (spec §4.4): a
// single-threaded cooperative state machine with states Idle, Writing,
// Awaiting, run on one dedicated goroutine that owns the command queue,
// the in-flight command, and the per-command timeout — modeled on the
// teacher's convention of a dedicated, supervised worker goroutine
// (github.com/haraldrudell/parl/g0,
// _examples/haraldrudell-parl/g0/go-group.go) reading a fixed set of
// event channels rather than a pool of workers.
package psdispatch

import (
	"sync/atomic"
	"time"

	"github.com/haraldrudell/fullpwsh/pschild"
	"github.com/haraldrudell/fullpwsh/pserrors"
	"github.com/haraldrudell/fullpwsh/pswrap"
)

// state is the dispatcher's current position in the Idle/Writing/Awaiting
// machine (spec §4.4). Writing is transient: Submit's write to stdin runs
// synchronously inside the run loop, so it is never observed from outside
// the loop, but the constant exists to name that step in traces and tests.
type state int

const (
	stateIdle state = iota
	stateWriting
	stateAwaiting
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateWriting:
		return "writing"
	case stateAwaiting:
		return "awaiting"
	}
	return "unknown"
}

// ChildPort is the subset of *pschild.Child the dispatcher depends on, so
// tests can substitute a fake interpreter without spawning a process.
// Child death is not detected here: the lifecycle controller is the sole
// subscriber of a child's one-shot Closed signal (pschild.Child.Closed
// sends to exactly one reader) and calls [Dispatcher.Drain] once it
// observes a death, so the dispatcher never competes with the controller
// for that channel.
type ChildPort interface {
	Write(source string, format pswrap.Format, collectVerbose, collectDebug bool) error
	Replies() <-chan pschild.Envelope
}

// Broadcasters receives non-empty per-stream sequences from completed
// commands, in command order (spec §5 "Ordering guarantees")
type Broadcasters interface {
	Success(v []byte)
	Error(v []string)
	Warning(v []string)
	Verbose(v []string)
	Debug(v []string)
	Info(v []string)
}

// Result is what a Command's sink resolves to: either a decoded envelope
// or a dispatch-level error (spec §7)
type Result struct {
	Success []byte
	Error   []string
	Warning []string
	Verbose []string
	Debug   []string
	Info    []string
	Format  pswrap.Format
	Err     error
}

// Command is one queued or in-flight call (spec §3)
type Command struct {
	Source         string
	Format         pswrap.Format
	CollectVerbose bool
	CollectDebug   bool

	sink chan Result
}

// NewCommand builds a Command with a fresh single-shot sink, per spec
// §4.6 ("call constructs a Command with a fresh single-shot sink and
// returns it")
func NewCommand(source string, format pswrap.Format, collectVerbose, collectDebug bool) *Command {
	return &Command{
		Source:         source,
		Format:         format,
		CollectVerbose: collectVerbose,
		CollectDebug:   collectDebug,
		sink:           make(chan Result, 1),
	}
}

// Result returns the command's one-shot result channel; it receives
// exactly one value (spec §8 invariant 2)
func (c *Command) Result() <-chan Result { return c.sink }

func (c *Command) resolve(r Result) {
	select {
	case c.sink <- r:
	default: // already resolved; cannot happen given the dispatcher invariant but kept panic-free
	}
}

// EventKind distinguishes the conditions the dispatcher hands off to the
// lifecycle controller (spec §4.4 "(hand off to lifecycle)"); the third
// condition in that section, the child's closed signal, is observed by
// the controller directly rather than relayed through an Event, since
// Closed is single-subscriber (see [ChildPort])
type EventKind int

const (
	// EventTimeout: the in-flight command's timeout elapsed
	EventTimeout EventKind = iota
	// EventWriteFailed: a stdin write errored; treated as closed for
	// dispatching purposes (spec §7)
	EventWriteFailed
	// EventDecode: the in-flight command's reply frame failed to decode
	// (spec §7 "Decode"); treated like EventTimeout for restart purposes
	EventDecode
)

// Event is one hand-off from the dispatcher to whatever supervises
// restarts and shutdown (spec §4.5)
type Event struct {
	Kind EventKind
}

// attachRequest swaps in a newly (re)spawned child; done is closed once
// the dispatcher's run loop has taken it up
type attachRequest struct {
	child ChildPort
	done  chan struct{}
}

// Dispatcher runs the queue-and-correlate state machine on its own
// goroutine. The zero value is not usable; construct with [New].
type Dispatcher struct {
	timeout atomic.Int64 // time.Duration nanoseconds; read fresh for every command's timer
	bc      Broadcasters

	submitCh chan *Command
	attachCh chan attachRequest
	drainCh  chan error
	eventsCh chan Event
	stopCh   chan struct{}
}

// New returns a Dispatcher with no attached child; call Attach once a
// child has been spawned and Run to start the goroutine
func New(timeout time.Duration, bc Broadcasters) (d *Dispatcher) {
	d = &Dispatcher{
		bc:       bc,
		submitCh: make(chan *Command, 64),
		attachCh: make(chan attachRequest),
		drainCh:  make(chan error),
		eventsCh: make(chan Event, 8),
		stopCh:   make(chan struct{}),
	}
	d.timeout.Store(int64(timeout))
	return
}

// SetTimeout changes the per-command timeout applied to the next
// command dispatched; commands already awaiting a reply keep their
// original timer (cmd/pwsh-probe's -watch live-reload)
func (d *Dispatcher) SetTimeout(timeout time.Duration) { d.timeout.Store(int64(timeout)) }

// Run starts the dispatcher's goroutine; it returns once Stop is called
func (d *Dispatcher) Run() { go d.run() }

// Stop terminates the run loop. Queued commands are left unresolved; the
// caller (the lifecycle controller) is expected to Drain first.
func (d *Dispatcher) Stop() { close(d.stopCh) }

// Submit enqueues cmd; arrival order here is the order completions will
// follow (spec §8 invariant 1), as long as no restart/shutdown intervenes
func (d *Dispatcher) Submit(cmd *Command) { d.submitCh <- cmd }

// Attach points the dispatcher at a newly spawned child and resumes
// dispatching from Idle. Blocks until the run loop has taken up the child.
func (d *Dispatcher) Attach(child ChildPort) {
	var done = make(chan struct{})
	d.attachCh <- attachRequest{child: child, done: done}
	<-done
}

// Drain fails every queued command (and the in-flight one, if any) with
// err, synchronously. Used by the lifecycle controller on restart
// ("pending commands from the prior generation... failed with closed",
// spec §4.5) and on shutdown (spec §4.5 "drain the queue").
func (d *Dispatcher) Drain(err error) { d.drainCh <- err }

// Events reports timeouts, write failures and decode failures for the
// lifecycle controller to act on; child closure is not reported here
// (see [ChildPort])
func (d *Dispatcher) Events() <-chan Event { return d.eventsCh }

func (d *Dispatcher) run() {
	var queue []*Command
	var current *Command
	var child ChildPort
	var st = stateIdle
	var timer *time.Timer

	var stopTimer = func() {
		if timer != nil {
			timer.Stop()
			timer = nil
		}
	}
	defer stopTimer()

	var failAll = func(err error) {
		if current != nil {
			current.resolve(Result{Err: err})
			current = nil
		}
		for _, cmd := range queue {
			cmd.resolve(Result{Err: err})
		}
		queue = nil
		st = stateIdle
		stopTimer()
	}

	var tryDispatch = func() {
		if st != stateIdle || child == nil || len(queue) == 0 {
			return
		}
		current, queue = queue[0], queue[1:]
		st = stateWriting

		var err = child.Write(current.Source, current.Format, current.CollectVerbose, current.CollectDebug)
		if err != nil {
			// WriteFailed is treated as Closed for dispatching purposes
			// (spec §7): the whole queue drains and the lifecycle
			// controller is notified, not just this one command
			failAll(pserrors.WriteFailed(err))
			child = nil
			d.eventsCh <- Event{Kind: EventWriteFailed}
			return
		}

		st = stateAwaiting
		timer = time.NewTimer(time.Duration(d.timeout.Load()))
	}

	for {
		var repliesCh <-chan pschild.Envelope
		var timeoutCh <-chan time.Time
		if child != nil && st == stateAwaiting {
			repliesCh = child.Replies()
			if timer != nil {
				timeoutCh = timer.C
			}
		}

		select {
		case <-d.stopCh:
			return

		case cmd := <-d.submitCh:
			queue = append(queue, cmd)
			tryDispatch()

		case req := <-d.attachCh:
			child = req.child
			st = stateIdle
			close(req.done)
			tryDispatch()

		case err := <-d.drainCh:
			// commands already handed to Submit but still buffered in
			// submitCh are queued commands too and fail with the rest
		buffered:
			for {
				select {
				case cmd := <-d.submitCh:
					queue = append(queue, cmd)
				default:
					break buffered
				}
			}
			failAll(err)

		case env := <-repliesCh:
			stopTimer()
			var resolved = current
			current = nil
			st = stateIdle

			// a frame that failed to decode is not a completed
			// command: resolve the sink with the decode error alone,
			// skip broadcaster fan-out entirely (there is no stream
			// data to trust), and hand off to the lifecycle
			// controller the same way a timeout does (spec §7)
			if env.Err != nil {
				if resolved != nil {
					resolved.resolve(Result{Err: env.Err})
				}
				child = nil // paused until the lifecycle controller Attaches a fresh child
				d.eventsCh <- Event{Kind: EventDecode}
				continue
			}

			if resolved != nil {
				resolved.resolve(Result{
					Success: env.Success,
					Error:   env.Error,
					Warning: env.Warning,
					Verbose: env.Verbose,
					Debug:   env.Debug,
					Info:    env.Info,
					Format:  env.Format,
				})
			}
			// broadcaster fan-out happens after the caller-facing sink
			// has already been resolved above, and before the next
			// dispatch tick below (spec §5 "Ordering guarantees")
			if d.bc != nil {
				if len(env.Success) > 0 {
					d.bc.Success(env.Success)
				}
				if len(env.Error) > 0 {
					d.bc.Error(env.Error)
				}
				if len(env.Warning) > 0 {
					d.bc.Warning(env.Warning)
				}
				if len(env.Verbose) > 0 {
					d.bc.Verbose(env.Verbose)
				}
				if len(env.Debug) > 0 {
					d.bc.Debug(env.Debug)
				}
				if len(env.Info) > 0 {
					d.bc.Info(env.Info)
				}
			}
			tryDispatch()

		case <-timeoutCh:
			if current != nil {
				current.resolve(Result{Err: pserrors.Timeout(time.Duration(d.timeout.Load()).Milliseconds())})
				current = nil
			}
			st = stateIdle
			timer = nil
			child = nil // paused until the lifecycle controller Attaches a fresh child
			d.eventsCh <- Event{Kind: EventTimeout}
		}
	}
}

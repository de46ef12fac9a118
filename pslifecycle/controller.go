/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

// Package pslifecycle implements the lifecycle controller (spec §4.5):
// startup, timeout/fatal-triggered restart with kill escalation, and
// graceful-then-forceful shutdown. It is the sole subscriber of a
// child's one-shot Closed signal, grounded on the teacher's
// [parl.Awaitable]/[parl.CyclicAwaitable] channel-close semaphores
// (_examples/haraldrudell-parl/awaitable.go, cyclic-awaitable.go) for
// the closed one-shot and restarted one-shot-per-cycle signals.
package pslifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haraldrudell/parl"
	"github.com/oklog/ulid/v2"

	"github.com/haraldrudell/fullpwsh/pschild"
	"github.com/haraldrudell/fullpwsh/pserrors"
	"github.com/haraldrudell/fullpwsh/psdispatch"
)

// Logf is the teacher's printf-shaped logging thunk
// (_examples/haraldrudell-parl/plog/d.go)
type Logf func(format string, a ...any)

// Config carries everything needed to spawn and respawn children
type Config struct {
	Child pschild.Config
	Log   Logf
}

// Controller owns the current child's process handle and drives the
// dispatcher through restarts and shutdown. The zero value is not
// usable; construct with [New].
type Controller struct {
	cfg Config
	d   *psdispatch.Dispatcher

	closing    atomic.Bool
	restarting atomic.Bool
	closed     parl.Awaitable
	restarted  parl.CyclicAwaitable
	closeOnce  sync.Once

	mu    sync.Mutex
	child *pschild.Child
}

// New returns a Controller for the given dispatcher; call Start to spawn
// the first child and begin supervising it
func New(cfg Config, d *psdispatch.Dispatcher) (c *Controller) {
	if cfg.Log == nil {
		cfg.Log = func(string, ...any) {}
	}
	return &Controller{cfg: cfg, d: d}
}

// Start spawns the first interpreter, attaches it to the dispatcher, and
// launches the supervising goroutine (spec §4.5 "Startup")
func (c *Controller) Start() (err error) {
	var child *pschild.Child
	if child, err = c.spawn(); err != nil {
		return
	}
	c.setChild(child)
	c.d.Attach(child)
	go c.run()
	return
}

// Destroy runs shutdown exactly once (spec §4.5 "Shutdown"), idempotent:
// subsequent calls observe the same terminal signal. ctx bounds only how
// long the caller waits, not the shutdown itself.
func (c *Controller) Destroy(ctx context.Context) (err error) {
	c.closeOnce.Do(func() { go c.shutdown() })
	select {
	case <-c.closed.Ch():
	case <-ctx.Done():
		err = ctx.Err()
	}
	return
}

func (c *Controller) spawn() (child *pschild.Child, err error) {
	return pschild.Spawn(c.cfg.Child, ulid.Make())
}

// spawnWithRetry respawns with capped exponential backoff; a failing
// interpreter executable (misconfiguration) should not busy-loop
func (c *Controller) spawnWithRetry() (child *pschild.Child) {
	var backoff = 200 * time.Millisecond
	for {
		var err error
		if child, err = c.spawn(); err == nil {
			return
		}
		c.cfg.Log("fullpwsh: respawn failed, retrying in %s: %s", backoff, pserrors.Short(err))
		time.Sleep(backoff)
		if backoff < 10*time.Second {
			backoff *= 2
		}
	}
}

func (c *Controller) setChild(child *pschild.Child) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.child = child
}

func (c *Controller) currentChild() (child *pschild.Child) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.child
}

// run is the supervising goroutine: the sole reader of the current
// child's Closed signal, and the handler for dispatcher-reported
// timeouts and write failures
func (c *Controller) run() {
	var restarting bool
	var escalateDone chan struct{}

	for {
		var child = c.currentChild()
		var closedCh <-chan pschild.ClosedInfo
		if child != nil {
			closedCh = child.Closed()
		}

		select {
		case ev, ok := <-c.d.Events():
			if !ok {
				return
			}
			if restarting || c.closing.Load() {
				continue // escalation or shutdown already under way for the current child
			}
			switch ev.Kind {
			case psdispatch.EventTimeout:
				c.cfg.Log("fullpwsh: command timed out on pid %d, restarting", child.Pid)
			case psdispatch.EventWriteFailed:
				c.cfg.Log("fullpwsh: stdin write failed on pid %d, restarting", child.Pid)
			case psdispatch.EventDecode:
				c.cfg.Log("fullpwsh: envelope decode failed on pid %d, restarting", child.Pid)
			}
			restarting = true
			c.restarting.Store(true)
			c.restarted.Open()
			escalateDone = make(chan struct{})
			go killEscalate(child, escalateDone)

		case info := <-closedCh:
			if escalateDone != nil {
				close(escalateDone)
				escalateDone = nil
			}
			if c.closing.Load() {
				c.finishShutdown()
				return
			}
			if !restarting {
				c.cfg.Log("fullpwsh: interpreter exited unexpectedly, exit=%d signal=%s", info.ExitCode, info.Signal)
				restarting = true
				c.restarting.Store(true)
				c.restarted.Open()
			}
			// pending commands from the prior generation that had not
			// yet begun are failed with Closed (spec §4.5); the command
			// that provoked a timeout/write-failure restart was already
			// failed by the dispatcher at detection time
			c.d.Drain(pserrors.Closed("interpreter restarting"))

			var newChild = c.spawnWithRetry()
			c.setChild(newChild)
			c.d.Attach(newChild)

			restarting = false
			c.restarting.Store(false)
			c.restarted.Close()
		}
	}
}

func (c *Controller) shutdown() {
	if c.restarting.Load() {
		<-c.restarted.Ch()
	}
	c.closing.Store(true)

	var child = c.currentChild()
	if child == nil {
		c.closed.Close()
		return
	}

	var done = make(chan struct{})
	go killEscalate(child, done)
	<-c.closed.Ch() // signaled by run() once it observes this child's Closed
	close(done)
}

// finishShutdown is called from run() once closing is observed together
// with the final child's closed signal
func (c *Controller) finishShutdown() {
	c.d.Drain(pserrors.Closed("supervisor destroyed"))
	c.d.Stop()
	c.closed.Close()
}

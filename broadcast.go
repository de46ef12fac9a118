/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package fullpwsh

import (
	"encoding/json"
	"sync"
)

// fanout is a bespoke non-replaying multi-subscriber broadcaster,
// adapted from the teacher's [parl.NBChan] idiom (non-blocking
// internal delivery, mutex-guarded subscriber list, idempotent close)
// (_examples/haraldrudell-parl/nb-chan.go) — NBChan itself is
// single-consumer, so each subscriber here gets its own buffered
// channel rather than sharing the one NBChan underlying channel.
type fanout[T any] struct {
	mu     sync.Mutex
	subs   []chan T
	closed bool
}

// subscriberBuffer bounds how far a slow subscriber may lag; once its
// buffer is full, newly published values are dropped for that
// subscriber until it catches up (matching publish's non-blocking
// semantics below)
const subscriberBuffer = 64

func newFanout[T any]() *fanout[T] { return &fanout[T]{} }

// subscribe registers a new, independent subscriber and returns its
// receive-only channel; subscribing after close yields an already
// closed channel
func (f *fanout[T]) subscribe() <-chan T {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ch = make(chan T, subscriberBuffer)
	if f.closed {
		close(ch)
		return ch
	}
	f.subs = append(f.subs, ch)
	return ch
}

// publish fans v out to every current subscriber, non-blocking: a
// subscriber that has not drained its buffer misses this value rather
// than stalling every other subscriber or the dispatcher goroutine
// that calls publish
func (f *fanout[T]) publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

func (f *fanout[T]) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for _, ch := range f.subs {
		close(ch)
	}
	f.subs = nil
}

// broadcastSet holds the six per-stream fan-outs and implements
// [psdispatch.Broadcasters]
type broadcastSet struct {
	success *fanout[[]any]
	errorS  *fanout[[]string]
	warning *fanout[[]string]
	verbose *fanout[[]string]
	debug   *fanout[[]string]
	info    *fanout[[]string]
}

func newBroadcastSet() *broadcastSet {
	return &broadcastSet{
		success: newFanout[[]any](),
		errorS:  newFanout[[]string](),
		warning: newFanout[[]string](),
		verbose: newFanout[[]string](),
		debug:   newFanout[[]string](),
		info:    newFanout[[]string](),
	}
}

// Success unmarshals the envelope's raw success JSON into a generic
// slice before fan-out, so subscribers receive PowerShell values
// rather than undecoded bytes; an empty array (such as "[]") is not
// published
func (b *broadcastSet) Success(v []byte) {
	var items []any
	if err := json.Unmarshal(v, &items); err != nil {
		b.errorS.publish([]string{"fullpwsh: malformed success payload: " + err.Error()})
		return
	}
	if len(items) == 0 {
		return
	}
	b.success.publish(items)
}

func (b *broadcastSet) Error(v []string)   { b.errorS.publish(v) }
func (b *broadcastSet) Warning(v []string) { b.warning.publish(v) }
func (b *broadcastSet) Verbose(v []string) { b.verbose.publish(v) }
func (b *broadcastSet) Debug(v []string)   { b.debug.publish(v) }
func (b *broadcastSet) Info(v []string)    { b.info.publish(v) }

func (b *broadcastSet) closeAll() {
	b.success.close()
	b.errorS.close()
	b.warning.close()
	b.verbose.close()
	b.debug.close()
	b.info.close()
}

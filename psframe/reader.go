/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

// Package psframe implements the byte-level state machine that
// reassembles complete, delimited envelope payloads from a byte stream
// that may deliver partial or multiple frames per chunk (spec §4.2).
// It is modeled on the buffer-accumulation idiom of the teacher's
// [github.com/haraldrudell/parl/pio.LineReader]
// (_examples/haraldrudell-parl/pio/line-reader.go): a growable []byte
// buffer fed by repeated appends, scanned from the front on every
// write, instead of an io.Reader pull interface — because the unit
// here is a delimited frame emitted to a callback, not a line returned
// from Read.
package psframe

import "bytes"

// Reader accumulates bytes written via Write and emits each complete
// frame bracketed by Head and Tail through Emit
//   - not safe for concurrent Write calls; intended for one reader
//     goroutine per pipe, per spec §4.2
//   - the zero value is not usable; construct with [New]
type Reader struct {
	head, tail []byte
	buf        []byte
	emit       func(payload []byte)
}

// New returns a Reader that frames on head/tail and invokes emit for
// each extracted payload, in order
func New(head, tail []byte, emit func(payload []byte)) (r *Reader) {
	return &Reader{
		head: append([]byte{}, head...),
		tail: append([]byte{}, tail...),
		emit: emit,
	}
}

// Write appends chunk to the internal buffer and extracts every
// complete frame now available, invoking Emit for each in order
//   - chunks may split a delimiter; correctness follows from scanning
//     the full buffer on every write, not from any per-chunk state
//   - if a tail appears with no preceding head in the buffer, the
//     head-index is treated as start-of-buffer: the portion of the
//     buffer before the head is discarded along with the payload —
//     this silently-discards-orphan-bytes behavior is preserved on
//     purpose (spec §4.2, §9 Open Question)
func (r *Reader) Write(chunk []byte) (n int, err error) {
	n = len(chunk)
	r.buf = append(r.buf, chunk...)

	for {
		var tailIdx = bytes.Index(r.buf, r.tail)
		if tailIdx == -1 {
			break // no complete frame available yet
		}

		var payloadStart int
		if headIdx := bytes.LastIndex(r.buf[:tailIdx], r.head); headIdx == -1 {
			// no preceding head: matches the source's slice semantics
			// of treating this as index 0, discarding any pre-head noise
			payloadStart = 0
		} else {
			payloadStart = headIdx + len(r.head)
		}

		var payload = append([]byte{}, r.buf[payloadStart:tailIdx]...)
		r.buf = append([]byte{}, r.buf[tailIdx+len(r.tail):]...)

		if r.emit != nil {
			r.emit(payload)
		}
	}

	return
}

/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

// Package pschild spawns and owns one PowerShell interpreter child
// process: its three pipes, its two scratch temp files, a write sink,
// and a demultiplexed reply stream (spec §4.3). It adapts the teacher
// library's [github.com/haraldrudell/parl/pexec] stream-management
// idiom (_examples/haraldrudell-parl/pexec/exec-stream-full.go,
// cmd-container.go): [exec.Command] plus one copy-goroutine per
// pipe, and [pexec.ExitError]-style exit decoding.
package pschild

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/haraldrudell/parl/perrors"
	"github.com/oklog/ulid/v2"

	"github.com/haraldrudell/fullpwsh/psframe"
	"github.com/haraldrudell/fullpwsh/pserrors"
	"github.com/haraldrudell/fullpwsh/pswrap"
)

// Generation is the monotonic identifier of a spawned interpreter
// (spec §3 "Child generation"); rendered as a ULID so it sorts and
// carries a timestamp in log lines across a restart
type Generation = ulid.ULID

// Envelope is the decoded form of one wrapper JSON envelope (spec §3).
// Err, when non-nil, means the frame itself failed to decode (spec
// §7 "Decode"): every other field is then meaningless, and the
// dispatcher must resolve the in-flight sink with Err and provoke a
// restart rather than treat this as a normal completed command.
type Envelope struct {
	Success []byte // raw JSON: array (json/none) or JSON-compressed string-of-strings (string format)
	Error   []string
	Warning []string
	Verbose []string
	Debug   []string
	Info    []string
	Format  pswrap.Format
	Err     error
}

// ClosedInfo reports why/how the child stopped (spec §4.3 "closed")
type ClosedInfo struct {
	ExitCode int
	Signal   string
	Err      error
}

// Config is everything needed to spawn one child (spec §4.3, §6)
type Config struct {
	ExePath string // "pwsh" or "powershell"; empty resolves to the platform default (defaultExe)
	TmpDir  string // must allow file creation; scratch dir for the two temp files
}

// Child owns one spawned PowerShell interpreter: its pipes, its two
// scratch files, and the goroutines that pump them
type Child struct {
	Generation Generation
	Pid        int

	verboseFile, debugFile string
	head, tail             []byte

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	replies chan Envelope
	closed  chan ClosedInfo

	writeMu    sync.Mutex
	closeOnce  sync.Once
	removeOnce sync.Once
}

// Spawn launches a new interpreter child with piped stdio, generates
// the 8-byte random hex prefix for the two scratch files and the
// per-child delimiter halves, and starts the stdout/stderr pumps
func Spawn(cfg Config, gen Generation) (c *Child, err error) {
	var exe = cfg.ExePath
	if exe == "" {
		exe = defaultExe()
	}

	// one random source, sliced into the 8-hex-char temp-file prefix
	// (4 bytes) and the two 10-byte delimiters (5 bytes each) — see
	// spec §4.3 and §6
	var rnd = uuid.New()
	var prefix = fmt.Sprintf("%x", rnd[0:4])
	var head = fmt.Sprintf("%x", rnd[4:9])
	var tail = fmt.Sprintf("%x", rnd[9:14])

	var tmpDir = cfg.TmpDir
	if tmpDir == "" {
		tmpDir = "." + string(filepath.Separator)
	}

	c = &Child{
		Generation:  gen,
		verboseFile: filepath.Join(tmpDir, prefix+"_fps_verbose.tmp"),
		debugFile:   filepath.Join(tmpDir, prefix+"_fps_debug.tmp"),
		head:        []byte(head),
		tail:        []byte(tail),
		// buffered by 1: the at-most-one-in-flight protocol never
		// produces more than one pending reply in the normal case, and
		// the buffer makes onStdoutFrame's non-blocking send reliable
		// (not dependent on the dispatcher already being parked in its
		// receive) instead of racing an unbuffered handoff
		replies: make(chan Envelope, 1),
		closed:  make(chan ClosedInfo, 1),
	}

	var cmd = exec.Command(exe, "-NoLogo", "-NoExit", "-Command", "-")

	var stdin io.WriteCloser
	if stdin, err = cmd.StdinPipe(); err != nil {
		err = perrors.ErrorfPF("StdinPipe %w", err)
		return
	}
	var stdout, stderr io.ReadCloser
	if stdout, err = cmd.StdoutPipe(); err != nil {
		err = perrors.ErrorfPF("StdoutPipe %w", err)
		return
	}
	if stderr, err = cmd.StderrPipe(); err != nil {
		err = perrors.ErrorfPF("StderrPipe %w", err)
		return
	}

	if err = cmd.Start(); err != nil {
		err = perrors.ErrorfPF("exec.Cmd.Start %w", err)
		return
	}
	c.cmd = cmd
	c.stdin = stdin
	c.Pid = cmd.Process.Pid

	var stdoutFramer = psframe.New(c.head, c.tail, c.onStdoutFrame)
	var stderrFramer = psframe.New(c.head, c.tail, func([]byte) {}) // stderr frames are not semantically meaningful, but the pipe must still drain

	var wg sync.WaitGroup
	wg.Add(2)
	go pump(stdout, stdoutFramer, &wg)
	go pump(stderr, stderrFramer, &wg)

	go c.awaitExit(&wg)

	return
}

// defaultExe returns the platform-default interpreter executable name
// (spec §6): "powershell" on Windows, "pwsh" elsewhere
func defaultExe() string {
	if runtime.GOOS == "windows" {
		return "powershell"
	}
	return "pwsh"
}

// pump copies everything read from src into framer.Write until EOF,
// never returning an error — a closed pipe on fast child exit is
// expected, matching the teacher's copyThread tolerance of fs.ErrClosed
// (_examples/haraldrudell-parl/pexec/copy-thread.go)
func pump(src io.Reader, framer *psframe.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	var buf = make([]byte, 64*1024)
	for {
		var n, err = src.Read(buf)
		if n > 0 {
			framer.Write(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// onStdoutFrame decodes one extracted stdout frame into an Envelope
// and publishes it on replies; a decode failure is published as an
// Envelope carrying only Err, so the dispatcher can tell a broken
// frame apart from an interpreter that printed to its error stream
// (spec §7 "Decode")
func (c *Child) onStdoutFrame(payload []byte) {
	var env, err = decode(payload)
	if err != nil {
		env = Envelope{Err: pserrors.Decode(err)}
	}
	// non-blocking: a timeout, decode failure, or write failure makes
	// the dispatcher stop reading Replies for this generation (spec
	// §4.4/§4.5) while the child may still be alive and produce a late
	// frame; dropping it here, rather than blocking forever, keeps the
	// stdout pump draining so awaitExit/Closed still fire
	select {
	case c.replies <- env:
	default:
	}
}

// awaitExit waits for the pump goroutines to finish (stdout/stderr
// drained) and for the process itself to exit, decodes the exit
// reason, removes the scratch files (best-effort, idempotent), and
// fires Closed exactly once
func (c *Child) awaitExit(wg *sync.WaitGroup) {
	wg.Wait()
	var waitErr = c.cmd.Wait()

	var info ClosedInfo
	info.ExitCode, info.Signal = exitCodeAndSignal(c.cmd, waitErr)
	if waitErr != nil {
		info.Err = perrors.ErrorfPF("child exited %w", waitErr)
	}

	c.removeScratchFiles()

	c.closeOnce.Do(func() {
		c.closed <- info
		close(c.closed)
	})
}

// removeScratchFiles deletes the two temp files created for this
// child, best-effort and idempotent (spec §3 invariant, §6 "Persisted
// state") — the wrapper's own finally block also removes them after
// each call, so double-removal here is the common case, not an error
func (c *Child) removeScratchFiles() {
	c.removeOnce.Do(func() {
		_ = os.Remove(c.verboseFile)
		_ = os.Remove(c.debugFile)
	})
}

// Write asks the wrapper builder for the final source for one command
// and writes it to stdin in a single write
func (c *Child) Write(source string, format pswrap.Format, collectVerbose, collectDebug bool) (err error) {
	var script string
	if script, err = pswrap.Build(pswrap.Options{
		Source:         source,
		Head:           string(c.head),
		Tail:           string(c.tail),
		VerboseFile:    c.verboseFile,
		DebugFile:      c.debugFile,
		Format:         format,
		CollectVerbose: collectVerbose,
		CollectDebug:   collectDebug,
	}); err != nil {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err = io.WriteString(c.stdin, script+"\n"); err != nil {
		err = pserrors.WriteFailed(err)
	}
	return
}

// Replies returns the single-subscriber stream of decoded envelopes
func (c *Child) Replies() <-chan Envelope { return c.replies }

// Closed returns the one-shot signal carrying exit code and signal
func (c *Child) Closed() <-chan ClosedInfo { return c.closed }

// Kill sends sig to the child process, tolerating a process that has
// already exited
func (c *Child) Kill(sig signalLike) (err error) {
	if c.cmd == nil || c.cmd.Process == nil {
		return
	}
	if err = c.cmd.Process.Signal(sig); err != nil {
		err = perrors.ErrorfPF("signal %s %w", sig, err)
	}
	return
}


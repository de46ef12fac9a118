/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License

pwsh-probe exercises the fullpwsh façade end to end: it spawns a
supervised interpreter, submits one script read from stdin or -source,
prints the decoded streams, and shuts down cleanly.

execute on-the-fly:
go run ./cmd/pwsh-probe -source '"hello"'
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/term"

	"github.com/haraldrudell/fullpwsh"
)

func main() {
	var sourceFlag = flag.String("source", "", "PowerShell source to run; reads stdin if empty")
	var formatFlag = flag.String("format", "json", "success format: json, string, or none")
	var configFlag = flag.String("config", "", "path to a YAML Options file")
	var watchFlag = flag.Bool("watch", false, "live-reload Timeout/CollectVerbose/CollectDebug from -config")
	flag.Parse()

	var opts = fullpwsh.DefaultOptions()
	if *configFlag != "" {
		var err error
		if opts, err = fullpwsh.OptionsFromYAML(*configFlag); err != nil {
			log.Fatalf("pwsh-probe: %s", err)
		}
	}

	var s, err = fullpwsh.New(opts)
	if err != nil {
		log.Fatalf("pwsh-probe: New: %s", err)
	}
	defer func() {
		var ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.Destroy(ctx); err != nil {
			log.Printf("pwsh-probe: Destroy: %s", err)
		}
	}()

	if *watchFlag && *configFlag != "" {
		go watchConfig(*configFlag, s)
	}

	var source = *sourceFlag
	if source == "" {
		var b []byte
		if b, err = io.ReadAll(os.Stdin); err != nil {
			log.Fatalf("pwsh-probe: reading stdin: %s", err)
		}
		source = string(b)
	}

	var ctx, cancel = context.WithTimeout(context.Background(), opts.Timeout+5*time.Second)
	defer cancel()
	var result fullpwsh.StreamsResult
	if result, err = s.CallWait(ctx, source, fullpwsh.Format(*formatFlag)); err != nil {
		log.Fatalf("pwsh-probe: CallWait: %s", err)
	}
	if sep := statusSeparator(int(os.Stdout.Fd())); sep != "" {
		fmt.Println(sep)
	}
	printResult(result)
}

// statusSeparator returns a rule the width of the terminal attached to
// fd, or "" when fd is not a terminal (piped/redirected stdout) — the
// same term.IsTerminal/term.GetSize pair the teacher's pterm.StatusTerminal
// uses to decide whether status output applies at all
// (_examples/haraldrudell-parl/pterm/status-terminal.go); pwsh-probe
// takes only these two calls rather than the full StatusTerminal type,
// since it prints one separator line before the result, not an
// updatable status area.
func statusSeparator(fd int) string {
	if !term.IsTerminal(fd) {
		return ""
	}
	var width, _, err = term.GetSize(fd)
	if err != nil || width <= 0 {
		width = 80
	}
	return strings.Repeat("─", width)
}

func printResult(r fullpwsh.StreamsResult) {
	if r.Err != nil {
		color.Red("error: %s", r.Err)
		return
	}
	if len(r.Success) > 0 {
		color.Green("success: %s", r.Success)
	}
	for _, line := range r.Error {
		color.Red("stderr: %s", line)
	}
	for _, line := range r.Warning {
		color.Yellow("warning: %s", line)
	}
	for _, line := range r.Info {
		fmt.Println("info:", line)
	}
}

// watchConfig live-reloads Timeout/CollectVerbose/CollectDebug from the
// YAML file at path whenever it changes on disk; ExePath and TmpDir
// only take effect at the next interpreter restart and are not applied
// here (SPEC_FULL.md domain stack, fsnotify wiring)
func watchConfig(path string, s *fullpwsh.Supervisor) {
	var watcher, err = fsnotify.NewWatcher()
	if err != nil {
		log.Printf("pwsh-probe: fsnotify.NewWatcher: %s", err)
		return
	}
	defer watcher.Close()

	if err = watcher.Add(path); err != nil {
		log.Printf("pwsh-probe: watching %s: %s", path, err)
		return
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			var reloaded, err = fullpwsh.OptionsFromYAML(path)
			if err != nil {
				log.Printf("pwsh-probe: reload %s: %s", path, err)
				continue
			}
			s.SetTimeout(reloaded.Timeout)
			s.SetCollectFlags(reloaded.CollectVerbose, reloaded.CollectDebug)
			log.Printf("pwsh-probe: reloaded config from %s", path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("pwsh-probe: watch error: %s", err)
		}
	}
}

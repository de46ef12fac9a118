/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

// Package pswrap generates the PowerShell preamble/epilogue that runs a
// user fragment with all six output streams captured and emits one
// delimited JSON envelope. It performs no I/O: Build is a pure string
// transform, grounded on the string-building packages of the teacher
// library ([github.com/haraldrudell/parl/pstrings], [github.com/haraldrudell/parl/pfmt]).
package pswrap

import (
	"fmt"
	"strings"

	"github.com/haraldrudell/parl/perrors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf8Encoder re-validates a string as UTF-8 via the BOM-less UTF-8
// encoder, matching the [Console]::OutputEncoding directive Build
// emits into the generated script (spec §4.1 item 1)
var utf8Encoder = unicode.UTF8.NewEncoder()

// validUTF8 reports whether s passes [encoding.UTF8Validator] and then
// utf8Encoder without error (the encoder alone replaces ill-formed bytes
// with U+FFFD rather than failing); the delimiter halves are ASCII hex
// in practice, but a caller supplying a hand-built Head/Tail gets the
// same guarantee the wrapper script's own UTF-8 output encoding assumes
func validUTF8(s string) bool {
	_, _, err := transform.String(transform.Chain(encoding.UTF8Validator, utf8Encoder), s)
	return err == nil
}

// delimiterLen is the fixed byte length of HEAD and TAIL (§6)
const delimiterLen = 10

// halfLen is the length of each reconstructed delimiter half
const halfLen = delimiterLen / 2

// Options carries everything the wrapper needs to bracket and capture a
// single user fragment (spec §4.1)
type Options struct {
	// Source is the opaque PowerShell fragment to execute
	Source string
	// Head and Tail are 10-byte ASCII frame delimiters, unique and
	// stable for the life of the child (§6)
	Head, Tail string
	// VerboseFile and DebugFile are scratch paths used to collect the
	// Verbose(4) and Debug(5) streams, which are not reliably captured
	// in-memory (§4.1 item 3)
	VerboseFile, DebugFile string
	// Format selects how the success field is serialized
	Format Format
	// CollectVerbose and CollectDebug enable file-backed capture of
	// those two streams; when false, the corresponding stream is
	// redirected to $null
	CollectVerbose, CollectDebug bool
}

// Build generates the complete PowerShell source for one call, per §4.1
//   - the returned script always starts by setting UTF-8 output encoding,
//     always reassembles Head/Tail from two halves local to the script,
//     and always emits the envelope from a finally block so Error is
//     never silently lost
func Build(o Options) (script string, err error) {
	if len(o.Head) != delimiterLen || len(o.Tail) != delimiterLen {
		err = perrors.ErrorfPF("head/tail must each be %d bytes, got %d/%d", delimiterLen, len(o.Head), len(o.Tail))
		return
	}
	if !validUTF8(o.Head) || !validUTF8(o.Tail) {
		err = perrors.ErrorfPF("head/tail must be valid UTF-8")
		return
	}
	if !o.Format.IsValid() {
		err = perrors.ErrorfPF("invalid format %q", o.Format)
		return
	}

	var b strings.Builder

	// 1: UTF-8 everywhere, so stream text round-trips losslessly
	b.WriteString("[Console]::OutputEncoding = [System.Text.Encoding]::UTF8\n")
	b.WriteString("$OutputEncoding = [System.Text.Encoding]::UTF8\n")

	// 2: split delimiters into halves kept in variables local to this
	// invocation, so the wrapper source itself never contains the
	// literal framing sequence
	fmt.Fprintf(&b, "$__h1 = %s; $__h2 = %s\n", quote(o.Head[:halfLen]), quote(o.Head[halfLen:]))
	fmt.Fprintf(&b, "$__t1 = %s; $__t2 = %s\n", quote(o.Tail[:halfLen]), quote(o.Tail[halfLen:]))

	b.WriteString("$__ov = $null; $__ev = $null; $__wv = $null; $__iv = $null\n")

	// 3+4: run the fragment with Success/Error/Warning/Information
	// captured via common parameters; Verbose/Debug redirected to file
	// or null; any throw assigns into $__ev so Error is never lost
	b.WriteString("try {\n")
	fmt.Fprintf(&b, "    Invoke-Command -ScriptBlock { %s } -OutVariable __ov -ErrorVariable __ev -WarningVariable __wv -InformationVariable __iv %s %s\n",
		o.Source, redirect(4, o.CollectVerbose, o.VerboseFile), redirect(5, o.CollectDebug, o.DebugFile))
	b.WriteString("} catch {\n")
	b.WriteString("    $__ev += $_\n")
	b.WriteString("} finally {\n")

	// 5: collect verbose/debug from their files (newline-delimited, not
	// item-delimited — a documented limitation callers must accept),
	// then remove the files
	b.WriteString("    $__verboseLines = @()\n")
	if o.CollectVerbose {
		fmt.Fprintf(&b, "    if (Test-Path %s) { $__verboseLines = @(Get-Content -LiteralPath %s); Remove-Item -LiteralPath %s -ErrorAction SilentlyContinue }\n",
			quote(o.VerboseFile), quote(o.VerboseFile), quote(o.VerboseFile))
	}
	b.WriteString("    $__debugLines = @()\n")
	if o.CollectDebug {
		fmt.Fprintf(&b, "    if (Test-Path %s) { $__debugLines = @(Get-Content -LiteralPath %s); Remove-Item -LiteralPath %s -ErrorAction SilentlyContinue }\n",
			quote(o.DebugFile), quote(o.DebugFile), quote(o.DebugFile))
	}

	b.WriteString("    $__successJson = " + successExpression(o.Format) + "\n")
	b.WriteString("    $__errorJson = ConvertTo-Json -InputObject @($__ev | ForEach-Object { $_ | Out-String }) -Compress\n")
	b.WriteString("    $__warningJson = ConvertTo-Json -InputObject @($__wv | ForEach-Object { $_ | Out-String }) -Compress\n")
	b.WriteString("    $__verboseJson = ConvertTo-Json -InputObject @($__verboseLines) -Compress\n")
	b.WriteString("    $__debugJson = ConvertTo-Json -InputObject @($__debugLines) -Compress\n")
	b.WriteString("    $__infoJson = ConvertTo-Json -InputObject @($__iv | ForEach-Object { $_ | Out-String }) -Compress\n")

	fmt.Fprintf(&b, "    $__envelope = @{ success = $__successJson; error = $__errorJson; warning = $__warningJson; verbose = $__verboseJson; debug = $__debugJson; info = $__infoJson; format = %s }\n",
		quote(string(o.Format)))

	// 6: single-expression write of HEAD + envelope JSON + TAIL
	b.WriteString("    ($__h1 + $__h2) + ($__envelope | ConvertTo-Json -Depth 2 -Compress) + ($__t1 + $__t2) | Write-Output\n")
	b.WriteString("}\n")

	script = b.String()
	return
}

// successExpression returns the PowerShell statement assigning
// $__successJson (or, for FormatNone, the raw array itself)
func successExpression(f Format) string {
	switch f {
	case FormatJSON:
		return "ConvertTo-Json -InputObject @($__ov) -Compress"
	case FormatString:
		return "ConvertTo-Json -InputObject @($__ov | ForEach-Object { $_ | Out-String }) -Compress"
	default: // FormatNone
		return "@($__ov)"
	}
}

// redirect returns the PowerShell stream redirection clause for stream
// number n: to file when collect is true, otherwise to $null
func redirect(n int, collect bool, file string) string {
	if collect {
		return fmt.Sprintf("%d>> %s", n, quote(file))
	}
	return fmt.Sprintf("%d> $null", n)
}

// quote renders s as a single-quoted PowerShell string literal,
// doubling embedded single quotes per PowerShell escaping rules
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

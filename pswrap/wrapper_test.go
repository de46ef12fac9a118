/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package pswrap

import (
	"strings"
	"testing"
)

func TestBuildFramesAndEncoding(t *testing.T) {
	var o = Options{
		Source:         `Write-Output "hi"`,
		Head:           "HHHHHHHHHH",
		Tail:           "TTTTTTTTTT",
		VerboseFile:    `C:\tmp\a_fps_verbose.tmp`,
		DebugFile:      `C:\tmp\a_fps_debug.tmp`,
		Format:         FormatJSON,
		CollectVerbose: true,
		CollectDebug:   true,
	}
	script, err := Build(o)
	if err != nil {
		t.Fatalf("Build err: %s", err)
	}
	for _, want := range []string{
		"OutputEncoding",
		"$__h1 = 'HHHHH'; $__h2 = 'HHHHH'",
		"$__t1 = 'TTTTT'; $__t2 = 'TTTTT'",
		"Invoke-Command -ScriptBlock { Write-Output \"hi\" }",
		"4>> 'C:\\tmp\\a_fps_verbose.tmp'",
		"5>> 'C:\\tmp\\a_fps_debug.tmp'",
		"$__ev += $_",
		"($__h1 + $__h2) + ($__envelope | ConvertTo-Json -Depth 2 -Compress) + ($__t1 + $__t2)",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q\nfull script:\n%s", want, script)
		}
	}
	if strings.Contains(script, "HHHHHHHHHH") {
		t.Error("script must never contain the literal, unsplit head delimiter")
	}
	if strings.Contains(script, "TTTTTTTTTT") {
		t.Error("script must never contain the literal, unsplit tail delimiter")
	}
}

func TestBuildNoCollection(t *testing.T) {
	script, err := Build(Options{
		Source: "Get-Date",
		Head:   "0123456789",
		Tail:   "9876543210",
		Format: FormatString,
	})
	if err != nil {
		t.Fatalf("Build err: %s", err)
	}
	if !strings.Contains(script, "4> $null") || !strings.Contains(script, "5> $null") {
		t.Error("uncollected verbose/debug must redirect to $null")
	}
	if strings.Contains(script, "Remove-Item") {
		t.Error("no file cleanup expected when collection disabled")
	}
}

func TestBuildFormats(t *testing.T) {
	for _, tc := range []struct {
		format Format
		want   string
	}{
		{FormatJSON, "ConvertTo-Json -InputObject @($__ov) -Compress"},
		{FormatString, "$__ov | ForEach-Object { $_ | Out-String }"},
		{FormatNone, "@($__ov)"},
	} {
		script, err := Build(Options{Source: "1", Head: "AAAAAAAAAA", Tail: "BBBBBBBBBB", Format: tc.format})
		if err != nil {
			t.Fatalf("Build err for %s: %s", tc.format, err)
		}
		if !strings.Contains(script, tc.want) {
			t.Errorf("format %s: script missing %q", tc.format, tc.want)
		}
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	if _, err := Build(Options{Source: "x", Head: "short", Tail: "9876543210", Format: FormatJSON}); err == nil {
		t.Error("expected error for short head")
	}
	if _, err := Build(Options{Source: "x", Head: "0123456789", Tail: "9876543210", Format: "bogus"}); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestBuildRejectsInvalidUTF8Delimiter(t *testing.T) {
	var badHead = string([]byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb, 0xfa, 0xf9, 0xf8, 0xf7, 0xf6})
	if _, err := Build(Options{Source: "x", Head: badHead, Tail: "9876543210", Format: FormatJSON}); err == nil {
		t.Error("expected error for non-UTF-8 head delimiter")
	}
}

func TestQuoteEscapesSingleQuotes(t *testing.T) {
	if got, want := quote("it's"), `'it''s'`; got != want {
		t.Errorf("quote(%q) = %q, want %q", "it's", got, want)
	}
}

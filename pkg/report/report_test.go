package report

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestPreview(t *testing.T) {
	short := strings.Repeat("a", 50)
	if Preview(short) != short {
		t.Fatal("50 characters must not be truncated")
	}
	if got := Preview(strings.Repeat("é", 51)); got != strings.Repeat("é", 50)+"..." {
		t.Fatalf("unexpected preview %q", got)
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Summary(4, 3, 1)
	want := strings.Join([]string{
		strings.Repeat("=", 50),
		"Batch update summary:",
		"Total: 4",
		"Success: 3",
		"Failed: 1",
		"Completion: 75.0%",
		strings.Repeat("=", 50),
		"",
	}, "\n") + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected summary:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestProgressAndWaiting(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	p.Item(1, 3, 17, "enabled")
	p.Progress(1, 3, 0, 1)
	p.Waiting(1500 * time.Millisecond)
	for _, want := range []string{
		"Running iteration 1/3",
		"Processing channel ID: 17 (status: enabled)",
		"Progress: 33.3% (1/3) [success: 0, fail: 1]",
		"Waiting 1.50 seconds before continuing...",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("missing %q in:\n%s", want, buf.String())
		}
	}
}

func TestPlainOutputWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	p.OKf("done %d", 1)
	p.Failf("broken")
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("unexpected escape codes in %q", buf.String())
	}
	if buf.String() != "✅ done 1\n❌ broken\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

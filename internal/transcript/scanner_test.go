package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func TestScanTailFindsLatestAPIError(t *testing.T) {
	path := writeTranscript(t,
		`{"timestamp":"2026-10-18T00:00:00Z","message":{"content":[{"type":"text","text":"hello"}]}}`,
		`{"timestamp":"2026-10-18T00:00:01Z","isApiErrorMessage":true,"message":{"content":[{"type":"text","text":"API Error: 529 {\"type\":\"overloaded_error\"}"}]}}`,
		`not json`,
		`{"timestamp":"2026-10-18T00:00:02Z","isApiErrorMessage":true,"message":{"content":[{"type":"text","text":"API Error: 429 rate limited"}]}}`,
	)
	found, ev, err := NewScanner().ScanTail(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || ev == nil {
		t.Fatalf("expected error event")
	}
	if ev.Code != 429 || ev.Timestamp != "2026-10-18T00:00:02Z" || !strings.HasPrefix(ev.Message, "API Error: 429") {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestScanTailErrorObject(t *testing.T) {
	path := writeTranscript(t, `{"timestamp":"2026-10-18T00:00:03Z","error":{"status":504,"message":"gateway timeout"}}`)
	found, ev, err := NewScanner().ScanTail(path)
	if err != nil || !found {
		t.Fatalf("expected event, err=%v", err)
	}
	if ev.Code != 504 || ev.Message != "gateway timeout" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestScanTailNoErrors(t *testing.T) {
	path := writeTranscript(t, `{"timestamp":"2026-10-18T00:00:00Z","message":"all good"}`)
	found, ev, err := NewScanner().ScanTail(path)
	if err != nil || found || ev != nil {
		t.Fatalf("expected nothing, got found=%v ev=%+v err=%v", found, ev, err)
	}
}

func TestScanTailMissingFile(t *testing.T) {
	found, _, err := NewScanner().ScanTail(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil || found {
		t.Fatalf("expected silent miss, got found=%v err=%v", found, err)
	}
}

func TestScanTailOnlyReadsTail(t *testing.T) {
	old := `{"timestamp":"2026-10-18T00:00:00Z","isApiErrorMessage":true,"message":"API Error: 500"}`
	filler := `{"message":"` + strings.Repeat("x", 200) + `"}`
	lines := []string{old}
	for i := 0; i < 20; i++ {
		lines = append(lines, filler)
	}
	path := writeTranscript(t, lines...)

	s := &Scanner{tailBytes: 1024}
	found, _, err := s.ScanTail(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected error outside the tail window to be ignored")
	}
}

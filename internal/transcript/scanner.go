package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

const defaultTailBytes = 64 * 1024

var apiErrorPattern = regexp.MustCompile(`API Error:\s*(\d{3})`)

// ErrorEvent is an API error found in the transcript. Timestamp is as
// recorded in the transcript (UTC ISO-8601).
type ErrorEvent struct {
	Timestamp string
	Code      uint16
	Message   string
}

// Scanner looks for API errors in the tail of a JSONL transcript.
type Scanner struct {
	tailBytes int64
}

// NewScanner returns a scanner reading the last 64KB of a transcript.
func NewScanner() *Scanner {
	return &Scanner{tailBytes: defaultTailBytes}
}

type entry struct {
	Timestamp         string          `json:"timestamp"`
	IsAPIErrorMessage bool            `json:"isApiErrorMessage"`
	Error             json.RawMessage `json:"error"`
	Message           json.RawMessage `json:"message"`
}

// ScanTail reports whether the tail of path contains an API error and
// returns the most recent one. A missing path is not an error.
func (s *Scanner) ScanTail(path string) (bool, *ErrorEvent, error) {
	if strings.TrimSpace(path) == "" {
		return false, nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, nil, fmt.Errorf("stat transcript: %w", err)
	}
	offset := info.Size() - s.tailBytes
	if offset < 0 {
		offset = 0
	}
	data, err := io.ReadAll(io.NewSectionReader(f, offset, info.Size()-offset))
	if err != nil {
		return false, nil, fmt.Errorf("read transcript: %w", err)
	}
	if offset > 0 {
		// drop the partial first line
		if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
			data = data[idx+1:]
		}
	}

	var last *ErrorEvent
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), int(s.tailBytes)+1)
	for sc.Scan() {
		if ev := parseLine(sc.Bytes()); ev != nil {
			last = ev
		}
	}
	return last != nil, last, nil
}

func parseLine(line []byte) *ErrorEvent {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	var e entry
	if err := json.Unmarshal(line, &e); err != nil {
		return nil
	}

	text := messageText(e.Message)
	code := uint16(0)
	if m := apiErrorPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			code = uint16(n)
		}
	}

	if len(e.Error) > 0 && string(e.Error) != "null" {
		var obj struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		}
		if json.Unmarshal(e.Error, &obj) == nil && obj.Status > 0 {
			if code == 0 {
				code = uint16(obj.Status)
			}
			if text == "" {
				text = obj.Message
			}
		}
	}

	if !e.IsAPIErrorMessage && code == 0 {
		return nil
	}
	return &ErrorEvent{Timestamp: e.Timestamp, Code: code, Message: strings.TrimSpace(text)}
}

// messageText extracts plain text from either a string or a
// {"content":[{"type":"text","text":...}]} message.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var msg struct {
		Content json.RawMessage `json:"content"`
	}
	if json.Unmarshal(raw, &msg) != nil || len(msg.Content) == 0 {
		return ""
	}
	if json.Unmarshal(msg.Content, &s) == nil {
		return s
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if json.Unmarshal(msg.Content, &parts) != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidEvent is returned by ParseEvent when stdin cannot be read or decoded.
var ErrInvalidEvent = errors.New("monitor: invalid event")

const maxEventBytes = 1 << 20

// Event is the JSON document the host writes to stdin on every refresh.
type Event struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cost           struct {
		TotalDurationMs uint64 `json:"total_duration_ms"`
	} `json:"cost"`
}

// ParseEvent decodes one event from r.
func ParseEvent(r io.Reader) (Event, error) {
	var ev Event
	data, err := io.ReadAll(io.LimitReader(r, maxEventBytes))
	if err != nil {
		return ev, fmt.Errorf("%w: read: %v", ErrInvalidEvent, err)
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return ev, nil
}

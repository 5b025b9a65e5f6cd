package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/doridoridoriand/netmon/internal/log"
)

const defaultFileName = "monitoring.json"

var (
	ErrHomeNotFound = errors.New("state: home directory not found")
	ErrStateParse   = errors.New("state: cannot parse snapshot")
)

// DefaultPath returns ~/.netmon/monitoring.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("%w: %v", ErrHomeNotFound, err)
	}
	return filepath.Join(home, ".netmon", defaultFileName), nil
}

// Store loads and atomically replaces the snapshot file. It assumes a single
// writer; concurrent invocations may overwrite each other.
type Store struct {
	path   string
	clock  clock.Clock
	logger *log.Logger
}

// NewStore creates a store for path.
func NewStore(path string, clk clock.Clock, logger *log.Logger) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{path: path, clock: clk, logger: logger}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot. A missing file yields Default() and no error.
// Read and parse failures return Default() together with the error.
func (s *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("read state %s: %w", s.path, err)
	}

	snap := Default()
	if err := json.Unmarshal(data, &snap); err != nil {
		return Default(), fmt.Errorf("%w: %s: %v", ErrStateParse, s.path, err)
	}
	if snap.Network.RollingTotals == nil {
		snap.Network.RollingTotals = []uint32{}
	}
	return snap, nil
}

// LoadOrDefault is Load with failures logged and absorbed.
func (s *Store) LoadOrDefault() Snapshot {
	snap, err := s.Load()
	if err != nil {
		s.logger.LogError("state", err, map[string]interface{}{"path": s.path})
	}
	return snap
}

// Write serializes snap next to the target and renames it into place.
func (s *Store) Write(snap Snapshot) (err error) {
	defer func() { s.logger.LogStateWrite(s.path, err) }()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmpPath := filepath.Join(dir, "."+filepath.Base(s.path)+"."+uuid.NewString()+".tmp")
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		cleanup := multierr.Append(ignoreClosed(tmp.Close()), ignoreMissing(os.Remove(tmpPath)))
		err = multierr.Append(err, cleanup)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename temp state: %w", err)
	}
	committed = true
	return nil
}

// SetLastWindowID records that window id of kind was processed. It only
// writes when id is strictly greater than the stored value and reports
// whether an update happened.
func (s *Store) SetLastWindowID(kind WindowKind, id uint64) (bool, error) {
	snap, err := s.Load()
	if err != nil {
		s.logger.LogError("state", err, map[string]interface{}{"path": s.path})
	}

	switch kind {
	case WindowGreen:
		if id <= snap.MonitoringState.LastGreenWindowID {
			return false, nil
		}
		snap.MonitoringState.LastGreenWindowID = id
	case WindowRed:
		if id <= snap.MonitoringState.LastRedWindowID {
			return false, nil
		}
		snap.MonitoringState.LastRedWindowID = id
	default:
		return false, fmt.Errorf("state: unknown window kind %q", kind)
	}

	if err := s.Write(snap); err != nil {
		return false, err
	}
	return true, nil
}

// WriteUnknown persists the "no credentials" verdict. Rolling statistics are
// kept; API and proxy fields are cleared.
func (s *Store) WriteUnknown(monitoringEnabled bool) error {
	snap := s.LoadOrDefault()
	snap.SetStatus(StatusUnknown)
	snap.MonitoringEnabled = monitoringEnabled
	snap.APIConfig = nil
	snap.ClearProxy()
	snap.Timestamp = FormatLocal(s.clock.Now())
	return s.Write(snap)
}

func ignoreClosed(err error) error {
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

func ignoreMissing(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Package store persists the workspace layout across an in-place restart.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/shrub9/internal/model"
)

const (
	// CurrentSchemaVersion is the current version of the restart state schema.
	CurrentSchemaVersion = 1

	// MaxAge is how old a restart state may be and still be applied. Older
	// files are left over from a crash and may name reused window ids.
	MaxAge = 30 * time.Second
)

// ErrStale is returned for a restart state older than MaxAge.
var ErrStale = errors.New("restart state is stale")

// DataDir returns the path to the shrub9 data directory.
// Uses XDG_DATA_HOME or defaults to ~/.local/share/shrub9.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "shrub9"), nil
}

// RestartPath returns the path to the restart state file for a display.
// Each display gets its own file so two sessions never restore each other.
func RestartPath(display string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	name := "restart.json"
	if display != "" {
		name = "restart-" + sanitize(display) + ".json"
	}
	return filepath.Join(dataDir, name), nil
}

func sanitize(s string) string {
	out := []byte(s)
	for i, b := range out {
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '.', b == '-':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

// RestartState is the workspace layout handed from one daemon run to the
// next. Workspaces maps each window id to its workspace; Order lists every
// workspace's windows most recently used first.
type RestartState struct {
	SchemaVersion int               `json:"schema_version"`
	SavedAt       int64             `json:"saved_at"`
	SessionID     string            `json:"session_id,omitempty"`
	Current       int               `json:"current"`
	Workspaces    map[uint32]int    `json:"workspaces"`
	Order         map[int][]uint32  `json:"order,omitempty"`
	Labels        map[uint32]string `json:"labels,omitempty"`
}

// FromSnapshot captures the layout of snap at now.
func FromSnapshot(snap *model.Snapshot, now time.Time) *RestartState {
	st := &RestartState{
		SchemaVersion: CurrentSchemaVersion,
		SavedAt:       now.Unix(),
		Current:       snap.Current,
		Workspaces:    make(map[uint32]int),
		Order:         make(map[int][]uint32),
		Labels:        make(map[uint32]string),
	}
	if snap.Session != nil {
		st.SessionID = snap.Session.ID
	}
	for _, ws := range snap.Workspaces {
		if len(ws.Clients) == 0 {
			continue
		}
		st.Order[ws.ID] = append([]uint32(nil), ws.Clients...)
		for _, w := range ws.Clients {
			st.Workspaces[w] = ws.ID
		}
	}
	for _, c := range snap.Clients {
		if _, ok := st.Workspaces[c.Window]; ok {
			st.Labels[c.Window] = c.Label
		}
	}
	return st
}

// Stale reports whether the state is too old to apply at now.
func (s *RestartState) Stale(now time.Time) bool {
	return now.Sub(time.Unix(s.SavedAt, 0)) > MaxAge
}

// stateFileMutex protects concurrent access to the state file.
var stateFileMutex sync.Mutex

// SaveRestartState writes the state to path.
func SaveRestartState(path string, state *RestartState) error {
	stateFileMutex.Lock()
	defer stateFileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal restart state: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write restart state: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// TakeRestartState reads and removes the state at path. A missing file
// returns nil and no error. A stale or unreadable file is removed and
// reported as an error.
func TakeRestartState(path string, now time.Time) (*RestartState, error) {
	stateFileMutex.Lock()
	defer stateFileMutex.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read restart state: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("failed to remove restart state: %w", err)
	}

	var state RestartState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse restart state: %w", err)
	}
	if state.SchemaVersion != CurrentSchemaVersion {
		return nil, fmt.Errorf("unsupported restart state schema %d", state.SchemaVersion)
	}
	if state.Stale(now) {
		return nil, fmt.Errorf("%w: saved %s ago", ErrStale, now.Sub(time.Unix(state.SavedAt, 0)).Round(time.Second))
	}
	return &state, nil
}

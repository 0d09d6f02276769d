package tenant

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State is what survives between CLI invocations.
type State struct {
	Version   int       `json:"version"`
	OrgID     string    `json:"org_id,omitempty"`
	Token     string    `json:"token,omitempty"`
	Email     string    `json:"email,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Persister loads and saves the session state.
type Persister interface {
	Load() (State, error)
	Save(State) error
}

const stateVersion = 1

// FilePersister stores the session state as JSON in a single file readable only by the owner.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister writing to baseDir/session.json.
// If baseDir is empty, uses ~/.casework/
func NewFilePersister(baseDir string) (*FilePersister, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".casework")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	return &FilePersister{path: filepath.Join(baseDir, "session.json")}, nil
}

// Path returns the session file location.
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads the session file. A missing file is an empty state.
func (p *FilePersister) Load() (State, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{Version: stateVersion}, nil
		}
		return State{}, fmt.Errorf("failed to read session: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("failed to parse session: %w", err)
	}

	return state, nil
}

// Save writes the session file atomically.
func (p *FilePersister) Save(state State) error {
	state.Version = stateVersion
	state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tempPath := p.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	if err := os.Rename(tempPath, p.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to save session: %w", err)
	}

	log.Debug().Str("path", p.path).Str("org_id", state.OrgID).Msg("session saved")

	return nil
}

// MemoryPersister keeps the state in process; used by tests and the HTTP server.
type MemoryPersister struct {
	mu    sync.Mutex
	state State
}

func (p *MemoryPersister) Load() (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, nil
}

func (p *MemoryPersister) Save(state State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
	return nil
}

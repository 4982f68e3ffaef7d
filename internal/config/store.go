package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mzyy94/ebotlcd/internal/joint"
)

// Settings holds what the panel shows and how the servos are posed.
type Settings struct {
	Pattern   string       `json:"pattern"`   // built-in pattern name; ignored when ImagePath is set
	ImagePath string       `json:"imagePath"` // image file scaled to the panel
	FPS       float64      `json:"fps"`       // refresh rate when streaming
	Joint     joint.Config `json:"joint"`
}

// DefaultSettings returns the default display settings.
func DefaultSettings() Settings {
	return Settings{
		Pattern: "eyes",
		FPS:     10,
	}
}

// Store provides thread-safe settings persistence backed by a JSON file.
type Store struct {
	mu       sync.RWMutex
	settings Settings
	path     string
}

// NewStore creates a Store that persists settings to dataDir/settings.json.
// If the file does not exist or is invalid, default settings are used.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	s := &Store{
		path:     filepath.Join(dataDir, "settings.json"),
		settings: DefaultSettings(),
	}
	s.load()
	return s, nil
}

// NewMemoryStore creates a Store that keeps settings in memory only (no file persistence).
func NewMemoryStore() *Store {
	return &Store{settings: DefaultSettings()}
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update replaces the settings and persists to disk.
func (s *Store) Update(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return s.save()
}

// UpdateJoint replaces only the joint settings.
func (s *Store) UpdateJoint(cfg joint.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Joint = cfg
	return s.save()
}

// Path returns the settings file, or "" for a memory-only store.
func (s *Store) Path() string { return s.path }

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return // file missing is OK, use defaults
	}
	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		slog.Warn("invalid settings file, using defaults", "path", s.path, "err", err)
		return
	}
	s.settings = settings
}

func (s *Store) save() error {
	if s.path == "" {
		return nil // memory-only mode
	}
	data, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PixelPioneer1807/adventure/internal/logging"
	"github.com/PixelPioneer1807/adventure/pkg/adapters/memory"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/google/uuid"
)

// Store implements ports.SaveStore using the local filesystem.
// It stores each save as a JSON file in a configured directory.
// The auto-save replace is serialized per process; the directory must not be
// shared by several writers.
type Store struct {
	BasePath string

	mu     sync.Mutex
	now    func() time.Time
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger configures a logger for unreadable save files.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".adventure/saves".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".adventure", "saves")
	}
	s := &Store{BasePath: basePath, now: time.Now, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create writes the snapshot as a new save.
// An auto-save replaces the previous auto-save of the same story. The
// previous auto-saves are found before writing; if one cannot be removed,
// the new file is removed again and the store is left as it was.
func (s *Store) Create(ctx context.Context, snap domain.Snapshot) (*domain.SavedGame, error) {
	saved := domain.NewSavedGame(uuid.NewString(), snap, s.now().UTC())

	s.mu.Lock()
	defer s.mu.Unlock()

	var replaced []string
	if snap.IsAutoSave {
		existing, err := s.readAll()
		if err != nil {
			return nil, err
		}
		for _, old := range existing {
			if old.IsAutoSave && old.StoryID == snap.StoryID {
				replaced = append(replaced, old.ID)
			}
		}
	}

	if err := s.write(saved); err != nil {
		return nil, err
	}

	for _, id := range replaced {
		if err := s.remove(id); err != nil && !errors.Is(err, domain.ErrSaveNotFound) {
			if rmErr := s.remove(saved.ID); rmErr != nil {
				s.logger.Warn("Failed to roll back auto-save", "save_id", saved.ID, "err", rmErr)
			}
			return nil, fmt.Errorf("failed to replace auto-save %s: %w", id, err)
		}
	}
	return saved, nil
}

// write persists a save to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) write(saved *domain.SavedGame) error {
	// Ensure directory exists
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure save directory: %w", err)
	}

	destPath := s.path(saved.ID)

	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal save: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+saved.ID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // No-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to save: %w", err)
	}
	return nil
}

// Load retrieves a save from its JSON file.
func (s *Store) Load(ctx context.Context, saveID string) (*domain.SavedGame, error) {
	if err := validID(saveID); err != nil {
		return nil, err
	}
	return s.read(s.path(saveID))
}

func (s *Store) read(path string) (*domain.SavedGame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSaveNotFound
		}
		return nil, fmt.Errorf("failed to read save file: %w", err)
	}

	var saved domain.SavedGame
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("failed to unmarshal save %s: %w", filepath.Base(path), err)
	}
	return &saved, nil
}

// Delete removes the save file.
func (s *Store) Delete(ctx context.Context, saveID string) error {
	if err := validID(saveID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(saveID)
}

func (s *Store) remove(saveID string) error {
	err := os.Remove(s.path(saveID))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrSaveNotFound
		}
		return fmt.Errorf("failed to delete save file: %w", err)
	}
	return nil
}

// List returns the saves of a story (or all), newest first.
// Files that cannot be decoded are skipped with a warning.
func (s *Store) List(ctx context.Context, storyID string) ([]domain.SavedGame, error) {
	all, err := s.readAll()
	if err != nil {
		return nil, err
	}

	out := make([]domain.SavedGame, 0, len(all))
	for _, saved := range all {
		if storyID == "" || saved.StoryID == storyID {
			out = append(out, saved)
		}
	}
	memory.SortNewestFirst(out)
	return out, nil
}

func (s *Store) readAll() ([]domain.SavedGame, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.SavedGame{}, nil
		}
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}

	var saves []domain.SavedGame
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		saved, err := s.read(filepath.Join(s.BasePath, name))
		if errors.Is(err, domain.ErrSaveNotFound) {
			continue // Removed concurrently
		}
		if err != nil {
			s.logger.Warn("Skipping unreadable save file", "file", name, "err", err)
			continue
		}
		saves = append(saves, *saved)
	}
	return saves, nil
}

func (s *Store) path(saveID string) string {
	return filepath.Join(s.BasePath, saveID+".json")
}

func validID(saveID string) error {
	if saveID == "" || filepath.Base(saveID) != saveID || strings.HasPrefix(saveID, ".") {
		return fmt.Errorf("%w: invalid save id %q", domain.ErrSaveNotFound, saveID)
	}
	return nil
}

// Package postgres implements ports.SaveStore on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PixelPioneer1807/adventure/internal/logging"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	savedGameFields = `id, story_id, save_name, current_node_id, choices_made, nodes_visited, play_time_minutes, is_auto_save, created_at, updated_at`

	schemaQuery = `
        CREATE TABLE IF NOT EXISTS saved_games (
            id                UUID PRIMARY KEY,
            story_id          TEXT NOT NULL,
            save_name         TEXT NOT NULL,
            current_node_id   TEXT NOT NULL,
            choices_made      JSONB NOT NULL DEFAULT '[]'::jsonb,
            nodes_visited     JSONB NOT NULL DEFAULT '[]'::jsonb,
            play_time_minutes INTEGER NOT NULL DEFAULT 0,
            is_auto_save      BOOLEAN NOT NULL DEFAULT FALSE,
            created_at        TIMESTAMPTZ NOT NULL,
            updated_at        TIMESTAMPTZ NOT NULL
        );
        CREATE INDEX IF NOT EXISTS saved_games_story_updated_idx ON saved_games (story_id, updated_at DESC);
        CREATE UNIQUE INDEX IF NOT EXISTS saved_games_one_auto_save_idx ON saved_games (story_id) WHERE is_auto_save;
    `

	insertSavedGameQuery = `
        INSERT INTO saved_games
            (` + savedGameFields + `)
        VALUES
            ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9, $10)
    `
	deleteAutoSavesByStoryQuery = `DELETE FROM saved_games WHERE story_id = $1 AND is_auto_save`
	getSavedGameByIDQuery       = `SELECT ` + savedGameFields + ` FROM saved_games WHERE id = $1`
	deleteSavedGameByIDQuery    = `DELETE FROM saved_games WHERE id = $1`
	listSavedGamesQuery         = `SELECT ` + savedGameFields + ` FROM saved_games ORDER BY updated_at DESC, id`
	listSavedGamesByStoryQuery  = `SELECT ` + savedGameFields + ` FROM saved_games WHERE story_id = $1 ORDER BY updated_at DESC, id`
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the PostgreSQL save store.
type Store struct {
	db     DBTX
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a store on an existing pool or transaction.
func New(db DBTX, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate creates the saved_games table and its indexes if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaQuery); err != nil {
		return fmt.Errorf("failed to migrate saved_games: %w", err)
	}
	return nil
}

// Create inserts the snapshot. An auto-save deletes the story's previous
// auto-save in the same transaction.
func (s *Store) Create(ctx context.Context, snap domain.Snapshot) (*domain.SavedGame, error) {
	// TIMESTAMPTZ keeps microseconds.
	saved := domain.NewSavedGame(uuid.NewString(), snap, s.now().UTC().Truncate(time.Microsecond))

	choices, err := json.Marshal(saved.ChoicesMade)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal choices: %w", err)
	}
	visited, err := json.Marshal(saved.NodesVisited)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal visited nodes: %w", err)
	}

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if saved.IsAutoSave {
			tag, err := tx.Exec(ctx, deleteAutoSavesByStoryQuery, saved.StoryID)
			if err != nil {
				return fmt.Errorf("failed to delete previous auto-save: %w", err)
			}
			if tag.RowsAffected() > 0 {
				s.logger.Debug("Previous auto-save replaced", "story_id", saved.StoryID)
			}
		}
		_, err := tx.Exec(ctx, insertSavedGameQuery,
			saved.ID,
			saved.StoryID,
			saved.SaveName,
			saved.CurrentNodeID,
			string(choices),
			string(visited),
			saved.PlayTimeMinutes,
			saved.IsAutoSave,
			saved.CreatedAt,
			saved.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert save: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create save", "story_id", saved.StoryID, "err", err)
		return nil, err
	}
	return saved, nil
}

// Load retrieves a save by ID.
func (s *Store) Load(ctx context.Context, saveID string) (*domain.SavedGame, error) {
	if _, err := uuid.Parse(saveID); err != nil {
		return nil, domain.ErrSaveNotFound
	}

	saved, err := scanSavedGame(s.db.QueryRow(ctx, getSavedGameByIDQuery, saveID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSaveNotFound
		}
		return nil, fmt.Errorf("failed to load save %s: %w", saveID, err)
	}
	return saved, nil
}

// Delete removes a save.
func (s *Store) Delete(ctx context.Context, saveID string) error {
	if _, err := uuid.Parse(saveID); err != nil {
		return domain.ErrSaveNotFound
	}

	tag, err := s.db.Exec(ctx, deleteSavedGameByIDQuery, saveID)
	if err != nil {
		return fmt.Errorf("failed to delete save %s: %w", saveID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSaveNotFound
	}
	return nil
}

// List returns saves newest first.
func (s *Store) List(ctx context.Context, storyID string) ([]domain.SavedGame, error) {
	var rows pgx.Rows
	var err error
	if storyID == "" {
		rows, err = s.db.Query(ctx, listSavedGamesQuery)
	} else {
		rows, err = s.db.Query(ctx, listSavedGamesByStoryQuery, storyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	defer rows.Close()

	out := []domain.SavedGame{}
	for rows.Next() {
		saved, err := scanSavedGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan save: %w", err)
		}
		out = append(out, *saved)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saves: %w", err)
	}
	return out, nil
}

func scanSavedGame(row pgx.Row) (*domain.SavedGame, error) {
	var saved domain.SavedGame
	var id uuid.UUID
	var choices, visited []byte
	err := row.Scan(
		&id,
		&saved.StoryID,
		&saved.SaveName,
		&saved.CurrentNodeID,
		&choices,
		&visited,
		&saved.PlayTimeMinutes,
		&saved.IsAutoSave,
		&saved.CreatedAt,
		&saved.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	saved.ID = id.String()
	if err := json.Unmarshal(choices, &saved.ChoicesMade); err != nil {
		return nil, fmt.Errorf("failed to unmarshal choices: %w", err)
	}
	if err := json.Unmarshal(visited, &saved.NodesVisited); err != nil {
		return nil, fmt.Errorf("failed to unmarshal visited nodes: %w", err)
	}
	saved.CreatedAt = saved.CreatedAt.UTC()
	saved.UpdatedAt = saved.UpdatedAt.UTC()
	return &saved, nil
}

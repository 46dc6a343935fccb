package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.SaveStore using Redis.
//
// Layout, relative to the prefix:
//
//	save:<id>         JSON document
//	index             ZSET of all save IDs scored by UpdatedAt
//	story:<story-id>  ZSET of the story's save IDs scored by UpdatedAt
//	autosave:<story>  ID of the story's current auto-save
type Store struct {
	client  backend.UniversalClient
	prefix  string
	ttl     time.Duration
	locker  ports.DistributedLocker
	lockTTL time.Duration
	now     func() time.Time
}

type Option func(*Store)

// WithTTL sets the expiration for saves.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLocker overrides the locker guarding the auto-save replace.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Store) {
		s.locker = locker
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	store := &Store{
		client:  client,
		prefix:  "adventure:",
		ttl:     0, // No expiration by default
		lockTTL: 5 * time.Second,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}
	if store.locker == nil {
		store.locker = NewLocker(client, store.prefix)
	}

	return store
}

func (s *Store) key(saveID string) string {
	return s.prefix + "save:" + saveID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) storyKey(storyID string) string {
	return s.prefix + "story:" + storyID
}

func (s *Store) autoSaveKey(storyID string) string {
	return s.prefix + "autosave:" + storyID
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

// Create persists the snapshot. An auto-save replaces the story's previous
// auto-save under a distributed lock, so replicas never keep two.
func (s *Store) Create(ctx context.Context, snap domain.Snapshot) (*domain.SavedGame, error) {
	saved := domain.NewSavedGame(uuid.NewString(), snap, s.now().UTC())
	data, err := json.Marshal(saved)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal save: %w", err)
	}

	if !snap.IsAutoSave {
		if err := s.put(ctx, saved, data, ""); err != nil {
			return nil, err
		}
		return saved, nil
	}

	unlock, err := s.locker.Lock(ctx, "autosave:"+snap.StoryID, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock auto-save: %w", err)
	}
	defer func() { _ = unlock(context.WithoutCancel(ctx)) }()

	previous, err := s.client.Get(ctx, s.autoSaveKey(snap.StoryID)).Result()
	if err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("failed to read auto-save pointer: %w", err)
	}
	if err := s.put(ctx, saved, data, previous); err != nil {
		return nil, err
	}
	return saved, nil
}

// put writes a save and its index entries in one transaction, dropping
// replaced (an earlier auto-save) when set.
func (s *Store) put(ctx context.Context, saved *domain.SavedGame, data []byte, replaced string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		member := backend.Z{Score: score(saved.UpdatedAt), Member: saved.ID}
		pipe.Set(ctx, s.key(saved.ID), data, s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), member)
		pipe.ZAdd(ctx, s.storyKey(saved.StoryID), member)

		if saved.IsAutoSave {
			pipe.Set(ctx, s.autoSaveKey(saved.StoryID), saved.ID, s.ttl)
		}
		if replaced != "" && replaced != saved.ID {
			pipe.Del(ctx, s.key(replaced))
			pipe.ZRem(ctx, s.indexKey(), replaced)
			pipe.ZRem(ctx, s.storyKey(saved.StoryID), replaced)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a save from Redis.
func (s *Store) Load(ctx context.Context, saveID string) (*domain.SavedGame, error) {
	val, err := s.client.Get(ctx, s.key(saveID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSaveNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var saved domain.SavedGame
	if err := json.Unmarshal([]byte(val), &saved); err != nil {
		return nil, fmt.Errorf("failed to unmarshal save: %w", err)
	}

	return &saved, nil
}

// Delete removes a save and its index entries.
func (s *Store) Delete(ctx context.Context, saveID string) error {
	saved, err := s.Load(ctx, saveID)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(saveID))
	pipe.ZRem(ctx, s.indexKey(), saveID)
	pipe.ZRem(ctx, s.storyKey(saved.StoryID), saveID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	if saved.IsAutoSave {
		// Clear the pointer only if it still names this save.
		if err := s.client.Eval(ctx, unlockScript, []string{s.autoSaveKey(saved.StoryID)}, saveID).Err(); err != nil {
			return fmt.Errorf("failed to clear auto-save pointer: %w", err)
		}
	}
	return nil
}

// List returns saves newest first, pruning index entries whose documents expired.
func (s *Store) List(ctx context.Context, storyID string) ([]domain.SavedGame, error) {
	index := s.indexKey()
	if storyID != "" {
		index = s.storyKey(storyID)
	}

	ids, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	if len(ids) == 0 {
		return []domain.SavedGame{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch saves: %w", err)
	}

	out := make([]domain.SavedGame, 0, len(values))
	var expired []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var saved domain.SavedGame
		if err := json.Unmarshal([]byte(raw), &saved); err != nil {
			return nil, fmt.Errorf("failed to unmarshal save %s: %w", ids[i], err)
		}
		out = append(out, saved)
	}

	// Lazy Cleanup
	if len(expired) > 0 {
		if err := s.client.ZRem(ctx, index, expired...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune expired saves: %w", err)
		}
	}
	return out, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

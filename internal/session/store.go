package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/equiz-client/internal/domain"
)

// Store holds the persisted username slot.
type Store interface {
	// Get returns the stored username and whether one is stored.
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, username string) error
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu       sync.Mutex
	username *string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.username == nil {
		return "", false, nil
	}

	return *s.username, true, nil
}

func (s *MemoryStore) Set(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.username = &username
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.username = nil
	return nil
}

// FileStore keeps the slot in a file named after the slot key inside Dir.
type FileStore struct {
	path string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file store: create %s: %w", dir, err)
	}

	return &FileStore{path: filepath.Join(dir, domain.UsernameKey)}, nil
}

func (s *FileStore) Get(context.Context) (string, bool, error) {
	b, err := os.ReadFile(s.path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("file store: read: %w", err)
	}

	return strings.TrimSuffix(string(b), "\n"), true, nil
}

func (s *FileStore) Set(_ context.Context, username string) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(username), 0o600); err != nil {
		return fmt.Errorf("file store: write: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}

	return nil
}

func (s *FileStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file store: remove: %w", err)
	}

	return nil
}

// RedisStore keeps the slot under "<prefix>:Quiz_username".
type RedisStore struct {
	redis redis.UniversalClient
	key   string
}

func NewRedisStore(r redis.UniversalClient, prefix string) *RedisStore {
	key := domain.UsernameKey
	if prefix != "" {
		key = fmt.Sprintf("%s:%s", prefix, domain.UsernameKey)
	}

	return &RedisStore{redis: r, key: key}
}

func (s *RedisStore) Get(ctx context.Context) (string, bool, error) {
	v, err := s.redis.Get(ctx, s.key).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis store: get: %w", err)
	}

	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, username string) error {
	if err := s.redis.Set(ctx, s.key, username, 0).Err(); err != nil {
		return fmt.Errorf("redis store: set: %w", err)
	}

	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis store: del: %w", err)
	}

	return nil
}

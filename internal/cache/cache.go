// Package cache is the device-side task cache: one JSON-encoded task list per
// user held in the key/value store, fronted by a small in-memory LRU.
//
// Failures never reach the caller. A failed read yields an empty list and a
// failed write is logged, so the client keeps working when storage is broken.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"todo-sync/internal/domain"
	apperrors "todo-sync/internal/errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	todosPrefix          = "@todos:"
	lastSyncPrefix       = "@lastSync:"
	pendingDeletesPrefix = "@pendingDeletes:"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "todo_cache_hits_total",
		Help: "Task list reads served from memory.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "todo_cache_misses_total",
		Help: "Task list reads that went to device storage.",
	})
	cacheWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "todo_cache_write_errors_total",
		Help: "Task list writes that failed and were dropped.",
	})
)

// KeyValue is the subset of device storage the cache needs
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	SetMany(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// TodosKey is the storage key of a user's task list
func TodosKey(userID string) string { return todosPrefix + userID }

// LastSyncKey is the storage key of a user's last save time
func LastSyncKey(userID string) string { return lastSyncPrefix + userID }

// PendingDeletesKey is the storage key of a user's unsynced deletions
func PendingDeletesKey(userID string) string { return pendingDeletesPrefix + userID }

// Store is the local cache of task lists
type Store struct {
	kv     KeyValue
	memory *lru.Cache[string, []domain.Task]
	logger *slog.Logger
	now    func() time.Time
}

// New creates a cache over kv holding at most memoryEntries users in memory
func New(kv KeyValue, memoryEntries int, logger *slog.Logger) (*Store, error) {
	if memoryEntries < 1 {
		memoryEntries = 1
	}
	memory, err := lru.New[string, []domain.Task](memoryEntries)
	if err != nil {
		return nil, err
	}
	return &Store{
		kv:     kv,
		memory: memory,
		logger: logger.With(slog.String("component", "cache")),
		now:    time.Now,
	}, nil
}

// Load returns the user's cached tasks. The result is a private copy and is
// empty when there is no user, no data, or the data cannot be read.
func (s *Store) Load(ctx context.Context, userID string) []domain.Task {
	if userID == "" {
		return []domain.Task{}
	}

	if tasks, ok := s.memory.Get(userID); ok {
		cacheHitsTotal.Inc()
		return domain.CloneTasks(tasks)
	}
	cacheMissesTotal.Inc()

	raw, err := s.kv.Get(ctx, TodosKey(userID))
	if err != nil {
		if !apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
			s.logger.Error("failed to read cached tasks",
				slog.String("user_id", userID), slog.Any("error", err))
		}
		return []domain.Task{}
	}

	var tasks []domain.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		s.logger.Error("failed to decode cached tasks",
			slog.String("user_id", userID), slog.Any("error", err))
		return []domain.Task{}
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}

	s.memory.Add(userID, tasks)
	return domain.CloneTasks(tasks)
}

// Save replaces the user's cached list and records the save time. Both keys
// are written in one transaction.
func (s *Store) Save(ctx context.Context, userID string, tasks []domain.Task) {
	s.write(ctx, userID, tasks, nil)
}

// SaveWithTombstones replaces the task list and the pending deletions together
func (s *Store) SaveWithTombstones(ctx context.Context, userID string, tasks []domain.Task, tombstones []domain.Tombstone) {
	if tombstones == nil {
		tombstones = []domain.Tombstone{}
	}
	s.write(ctx, userID, tasks, tombstones)
}

func (s *Store) write(ctx context.Context, userID string, tasks []domain.Task, tombstones []domain.Tombstone) {
	if userID == "" {
		return
	}
	tasks = domain.CloneTasks(tasks)

	encoded, err := json.Marshal(tasks)
	if err != nil {
		cacheWriteErrorsTotal.Inc()
		s.logger.Error("failed to encode tasks", slog.String("user_id", userID), slog.Any("error", err))
		return
	}

	values := map[string]string{
		TodosKey(userID):    string(encoded),
		LastSyncKey(userID): s.now().UTC().Format(time.RFC3339Nano),
	}
	if tombstones != nil {
		encodedTombstones, err := json.Marshal(tombstones)
		if err != nil {
			cacheWriteErrorsTotal.Inc()
			s.logger.Error("failed to encode pending deletes", slog.String("user_id", userID), slog.Any("error", err))
			return
		}
		values[PendingDeletesKey(userID)] = string(encodedTombstones)
	}

	if err := s.kv.SetMany(ctx, values); err != nil {
		cacheWriteErrorsTotal.Inc()
		// Drop the memory copy so the next read reflects what storage holds.
		s.memory.Remove(userID)
		s.logger.Error("failed to save tasks", slog.String("user_id", userID), slog.Any("error", err))
		return
	}

	s.memory.Add(userID, tasks)
}

// LastSync returns the time of the last successful save
func (s *Store) LastSync(ctx context.Context, userID string) (time.Time, bool) {
	if userID == "" {
		return time.Time{}, false
	}
	raw, err := s.kv.Get(ctx, LastSyncKey(userID))
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		s.logger.Warn("invalid last sync time", slog.String("user_id", userID), slog.String("value", raw))
		return time.Time{}, false
	}
	return t, true
}

// LoadTombstones returns deletes made on this device but not yet on the backend
func (s *Store) LoadTombstones(ctx context.Context, userID string) []domain.Tombstone {
	if userID == "" {
		return []domain.Tombstone{}
	}
	raw, err := s.kv.Get(ctx, PendingDeletesKey(userID))
	if err != nil {
		if !apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
			s.logger.Error("failed to read pending deletes", slog.String("user_id", userID), slog.Any("error", err))
		}
		return []domain.Tombstone{}
	}
	var tombstones []domain.Tombstone
	if err := json.Unmarshal([]byte(raw), &tombstones); err != nil {
		s.logger.Error("failed to decode pending deletes", slog.String("user_id", userID), slog.Any("error", err))
		return []domain.Tombstone{}
	}
	if tombstones == nil {
		tombstones = []domain.Tombstone{}
	}
	return tombstones
}

// PendingCount is the number of the user's unsynced records plus unsynced deletes
func (s *Store) PendingCount(ctx context.Context, userID string) int {
	count := len(s.LoadTombstones(ctx, userID))
	for _, task := range s.Load(ctx, userID) {
		if task.PendingSync {
			count++
		}
	}
	return count
}

// Clear forgets everything cached for the user
func (s *Store) Clear(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	s.memory.Remove(userID)
	if err := s.kv.Remove(ctx, TodosKey(userID), LastSyncKey(userID), PendingDeletesKey(userID)); err != nil {
		s.logger.Error("failed to clear cache", slog.String("user_id", userID), slog.Any("error", err))
	}
}

// Users lists every user with task data stored on this device, sorted
func (s *Store) Users(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, prefix := range []string{todosPrefix, lastSyncPrefix, pendingDeletesPrefix} {
		keys, err := s.kv.Keys(ctx, prefix)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			if userID := strings.TrimPrefix(key, prefix); userID != "" {
				seen[userID] = true
			}
		}
	}

	users := make([]string, 0, len(seen))
	for userID := range seen {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users, nil
}

// ClearAll forgets the task data of every user on this device in one call
// and returns how many users were affected. Sessions and preferences stay.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(users)*3)
	for _, userID := range users {
		keys = append(keys, TodosKey(userID), LastSyncKey(userID), PendingDeletesKey(userID))
	}
	s.memory.Purge()
	if err := s.kv.Remove(ctx, keys...); err != nil {
		return 0, err
	}
	return len(users), nil
}

package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"todo-sync/internal/cache"
	"todo-sync/internal/connectivity"
	"todo-sync/internal/domain"
	"todo-sync/internal/errors"
	"todo-sync/internal/remote"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todo_sync_runs_total",
		Help: "Replays of pending changes by result.",
	}, []string{"result"})
	syncRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todo_sync_records_total",
		Help: "Records handled during replay by outcome.",
	}, []string{"outcome"})
	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "todo_sync_duration_seconds",
		Help:    "Duration of online replays.",
		Buckets: prometheus.DefBuckets,
	})
	offlineWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todo_offline_writes_total",
		Help: "Writes kept on the device because the backend did not confirm them.",
	}, []string{"operation"})
)

// DocumentReader loads a local file that is about to be attached
type DocumentReader func(uri string) (data []byte, filename string, err error)

// ReadLocalDocument reads a plain path or a file:// URI from disk
func ReadLocalDocument(uri string) ([]byte, string, error) {
	path := strings.TrimPrefix(uri, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(path), nil
}

// SyncDeps are the collaborators of the sync engine
type SyncDeps struct {
	Cache     *cache.Store
	Oracle    connectivity.Oracle
	Tasks     remote.TaskStore
	Documents remote.DocumentStore
	Logger    *slog.Logger
	// Optional
	Now          func() time.Time
	ReadDocument DocumentReader
}

// syncServiceImpl implements the SyncService interface
type syncServiceImpl struct {
	// mu serializes engine operations; each one read-modify-writes the
	// whole cached list
	mu           sync.Mutex
	cache        *cache.Store
	oracle       connectivity.Oracle
	tasks        remote.TaskStore
	documents    remote.DocumentStore
	logger       *slog.Logger
	now          func() time.Time
	readDocument DocumentReader
}

// NewSyncService creates a new SyncService instance
func NewSyncService(deps SyncDeps) SyncService {
	s := &syncServiceImpl{
		cache:        deps.Cache,
		oracle:       deps.Oracle,
		tasks:        deps.Tasks,
		documents:    deps.Documents,
		logger:       deps.Logger.With(slog.String("component", "sync")),
		now:          deps.Now,
		readDocument: deps.ReadDocument,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.readDocument == nil {
		s.readDocument = ReadLocalDocument
	}
	return s
}

// ListTasks returns the backend list when reachable and the cached list
// otherwise. Read errors never reach the caller.
func (s *syncServiceImpl) ListTasks(ctx context.Context, userID string) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached := s.cache.Load(ctx, userID)
	if userID == "" || !s.oracle.IsOnline(ctx) {
		return cached
	}

	fetched, err := s.tasks.ListByOwner(ctx, userID)
	if err != nil {
		s.logger.Warn("remote list failed, serving cache",
			slog.String("user_id", userID), slog.Any("error", err))
		return cached
	}

	merged := mergeRemote(fetched, cached, s.cache.LoadTombstones(ctx, userID))
	s.cache.Save(ctx, userID, merged)
	return domain.CloneTasks(merged)
}

// mergeRemote overlays unsynced local records on the backend list. Pending
// local placeholders stay on top, pending edits replace the backend copy and
// records deleted on the device stay hidden.
func mergeRemote(fetched, cached []domain.Task, tombstones []domain.Tombstone) []domain.Task {
	pending := make(map[string]domain.Task)
	var placeholders []domain.Task
	for _, task := range cached {
		if !task.PendingSync {
			continue
		}
		if task.ID.IsLocal() {
			placeholders = append(placeholders, task)
			continue
		}
		pending[task.ID.String()] = task
	}

	deleted := make(map[string]bool, len(tombstones))
	for _, tombstone := range tombstones {
		deleted[tombstone.TaskID] = true
	}

	merged := make([]domain.Task, 0, len(placeholders)+len(fetched))
	merged = append(merged, placeholders...)
	for _, task := range fetched {
		id := task.ID.String()
		if deleted[id] {
			continue
		}
		if local, ok := pending[id]; ok {
			merged = append(merged, local)
			continue
		}
		merged = append(merged, task)
	}
	return merged
}

// AddTask creates a task on the backend when reachable, else as a local
// placeholder marked for replay
func (s *syncServiceImpl) AddTask(ctx context.Context, userID string, draft TaskDraft) (*domain.Task, error) {
	if userID == "" {
		return nil, errors.NewPermissionError("add task", "tasks (not signed in)")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cached := s.cache.Load(ctx, userID)
	task := domain.NewTask(userID, draft.Title, s.now())
	task.Description = draft.Description

	created := false
	if s.oracle.IsOnline(ctx) {
		remoteID, err := s.tasks.Create(ctx, task)
		if err != nil {
			s.logger.Warn("remote create failed, keeping task on device",
				slog.String("user_id", userID), slog.Any("error", err))
		} else {
			created = true
			task.ID = domain.NewRemoteID(remoteID)
			if draft.DocumentURI != "" {
				task = s.attachDocument(ctx, task, draft.DocumentURI)
			}
		}
	}

	if !created {
		offlineWritesTotal.WithLabelValues("add").Inc()
		task.ID = nextLocalID(cached, s.now())
		task.PendingSync = true
		task.PendingDocumentURI = draft.DocumentURI
	}

	tasks := append([]domain.Task{task}, cached...)
	s.cache.Save(ctx, userID, tasks)

	result := task.Clone()
	return &result, nil
}

// attachDocument uploads uri for a task the backend already knows and links
// it. A failed step leaves the attachment pending for the next replay.
func (s *syncServiceImpl) attachDocument(ctx context.Context, task domain.Task, uri string) domain.Task {
	doc, err := s.uploadDocument(ctx, task.UserID, task.ID, uri)
	if err != nil {
		task.PendingDocumentURI = uri
		task.PendingSync = true
		return task
	}

	task.Document = &doc
	task.PendingDocumentURI = ""
	if err := s.tasks.Update(ctx, task.ID.String(), domain.TaskUpdate{Document: &doc}); err != nil {
		s.logger.Warn("failed to link document, will retry",
			slog.String("task_id", task.ID.String()), slog.Any("error", err))
		task.PendingSync = true
	}
	return task
}

func (s *syncServiceImpl) uploadDocument(ctx context.Context, userID string, id domain.TaskID, uri string) (domain.Document, error) {
	key := domain.DocumentKey(userID, id)
	data, filename, err := s.readDocument(uri)
	if err != nil {
		err = errors.NewDocumentError("read", uri, err)
		s.logger.Warn("failed to read document", slog.String("task_id", id.String()), slog.Any("error", err))
		return domain.Document{}, err
	}

	doc, err := s.documents.Upload(ctx, data, filename, key)
	if err != nil {
		s.logger.Warn("document upload failed",
			slog.String("task_id", id.String()), slog.String("key", key), slog.Any("error", err))
		return domain.Document{}, err
	}
	return doc, nil
}

// nextLocalID issues a placeholder from the clock, bumped past any
// placeholder already in the list
func nextLocalID(tasks []domain.Task, now time.Time) domain.TaskID {
	taken := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		taken[task.ID.String()] = true
	}
	millis := now.UnixMilli()
	for {
		id := domain.NewLocalID(millis)
		if !taken[id.String()] {
			return id
		}
		millis++
	}
}

func indexOf(tasks []domain.Task, id domain.TaskID) int {
	for i, task := range tasks {
		if task.ID == id {
			return i
		}
	}
	return -1
}

// UpdateTask applies update to the cached copy and, for backend records while
// online, to the backend. The record stays pending until the backend confirms.
func (s *syncServiceImpl) UpdateTask(ctx context.Context, userID string, id domain.TaskID, update domain.TaskUpdate, documentURI string) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.cache.Load(ctx, userID)
	idx := indexOf(tasks, id)
	if idx < 0 {
		return nil, errors.NewNotFoundError("task", id.String())
	}

	current := tasks[idx]
	updated := update.Apply(current)
	if documentURI == "" {
		documentURI = current.PendingDocumentURI
	}

	if id.IsLocal() || !s.oracle.IsOnline(ctx) {
		offlineWritesTotal.WithLabelValues("update").Inc()
		updated.PendingSync = true
		updated.PendingDocumentURI = documentURI
		tasks[idx] = updated
		s.cache.Save(ctx, userID, tasks)
		return tasks, nil
	}

	// Earlier offline edits are not on the backend yet, so a pending record
	// is pushed whole rather than as the latest delta.
	push := update
	if current.PendingSync {
		push = domain.FullUpdate(updated)
	}

	updated.PendingDocumentURI = ""
	if documentURI != "" {
		doc, err := s.uploadDocument(ctx, userID, id, documentURI)
		if err != nil {
			updated.PendingDocumentURI = documentURI
		} else {
			updated.Document = &doc
			push.Document = &doc
		}
	}

	confirmed := true
	if !push.IsEmpty() {
		if err := s.tasks.Update(ctx, id.String(), push); err != nil {
			s.logger.Warn("remote update failed, keeping change on device",
				slog.String("user_id", userID), slog.String("task_id", id.String()), slog.Any("error", err))
			confirmed = false
		}
	}

	updated.PendingSync = !confirmed || updated.PendingDocumentURI != ""
	if updated.PendingSync {
		offlineWritesTotal.WithLabelValues("update").Inc()
	}
	tasks[idx] = updated
	s.cache.Save(ctx, userID, tasks)
	return tasks, nil
}

// DeleteTask removes the task from the cache and, when possible, from the
// backend. Backend deletes that cannot be confirmed are replayed later.
func (s *syncServiceImpl) DeleteTask(ctx context.Context, userID string, id domain.TaskID) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.cache.Load(ctx, userID)
	idx := indexOf(tasks, id)
	if idx < 0 {
		return nil, errors.NewNotFoundError("task", id.String())
	}
	removed := tasks[idx]
	tasks = append(tasks[:idx], tasks[idx+1:]...)

	if id.IsLocal() {
		s.cache.Save(ctx, userID, tasks)
		return tasks, nil
	}

	tombstone := domain.Tombstone{TaskID: id.String()}
	if removed.HasDocument() {
		tombstone.DocumentID = removed.Document.ID
	}

	if s.oracle.IsOnline(ctx) && s.deleteRemote(ctx, tombstone) == nil {
		s.cache.Save(ctx, userID, tasks)
		return tasks, nil
	}

	offlineWritesTotal.WithLabelValues("delete").Inc()
	tombstones := append(s.cache.LoadTombstones(ctx, userID), tombstone)
	s.cache.SaveWithTombstones(ctx, userID, tasks, tombstones)
	return tasks, nil
}

// deleteRemote deletes the task and then, best effort, its document. A nil
// error means the task is gone from the backend.
func (s *syncServiceImpl) deleteRemote(ctx context.Context, tombstone domain.Tombstone) error {
	err := s.tasks.Delete(ctx, tombstone.TaskID)
	if err != nil && !remote.IsNotFound(err) {
		s.logger.Warn("remote delete failed",
			slog.String("task_id", tombstone.TaskID), slog.Any("error", err))
		return err
	}

	if tombstone.DocumentID != "" {
		if err := s.documents.Delete(ctx, tombstone.DocumentID); err != nil && !remote.IsNotFound(err) {
			s.logger.Warn("failed to delete document",
				slog.String("task_id", tombstone.TaskID),
				slog.String("document_id", tombstone.DocumentID),
				slog.Any("error", err))
		}
	}
	return nil
}

// GetTaskByID reads the cached copy only
func (s *syncServiceImpl) GetTaskByID(ctx context.Context, userID string, id domain.TaskID) *domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.cache.Load(ctx, userID)
	if idx := indexOf(tasks, id); idx >= 0 {
		task := tasks[idx]
		return &task
	}
	return nil
}

// Statistics summarizes the cached list
func (s *syncServiceImpl) Statistics(ctx context.Context, userID string) domain.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.ComputeStatistics(s.cache.Load(ctx, userID))
}

// PendingCount is the number of unsynced records plus unsynced deletes
func (s *syncServiceImpl) PendingCount(ctx context.Context, userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.PendingCount(ctx, userID)
}

// SyncPendingChanges replays unsynced deletes, creates and edits. Every record
// is handled on its own; a failure is recorded and the batch carries on.
func (s *syncServiceImpl) SyncPendingChanges(ctx context.Context, userID string) *SyncResult {
	result := &SyncResult{}
	if userID == "" || !s.oracle.IsOnline(ctx) {
		result.Offline = true
		syncRunsTotal.WithLabelValues("offline").Inc()
		return result
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	logger := s.logger.With(slog.String("user_id", userID))

	tombstones := s.replayDeletes(ctx, result, s.cache.LoadTombstones(ctx, userID))

	tasks := s.cache.Load(ctx, userID)
	for i := range tasks {
		if !tasks[i].PendingSync {
			continue
		}
		if tasks[i].ID.IsLocal() {
			tasks[i] = s.replayCreate(ctx, result, tasks[i])
		} else {
			tasks[i] = s.replayUpdate(ctx, result, tasks[i])
		}
		// Persist after each record so an interrupted batch keeps finished work.
		s.cache.SaveWithTombstones(ctx, userID, tasks, tombstones)
	}
	s.cache.SaveWithTombstones(ctx, userID, tasks, tombstones)

	result.Duration = s.now().Sub(start)
	syncDuration.Observe(result.Duration.Seconds())
	if result.HasErrors() {
		syncRunsTotal.WithLabelValues("partial").Inc()
		logger.Warn("sync finished with errors",
			slog.Int("created", result.Created), slog.Int("pushed", result.Pushed),
			slog.Int("deleted", result.Deleted), slog.Int("failed", result.Failed))
	} else {
		syncRunsTotal.WithLabelValues("ok").Inc()
		logger.Info("sync finished",
			slog.Int("created", result.Created), slog.Int("pushed", result.Pushed),
			slog.Int("deleted", result.Deleted))
	}
	return result
}

// replayDeletes returns the tombstones that are still unconfirmed
func (s *syncServiceImpl) replayDeletes(ctx context.Context, result *SyncResult, tombstones []domain.Tombstone) []domain.Tombstone {
	remaining := make([]domain.Tombstone, 0, len(tombstones))
	for _, tombstone := range tombstones {
		err := s.deleteRemote(ctx, tombstone)
		if err == nil {
			result.Deleted++
			syncRecordsTotal.WithLabelValues("deleted").Inc()
			continue
		}
		result.fail(tombstone.TaskID, "delete", err)
		syncRecordsTotal.WithLabelValues("failed").Inc()
		remaining = append(remaining, tombstone)
	}
	return remaining
}

// replayCreate turns a placeholder into a backend record. The pending
// document is uploaded afterwards under the backend ID.
func (s *syncServiceImpl) replayCreate(ctx context.Context, result *SyncResult, task domain.Task) domain.Task {
	localID := task.ID.String()
	remoteID, err := s.tasks.Create(ctx, task)
	if err != nil {
		s.logger.Warn("replay create failed", slog.String("task_id", localID), slog.Any("error", err))
		result.fail(localID, "create", err)
		syncRecordsTotal.WithLabelValues("failed").Inc()
		return task
	}

	task.ID = domain.NewRemoteID(remoteID)
	task.PendingSync = false
	result.Created++
	syncRecordsTotal.WithLabelValues("created").Inc()
	s.logger.Debug("placeholder replaced",
		slog.String("local_id", localID), slog.String("task_id", remoteID))

	if uri := task.PendingDocumentURI; uri != "" {
		task.PendingDocumentURI = ""
		task = s.attachDocument(ctx, task, uri)
		if task.PendingSync {
			result.fail(remoteID, "attach", errors.NewDocumentError("attach", domain.DocumentKey(task.UserID, task.ID), nil))
		}
	}
	return task
}

// replayUpdate pushes every mutable field of a pending backend record
func (s *syncServiceImpl) replayUpdate(ctx context.Context, result *SyncResult, task domain.Task) domain.Task {
	id := task.ID.String()
	if uri := task.PendingDocumentURI; uri != "" {
		doc, err := s.uploadDocument(ctx, task.UserID, task.ID, uri)
		if err != nil {
			result.fail(id, "upload", err)
		} else {
			task.Document = &doc
			task.PendingDocumentURI = ""
		}
	}

	if err := s.tasks.Update(ctx, id, domain.FullUpdate(task)); err != nil {
		s.logger.Warn("replay update failed", slog.String("task_id", id), slog.Any("error", err))
		result.fail(id, "update", err)
		syncRecordsTotal.WithLabelValues("failed").Inc()
		return task
	}

	task.PendingSync = task.PendingDocumentURI != ""
	result.Pushed++
	syncRecordsTotal.WithLabelValues("pushed").Inc()
	return task
}

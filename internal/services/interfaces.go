package services

import (
	"context"
	"errors"
	"time"

	"todo-sync/internal/domain"
)

// SyncService is the single entry point for task reads and writes. It hides
// whether an operation ran against the backend or only against the cache.
type SyncService interface {
	// Reads
	ListTasks(ctx context.Context, userID string) []domain.Task
	GetTaskByID(ctx context.Context, userID string, id domain.TaskID) *domain.Task
	Statistics(ctx context.Context, userID string) domain.Statistics
	PendingCount(ctx context.Context, userID string) int

	// Writes
	AddTask(ctx context.Context, userID string, draft TaskDraft) (*domain.Task, error)
	UpdateTask(ctx context.Context, userID string, id domain.TaskID, update domain.TaskUpdate, documentURI string) ([]domain.Task, error)
	DeleteTask(ctx context.Context, userID string, id domain.TaskID) ([]domain.Task, error)

	// Replay
	SyncPendingChanges(ctx context.Context, userID string) *SyncResult
}

// TaskDraft holds the user input for a new task
type TaskDraft struct {
	Title       string
	Description string
	// DocumentURI is a local file to attach, empty for none
	DocumentURI string
}

// SyncResult summarizes one replay of pending changes
type SyncResult struct {
	Offline  bool          `json:"offline"`
	Created  int           `json:"created"`
	Pushed   int           `json:"pushed"`
	Deleted  int           `json:"deleted"`
	Failed   int           `json:"failed"`
	Errors   []RecordError `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RecordError is the failure of one record within a replay
type RecordError struct {
	TaskID    string `json:"task_id"`
	Operation string `json:"operation"`
	Err       error  `json:"-"`
	Message   string `json:"message"`
}

func (r *SyncResult) fail(taskID, operation string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, RecordError{
		TaskID:    taskID,
		Operation: operation,
		Err:       err,
		Message:   err.Error(),
	})
}

// HasErrors reports whether any record failed
func (r *SyncResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Err joins the per-record errors, nil when the replay was clean
func (r *SyncResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, recErr := range r.Errors {
		errs = append(errs, recErr.Err)
	}
	return errors.Join(errs...)
}

// Total is the number of records the replay touched successfully
func (r *SyncResult) Total() int {
	return r.Created + r.Pushed + r.Deleted
}

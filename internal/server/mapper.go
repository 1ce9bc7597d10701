package server

import (
	"todo-sync/internal/domain"
	"todo-sync/internal/repository/postgres"
)

// TaskMapper handles conversion between domain and database Task models.
type TaskMapper struct{}

// NewTaskMapper creates a new TaskMapper instance.
func NewTaskMapper() *TaskMapper {
	return &TaskMapper{}
}

// ToDatabase converts a domain Task to a database Task.
// Device-only fields are not persisted by the backend.
func (m *TaskMapper) ToDatabase(domainTask domain.Task) postgres.TaskRecord {
	record := postgres.TaskRecord{
		ID:          domainTask.ID.String(),
		UserID:      domainTask.UserID,
		Title:       domainTask.Title,
		Description: domainTask.Description,
		Completed:   domainTask.Completed,
		CreatedAt:   domainTask.CreatedAt,
	}
	if domainTask.Document != nil {
		url := domainTask.Document.URL
		id := domainTask.Document.ID
		record.DocumentURL = &url
		record.DocumentID = &id
	}
	return record
}

// FromDatabase converts a database Task to a domain Task.
func (m *TaskMapper) FromDatabase(dbTask postgres.TaskRecord) domain.Task {
	task := domain.Task{
		ID:          domain.NewRemoteID(dbTask.ID),
		UserID:      dbTask.UserID,
		Title:       dbTask.Title,
		Description: dbTask.Description,
		Completed:   dbTask.Completed,
		CreatedAt:   dbTask.CreatedAt.UTC(),
	}
	if dbTask.DocumentID != nil && *dbTask.DocumentID != "" {
		task.Document = &domain.Document{ID: *dbTask.DocumentID}
		if dbTask.DocumentURL != nil {
			task.Document.URL = *dbTask.DocumentURL
		}
	}
	return task
}

// FromDatabaseSlice converts a slice of database Tasks to domain Tasks.
func (m *TaskMapper) FromDatabaseSlice(dbTasks []*postgres.TaskRecord) []domain.Task {
	domainTasks := make([]domain.Task, len(dbTasks))
	for i, task := range dbTasks {
		domainTasks[i] = m.FromDatabase(*task)
	}
	return domainTasks
}

// PatchToDatabase converts a partial domain update to a column patch.
func (m *TaskMapper) PatchToDatabase(update domain.TaskUpdate) postgres.TaskPatch {
	patch := postgres.TaskPatch{
		Title:       update.Title,
		Description: update.Description,
		Completed:   update.Completed,
	}
	if update.Document != nil {
		url := update.Document.URL
		id := update.Document.ID
		patch.DocumentURL = &url
		patch.DocumentID = &id
	}
	return patch
}

// UserMapper handles conversion between domain and database User models.
type UserMapper struct{}

// NewUserMapper creates a new UserMapper instance.
func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

// FromDatabase converts a database User to a domain User. The password hash
// never leaves the repository layer.
func (m *UserMapper) FromDatabase(dbUser postgres.UserRecord) domain.User {
	return domain.User{
		ID:        dbUser.ID,
		Name:      dbUser.Name,
		Email:     dbUser.Email,
		Role:      dbUser.Role,
		CreatedAt: dbUser.CreatedAt.UTC(),
		UpdatedAt: dbUser.UpdatedAt.UTC(),
		LastLogin: dbUser.LastLogin,
	}
}

// Mapper provides a unified interface for all mapping operations.
type Mapper struct {
	Task *TaskMapper
	User *UserMapper
}

// NewMapper creates a new Mapper with all sub-mappers.
func NewMapper() *Mapper {
	return &Mapper{
		Task: NewTaskMapper(),
		User: NewUserMapper(),
	}
}

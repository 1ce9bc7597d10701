package server

import (
	"log/slog"
	"time"

	"todo-sync/internal/auth"
	"todo-sync/internal/documents"
	"todo-sync/internal/repository/postgres"
	"todo-sync/internal/validation"
)

// HandlerDeps are the collaborators of the API handlers
type HandlerDeps struct {
	Users     postgres.UserRepository
	Tasks     postgres.TaskRepository
	Documents postgres.DocumentRepository
	Files     *documents.FileStore
	Tokens    *auth.TokenIssuer
	Logger    *slog.Logger
	// PublicURL prefixes document URLs handed to clients
	PublicURL string
	// MaxUpload caps a document upload in bytes
	MaxUpload int64
}

// Handler serves the account, task and document endpoints. Every task and
// document query is scoped to the token subject.
type Handler struct {
	users     postgres.UserRepository
	tasks     postgres.TaskRepository
	documents postgres.DocumentRepository
	files     *documents.FileStore
	tokens    *auth.TokenIssuer
	logger    *slog.Logger
	publicURL string
	maxUpload int64

	mapper           *Mapper
	taskValidator    *validation.TaskValidator
	accountValidator *validation.AccountValidator
	now              func() time.Time
}

// NewHandler creates the API handler
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		users:            deps.Users,
		tasks:            deps.Tasks,
		documents:        deps.Documents,
		files:            deps.Files,
		tokens:           deps.Tokens,
		logger:           deps.Logger.With(slog.String("component", "api")),
		publicURL:        deps.PublicURL,
		maxUpload:        deps.MaxUpload,
		mapper:           NewMapper(),
		taskValidator:    validation.NewTaskValidator(),
		accountValidator: validation.NewAccountValidator(),
		now:              time.Now,
	}
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "todo-sync/internal/errors"

	"github.com/jackc/pgx/v5"
)

// UserRepository is CRUD over the users table
type UserRepository interface {
	Create(ctx context.Context, user *UserRecord) error
	GetByID(ctx context.Context, id string) (*UserRecord, error)
	GetByEmail(ctx context.Context, email string) (*UserRecord, error)
	UpdateName(ctx context.Context, id, name string) (*UserRecord, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type userRepo struct {
	db DBTX
}

// NewUserRepository creates a user repository
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at, last_login`

func scanUser(row pgx.Row) (*UserRecord, error) {
	u := &UserRecord{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	return u, err
}

func (r *userRepo) Create(ctx context.Context, user *UserRecord) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		user.ID, user.Name, strings.ToLower(user.Email), user.PasswordHash, user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("account", user.Email)
		}
		return apperrors.NewDatabaseError("create user", err)
	}
	user.Email = strings.ToLower(user.Email)
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*UserRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.getOne(ctx, query, "user", id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*UserRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return r.getOne(ctx, query, "user", strings.ToLower(email))
}

func (r *userRepo) getOne(ctx context.Context, query, entity, key string) (*UserRecord, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, apperrors.NewNotFoundError(entity, key)
		}
		return nil, apperrors.NewDatabaseError("get "+entity, err)
	}
	return user, nil
}

func (r *userRepo) UpdateName(ctx context.Context, id, name string) (*UserRecord, error) {
	query := fmt.Sprintf(`
		UPDATE users SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING %s`, userColumns)

	user, err := scanUser(r.db.QueryRow(ctx, query, id, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, apperrors.NewNotFoundError("user", id)
		}
		return nil, apperrors.NewDatabaseError("update user", err)
	}
	return user, nil
}

func (r *userRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return apperrors.NewDatabaseError("update last login", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("user", id)
	}
	return nil
}

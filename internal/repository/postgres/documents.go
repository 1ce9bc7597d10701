package postgres

import (
	"context"
	"errors"
	"fmt"

	apperrors "todo-sync/internal/errors"

	"github.com/jackc/pgx/v5"
)

// DocumentRepository is metadata storage for uploaded blobs
type DocumentRepository interface {
	// Upsert stores doc under (user, key). When a document already exists
	// under that key it is replaced and the previous record is returned.
	// The replacement is atomic: a failed insert keeps the previous record.
	Upsert(ctx context.Context, doc *DocumentRecord) (*DocumentRecord, error)
	GetByID(ctx context.Context, userID, id string) (*DocumentRecord, error)
	Delete(ctx context.Context, userID, id string) (*DocumentRecord, error)
}

type documentRepo struct {
	db DBTX
}

// NewDocumentRepository creates a document repository
func NewDocumentRepository(db DBTX) DocumentRepository {
	return &documentRepo{db: db}
}

const documentColumns = `id, user_id, key, filename, content_type, size_bytes, sha256, path, created_at`

func scanDocument(row pgx.Row) (*DocumentRecord, error) {
	d := &DocumentRecord{}
	err := row.Scan(&d.ID, &d.UserID, &d.Key, &d.Filename, &d.ContentType,
		&d.SizeBytes, &d.SHA256, &d.Path, &d.CreatedAt)
	return d, err
}

func (r *documentRepo) Upsert(ctx context.Context, doc *DocumentRecord) (*DocumentRecord, error) {
	var previous *DocumentRecord
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		lookup := fmt.Sprintf(`SELECT %s FROM documents WHERE user_id = $1 AND key = $2 FOR UPDATE`, documentColumns)
		existing, err := scanDocument(tx.QueryRow(ctx, lookup, doc.UserID, doc.Key))
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			existing = nil
		case err != nil:
			return apperrors.NewDatabaseError("lookup document", err)
		}

		if existing != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, existing.ID); err != nil {
				return apperrors.NewDatabaseError("replace document", err)
			}
		}

		query := `
			INSERT INTO documents (id, user_id, key, filename, content_type, size_bytes, sha256, path)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at`
		err = tx.QueryRow(ctx, query,
			doc.ID, doc.UserID, doc.Key, doc.Filename, doc.ContentType, doc.SizeBytes, doc.SHA256, doc.Path,
		).Scan(&doc.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.NewConflictError("document", doc.Key)
			}
			return apperrors.NewDatabaseError("create document", err)
		}
		previous = existing
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.NewDatabaseError("upsert document", err)
	}
	return previous, nil
}

func (r *documentRepo) GetByID(ctx context.Context, userID, id string) (*DocumentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1 AND user_id = $2`, documentColumns)
	doc, err := scanDocument(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, apperrors.NewNotFoundError("document", id)
		}
		return nil, apperrors.NewDatabaseError("get document", err)
	}
	return doc, nil
}

func (r *documentRepo) Delete(ctx context.Context, userID, id string) (*DocumentRecord, error) {
	query := fmt.Sprintf(`DELETE FROM documents WHERE id = $1 AND user_id = $2 RETURNING %s`, documentColumns)
	doc, err := scanDocument(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, apperrors.NewNotFoundError("document", id)
		}
		return nil, apperrors.NewDatabaseError("delete document", err)
	}
	return doc, nil
}

// Package documents stores uploaded attachment blobs on the backend's disk.
// Files are written through a temp file, fsynced and renamed into place, with
// the SHA-256 computed while streaming.
package documents

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "todo-sync/internal/errors"

	"github.com/google/uuid"
)

// FileStore manages blob files under one data directory
type FileStore struct {
	dataDir string
}

// SaveResult describes a stored blob
type SaveResult struct {
	// ID is the new document identifier
	ID string
	// StoragePath is relative to the data directory
	StoragePath string
	Size        int64
	Checksum    string
}

// NewFileStore creates the data directory when missing
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, apperrors.NewDocumentError("create data dir", dataDir, err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

// Save writes reader to a new blob owned by userID. At most limit bytes are
// accepted; limit <= 0 means unlimited.
func (fs *FileStore) Save(reader io.Reader, filename, userID string, limit int64) (*SaveResult, error) {
	id := uuid.NewString()
	storagePath := filepath.Join(sanitize(userID), id+strings.ToLower(filepath.Ext(filename)))
	fullPath := filepath.Join(fs.dataDir, storagePath)
	tmpPath := fullPath + ".tmp"

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return nil, apperrors.NewDocumentError("create owner dir", storagePath, err)
	}

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, apperrors.NewDocumentError("create temp file", storagePath, err)
	}

	if limit > 0 {
		// One extra byte tells an exact fit from an oversized upload.
		reader = io.LimitReader(reader, limit+1)
	}
	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(reader, hasher))
	if err == nil && limit > 0 && size > limit {
		err = apperrors.NewInvalidInputError("file", filename, fmt.Sprintf("larger than %d bytes", limit))
	}
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.NewDocumentError("write", storagePath, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, apperrors.NewDocumentError("fsync", storagePath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, apperrors.NewDocumentError("close", storagePath, err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, apperrors.NewDocumentError("rename", storagePath, err)
	}

	return &SaveResult{
		ID:          id,
		StoragePath: storagePath,
		Size:        size,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open returns the blob for reading; the caller closes it
func (fs *FileStore) Open(storagePath string) (*os.File, error) {
	f, err := os.Open(fs.fullPath(storagePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("document file", storagePath)
		}
		return nil, apperrors.NewDocumentError("open", storagePath, err)
	}
	return f, nil
}

// Delete removes the blob; a missing file is not an error
func (fs *FileStore) Delete(storagePath string) error {
	err := os.Remove(fs.fullPath(storagePath))
	if err != nil && !os.IsNotExist(err) {
		return apperrors.NewDocumentError("delete", storagePath, err)
	}
	return nil
}

// Exists reports whether the blob is on disk
func (fs *FileStore) Exists(storagePath string) bool {
	_, err := os.Stat(fs.fullPath(storagePath))
	return err == nil
}

func (fs *FileStore) fullPath(storagePath string) string {
	// Clean against a rooted path so ".." cannot leave the data directory.
	return filepath.Join(fs.dataDir, filepath.Clean(string(filepath.Separator)+storagePath))
}

// sanitize keeps letters, digits, '-' and '_'
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

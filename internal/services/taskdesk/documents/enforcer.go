package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskdesk/internal/platform/errors"
	"github.com/louisbranch/taskdesk/internal/platform/id"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/storage"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/user"
)

// DefaultLimit is the maximum number of documents an owner may hold.
const DefaultLimit = 3

// Kind selects how an upload is validated and recorded.
type Kind string

const (
	KindDocument     Kind = "document"
	KindProfileImage Kind = "profile_image"
)

var (
	// ErrInvalidDocument indicates an upload that is not a PDF.
	ErrInvalidDocument = apperrors.WithMetadata(apperrors.CodeInvalidFormat, "document must be a PDF", map[string]string{"Kind": "PDF"})
	// ErrInvalidImage indicates an upload that is not a PNG or JPEG.
	ErrInvalidImage = apperrors.WithMetadata(apperrors.CodeInvalidFormat, "profile image must be PNG or JPEG", map[string]string{"Kind": "PNG/JPEG"})
	// ErrNotFound indicates a missing document or image.
	ErrNotFound = storage.ErrNotFound
	// ErrForbidden indicates the document belongs to another owner.
	ErrForbidden = storage.ErrNotOwner
)

// ProfileImageStore reads and records an owner's current profile image.
type ProfileImageStore interface {
	GetUser(ctx context.Context, userID string) (user.User, error)
	SetProfileImage(ctx context.Context, userID string, filename string, updatedAt time.Time) error
}

// Config locates stored files and bounds each owner's documents.
type Config struct {
	// Root is the directory holding one subdirectory per owner.
	Root string
	// Limit defaults to DefaultLimit.
	Limit int
}

// Enforcer stores owner files and enforces the document quota.
type Enforcer struct {
	docs        storage.DocumentStore
	profiles    ProfileImageStore
	root        string
	limit       int
	locks       ownerLocks
	clock       func() time.Time
	idGenerator func() (string, error)
	logf        func(string, ...any)
}

// NewEnforcer builds an enforcer writing below cfg.Root.
func NewEnforcer(docs storage.DocumentStore, profiles ProfileImageStore, cfg Config) (*Enforcer, error) {
	if docs == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile image store is required")
	}
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, fmt.Errorf("upload root is required")
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Enforcer{
		docs:        docs,
		profiles:    profiles,
		root:        root,
		limit:       limit,
		clock:       time.Now,
		idGenerator: id.NewID,
		logf:        log.Printf,
	}, nil
}

// Root returns the absolute upload root.
func (e *Enforcer) Root() string {
	return e.root
}

// Limit returns the per-owner document limit.
func (e *Enforcer) Limit() int {
	return e.limit
}

// Upload validates and stores body for owner. For KindDocument the returned
// record is persisted; for KindProfileImage only Filename and Filepath are
// set and the owner's profile image reference now points at it.
func (e *Enforcer) Upload(ctx context.Context, owner user.User, filename string, body io.Reader, kind Kind) (storage.Document, error) {
	switch kind {
	case KindDocument:
		return e.uploadDocument(ctx, owner, filename, body)
	case KindProfileImage:
		return e.uploadProfileImage(ctx, owner, filename, body)
	default:
		return storage.Document{}, apperrors.WithMetadata(apperrors.CodeValidation, "unknown upload kind", map[string]string{"Kind": string(kind)})
	}
}

func (e *Enforcer) uploadDocument(ctx context.Context, owner user.User, filename string, body io.Reader) (storage.Document, error) {
	safe := SecureFilename(filename)
	if safe == "" || !hasExtension(safe, ".pdf") {
		return storage.Document{}, ErrInvalidDocument
	}
	dir, err := e.ownerDir(owner.ID)
	if err != nil {
		return storage.Document{}, err
	}

	unlock := e.locks.lock(owner.ID)
	defer unlock()

	count, err := e.docs.CountDocuments(ctx, owner.ID)
	if err != nil {
		return storage.Document{}, fmt.Errorf("count documents: %w", err)
	}
	if count >= e.limit {
		return storage.Document{}, quotaError(e.limit)
	}

	docID, err := e.idGenerator()
	if err != nil {
		return storage.Document{}, fmt.Errorf("generate document id: %w", err)
	}
	stored := docID + "_" + safe
	path, err := e.writeFile(dir, stored, body)
	if err != nil {
		return storage.Document{}, err
	}

	doc := storage.Document{
		ID:        docID,
		OwnerID:   owner.ID,
		Filename:  stored,
		Filepath:  filepath.Join(owner.ID, stored),
		CreatedAt: e.clock().UTC(),
	}
	if err := e.docs.PutDocumentWithinQuota(ctx, doc, e.limit); err != nil {
		e.removeFile(path, "orphan document")
		if errors.Is(err, storage.ErrQuotaExceeded) {
			return storage.Document{}, quotaError(e.limit)
		}
		return storage.Document{}, fmt.Errorf("put document: %w", err)
	}
	return doc, nil
}

func (e *Enforcer) uploadProfileImage(ctx context.Context, owner user.User, filename string, body io.Reader) (storage.Document, error) {
	safe := SecureFilename(filename)
	if safe == "" || !hasExtension(safe, ".png", ".jpg", ".jpeg") {
		return storage.Document{}, ErrInvalidImage
	}
	dir, err := e.ownerDir(owner.ID)
	if err != nil {
		return storage.Document{}, err
	}

	unlock := e.locks.lock(owner.ID)
	defer unlock()

	// The caller's copy may predate an upload that finished while we waited
	// for the lock.
	current, err := e.profiles.GetUser(ctx, owner.ID)
	if err != nil {
		return storage.Document{}, fmt.Errorf("get profile owner: %w", err)
	}

	imageID, err := e.idGenerator()
	if err != nil {
		return storage.Document{}, fmt.Errorf("generate image id: %w", err)
	}
	stored := imageID + "_" + safe
	path, err := e.writeFile(dir, stored, body)
	if err != nil {
		return storage.Document{}, err
	}
	if err := e.profiles.SetProfileImage(ctx, owner.ID, stored, e.clock().UTC()); err != nil {
		e.removeFile(path, "orphan profile image")
		return storage.Document{}, fmt.Errorf("set profile image: %w", err)
	}

	if previous := current.ProfileImage; localReference(previous) && previous != stored {
		e.removeFile(filepath.Join(dir, previous), "previous profile image")
	}
	return storage.Document{
		OwnerID:  owner.ID,
		Filename: stored,
		Filepath: filepath.Join(owner.ID, stored),
	}, nil
}

// Delete removes requester's document, bytes first. A missing file counts
// as removed; any other removal failure keeps the record.
func (e *Enforcer) Delete(ctx context.Context, requester user.User, documentID string) error {
	doc, err := e.owned(ctx, requester, documentID)
	if err != nil {
		return err
	}

	unlock := e.locks.lock(doc.OwnerID)
	defer unlock()

	path, err := e.resolve(doc.Filepath)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.Wrap(apperrors.CodeIOFailure, "remove document file", err)
	}
	if err := e.docs.DeleteDocument(ctx, doc.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// View opens requester's document for reading. The caller closes the file.
func (e *Enforcer) View(ctx context.Context, requester user.User, documentID string) (*os.File, storage.Document, error) {
	doc, err := e.owned(ctx, requester, documentID)
	if err != nil {
		return nil, storage.Document{}, err
	}
	path, err := e.resolve(doc.Filepath)
	if err != nil {
		return nil, storage.Document{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.Document{}, ErrNotFound
		}
		return nil, storage.Document{}, apperrors.Wrap(apperrors.CodeIOFailure, "open document file", err)
	}
	return file, doc, nil
}

// ListDocuments returns owner's documents in upload order.
func (e *Enforcer) ListDocuments(ctx context.Context, owner user.User) ([]storage.Document, error) {
	docs, err := e.docs.ListDocuments(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// ProfileImagePath returns the file backing owner's profile image. Owners
// still on the placeholder, and references that leave the owner's
// directory, report ErrNotFound.
func (e *Enforcer) ProfileImagePath(ctx context.Context, owner user.User) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !localReference(owner.ProfileImage) {
		return "", ErrNotFound
	}
	dir, err := e.ownerDir(owner.ID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, owner.ProfileImage)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "stat profile image", err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return path, nil
}

// RemoveOwner deletes the owner's upload directory and everything in it.
func (e *Enforcer) RemoveOwner(ownerID string) error {
	dir, err := e.ownerDir(ownerID)
	if err != nil {
		return err
	}
	unlock := e.locks.lock(ownerID)
	defer unlock()
	if err := os.RemoveAll(dir); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "remove owner directory", err)
	}
	return nil
}

func (e *Enforcer) owned(ctx context.Context, requester user.User, documentID string) (storage.Document, error) {
	doc, err := e.docs.GetDocument(ctx, strings.TrimSpace(documentID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Document{}, ErrNotFound
		}
		return storage.Document{}, fmt.Errorf("get document: %w", err)
	}
	if doc.OwnerID != requester.ID {
		return storage.Document{}, ErrForbidden
	}
	return doc, nil
}

func (e *Enforcer) ownerDir(ownerID string) (string, error) {
	if ownerID == "" || !filepath.IsLocal(ownerID) || filepath.Base(ownerID) != ownerID {
		return "", fmt.Errorf("invalid owner id %q", ownerID)
	}
	return filepath.Join(e.root, ownerID), nil
}

// resolve maps a stored relative path below the root.
func (e *Enforcer) resolve(stored string) (string, error) {
	if !filepath.IsLocal(stored) {
		return "", ErrNotFound
	}
	return filepath.Join(e.root, stored), nil
}

// writeFile streams body into dir/name through a temporary sibling so a
// partially written file is never visible under its final name.
func (e *Enforcer) writeFile(dir, name string, body io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "create owner directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "create upload temp file", err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, body)
	if copyErr == nil {
		copyErr = tmp.Sync()
	}
	closeErr := tmp.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		e.removeFile(tmpPath, "upload temp file")
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "write upload", copyErr)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		e.removeFile(tmpPath, "upload temp file")
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "move upload into place", err)
	}
	return path, nil
}

func (e *Enforcer) removeFile(path, what string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		e.logf("remove %s %s: %v", what, path, err)
	}
}

func localReference(name string) bool {
	if name == "" || name == user.DefaultProfileImage {
		return false
	}
	return filepath.IsLocal(name) && filepath.Base(name) == name
}

func quotaError(limit int) error {
	return apperrors.WithMetadata(apperrors.CodeQuotaExceeded, "document quota exceeded", map[string]string{"Limit": fmt.Sprint(limit)})
}

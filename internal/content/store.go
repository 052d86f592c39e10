package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	pebblestore "github.com/rzbill/hashlink/internal/storage/pebble"
)

// Store is content-addressed blob storage: Store returns the sha256 digest of
// the bytes as the location id, Fetch verifies retrieved bytes against it.
type Store interface {
	Store(ctx context.Context, data []byte) (string, error)
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// Digest returns the lowercase hex sha256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NotFoundError reports a missing blob.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("content: blob %s not found", e.ID) }

// DigestMismatchError reports stored bytes that no longer hash to their id.
type DigestMismatchError struct {
	ID     string
	Actual string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("content: blob %s failed digest verification (got %s)", e.ID, e.Actual)
}

var casPrefix = []byte("cas/")

func casKey(id string) []byte {
	k := make([]byte, 0, len(casPrefix)+len(id))
	k = append(k, casPrefix...)
	k = append(k, id...)
	return k
}

// PebbleStore persists blobs in the shared Pebble database.
type PebbleStore struct {
	db *pebblestore.DB
}

// NewPebbleStore returns a Store over db.
func NewPebbleStore(db *pebblestore.DB) *PebbleStore { return &PebbleStore{db: db} }

// Store writes data under its digest. Idempotent: storing identical bytes
// twice lands on the same key.
func (s *PebbleStore) Store(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := Digest(data)
	if err := s.db.Set(casKey(id), data); err != nil {
		return "", err
	}
	return id, nil
}

// Fetch returns the blob at id after verifying its digest.
func (s *PebbleStore) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.db.Get(casKey(id))
	if err != nil {
		return nil, &NotFoundError{ID: id}
	}
	if actual := Digest(data); actual != id {
		return nil, &DigestMismatchError{ID: id, Actual: actual}
	}
	return data, nil
}

// MemoryStore is an in-process Store for tests and detached use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{blobs: map[string][]byte{}} }

// Store writes data under its digest.
func (s *MemoryStore) Store(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := Digest(data)
	s.mu.Lock()
	s.blobs[id] = append([]byte(nil), data...)
	s.mu.Unlock()
	return id, nil
}

// Fetch returns the blob at id after verifying its digest.
func (s *MemoryStore) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	if actual := Digest(data); actual != id {
		return nil, &DigestMismatchError{ID: id, Actual: actual}
	}
	return append([]byte(nil), data...), nil
}

// Corrupt overwrites a stored blob in place without changing its id. Test hook
// for exercising digest verification.
func (s *MemoryStore) Corrupt(id string, data []byte) {
	s.mu.Lock()
	s.blobs[id] = append([]byte(nil), data...)
	s.mu.Unlock()
}

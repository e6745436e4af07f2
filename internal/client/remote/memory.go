package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/google/uuid"
)

type memoryFile struct {
	meta    models.Metadata
	content string
}

// MemoryStore is an in-process Store. It is used for offline sessions and
// tests; FailNext injects a one-shot failure for a given operation.
type MemoryStore struct {
	mu       sync.Mutex
	files    map[string]*memoryFile
	failures map[Op]*Error
	calls    map[Op]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:    make(map[string]*memoryFile),
		failures: make(map[Op]*Error),
		calls:    make(map[Op]int),
	}
}

// FailNext makes the next call of op fail with the given kind.
func (s *MemoryStore) FailNext(op Op, kind Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = &Error{Op: op, Kind: kind, Err: err}
}

// Calls returns how many times op was invoked.
func (s *MemoryStore) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *MemoryStore) enter(ctx context.Context, op Op) error {
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return newError(op, 0, err)
	}
	if e, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return e
	}
	return nil
}

// Create stores content under a new random id.
func (s *MemoryStore) Create(ctx context.Context, meta models.Metadata, content string) (*models.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpCreate); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	return s.storeLocked(id, meta, content), nil
}

// Update overwrites an existing file. Unknown ids fail with KindNotFound.
func (s *MemoryStore) Update(ctx context.Context, id string, meta models.Metadata, content string) (*models.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpUpdate); err != nil {
		return nil, err
	}
	if _, ok := s.files[id]; !ok {
		return nil, &Error{Op: OpUpdate, Kind: KindNotFound, Err: errors.New(id)}
	}
	return s.storeLocked(id, meta, content), nil
}

// GetMetadata returns a copy of the stored metadata.
func (s *MemoryStore) GetMetadata(ctx context.Context, id string) (*models.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpGetMetadata); err != nil {
		return nil, err
	}
	f, ok := s.files[id]
	if !ok {
		return nil, &Error{Op: OpGetMetadata, Kind: KindNotFound, Err: errors.New(id)}
	}
	m := f.meta
	return &m, nil
}

// Download returns the content stored for meta.ID.
func (s *MemoryStore) Download(ctx context.Context, meta *models.Metadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpDownload); err != nil {
		return "", err
	}
	if meta == nil {
		return "", &Error{Op: OpDownload, Kind: KindClient, Err: errors.New("nil metadata")}
	}
	f, ok := s.files[meta.ID]
	if !ok {
		return "", &Error{Op: OpDownload, Kind: KindNotFound, Err: errors.New(meta.ID)}
	}
	return f.content, nil
}

func (s *MemoryStore) storeLocked(id string, meta models.Metadata, content string) *models.Metadata {
	if meta.MimeType == "" {
		meta.MimeType = models.ChestMimeType
	}
	meta.ID = id
	meta.DownloadURL = "memory://" + id
	meta.ModifiedTime = time.Now().UTC()
	s.files[id] = &memoryFile{meta: meta, content: content}
	out := meta
	return &out
}

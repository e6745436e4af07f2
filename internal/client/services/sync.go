package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchest/internal/client/chest"
	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/dmitrijs2005/gophchest/internal/client/remote"
	"github.com/dmitrijs2005/gophchest/internal/common"
	"github.com/dmitrijs2005/gophchest/internal/logging"
)

var (
	ErrNoRemoteID     = errors.New("chest has no remote id")
	ErrAlreadyCreated = errors.New("chest already exists remotely")
)

// SyncService moves chest ciphertexts between a Chest and the remote store.
//
// Uploads always re-seal the chest first, so a stale ciphertext is never
// sent. The chest status is syncing while a request is in flight, synced
// after the store confirms the write and needSync after any failure. A second
// upload for the same chest is refused while one is outstanding; nothing
// prevents another client from overwriting the same remote file.
type SyncService interface {
	CreateRemote(ctx context.Context, c *chest.Chest) (*models.Metadata, error)
	FetchRemote(ctx context.Context, fileID string) (string, error)
	FetchInto(ctx context.Context, c *chest.Chest, fileID string) (*models.Metadata, error)
	UpdateRemote(ctx context.Context, c *chest.Chest) (*models.Metadata, error)
	Sync(ctx context.Context, c *chest.Chest) (*models.Metadata, error)
}

type syncService struct {
	store  remote.Store
	logger logging.Logger
}

func NewSyncService(store remote.Store, logger logging.Logger) SyncService {
	return &syncService{store: store, logger: logger.With("component", "sync")}
}

// CreateRemote uploads a chest that has no remote id yet and records the id
// assigned by the store.
func (s *syncService) CreateRemote(ctx context.Context, c *chest.Chest) (*models.Metadata, error) {
	if c.ID() != "" {
		return nil, ErrAlreadyCreated
	}
	return s.upload(ctx, c, remote.OpCreate)
}

// UpdateRemote replaces the remote file of c with a freshly sealed ciphertext.
func (s *syncService) UpdateRemote(ctx context.Context, c *chest.Chest) (*models.Metadata, error) {
	if c.ID() == "" {
		return nil, ErrNoRemoteID
	}
	return s.upload(ctx, c, remote.OpUpdate)
}

// Sync creates or updates depending on whether c already has a remote id.
func (s *syncService) Sync(ctx context.Context, c *chest.Chest) (*models.Metadata, error) {
	if c.ID() == "" {
		return s.CreateRemote(ctx, c)
	}
	return s.UpdateRemote(ctx, c)
}

func (s *syncService) upload(ctx context.Context, c *chest.Chest, op remote.Op) (*models.Metadata, error) {
	if !c.IsUnlocked() {
		return nil, chest.ErrLocked
	}
	if err := c.BeginSync(); err != nil {
		return nil, err
	}

	meta, err := s.doUpload(ctx, c, op)
	if endErr := c.EndSync(err); endErr != nil {
		s.logger.Warn(ctx, "unexpected sync state", "error", endErr)
	}
	if err != nil {
		s.logger.Error(ctx, "chest upload failed", "op", op, "id", c.ID(), "error", err)
		return nil, fmt.Errorf("error uploading chest: %w", err)
	}

	s.logger.Info(ctx, "chest uploaded", "op", op, "id", meta.ID, "title", meta.Title)
	return meta, nil
}

func (s *syncService) doUpload(ctx context.Context, c *chest.Chest, op remote.Op) (*models.Metadata, error) {
	if err := c.Update(); err != nil {
		return nil, err
	}

	md := models.Metadata{Title: c.Title(), MimeType: models.ChestMimeType}

	var meta *models.Metadata
	var err error
	switch op {
	case remote.OpCreate:
		meta, err = s.store.Create(ctx, md, c.Ciphertext())
		if err == nil {
			c.SetID(meta.ID)
		}
	case remote.OpUpdate:
		meta, err = s.store.Update(ctx, c.ID(), md, c.Ciphertext())
	default:
		err = fmt.Errorf("%w: unsupported upload op %q", common.ErrorInternal, op)
	}
	return meta, err
}

// FetchRemote reads the metadata of fileID, then downloads its content.
// Failures match remote.ErrDownload.
func (s *syncService) FetchRemote(ctx context.Context, fileID string) (string, error) {
	_, ciphertext, err := s.fetch(ctx, fileID)
	return ciphertext, err
}

// FetchInto downloads fileID and loads it, locked, into c.
func (s *syncService) FetchInto(ctx context.Context, c *chest.Chest, fileID string) (*models.Metadata, error) {
	if c.Status() == models.StatusSyncing {
		return nil, chest.ErrSyncInProgress
	}
	meta, ciphertext, err := s.fetch(ctx, fileID)
	if err != nil {
		return nil, err
	}
	c.Load(meta.ID, meta.Title, ciphertext)
	return meta, nil
}

func (s *syncService) fetch(ctx context.Context, fileID string) (*models.Metadata, string, error) {
	meta, err := s.store.GetMetadata(ctx, fileID)
	if err != nil {
		s.logger.Error(ctx, "chest metadata fetch failed", "id", fileID, "error", err)
		return nil, "", fmt.Errorf("error fetching chest metadata: %w", asDownloadError(err))
	}

	ciphertext, err := s.store.Download(ctx, meta)
	if err != nil {
		s.logger.Error(ctx, "chest download failed", "id", fileID, "error", err)
		return nil, "", fmt.Errorf("error downloading chest: %w", asDownloadError(err))
	}

	s.logger.Info(ctx, "chest downloaded", "id", meta.ID, "title", meta.Title)
	return meta, ciphertext, nil
}

// asDownloadError makes sure a fetch failure matches remote.ErrDownload
// even when a Store returns a plain error.
func asDownloadError(err error) error {
	if errors.Is(err, remote.ErrDownload) {
		return err
	}
	var re *remote.Error
	if errors.As(err, &re) {
		return &remote.Error{Op: remote.OpDownload, Kind: re.Kind, StatusCode: re.StatusCode, Err: err}
	}
	return &remote.Error{Op: remote.OpDownload, Kind: remote.KindNetwork, Err: err}
}

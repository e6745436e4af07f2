// Package lastopened remembers which chest was opened last so the client
// can offer to reopen it. The record is plain JSON in the local metadata
// table; it names a remote file and holds nothing secret.
package lastopened

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/dmitrijs2005/gophchest/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophchest/internal/common"
)

type Cache struct {
	repo metadata.Repository
}

func New(repo metadata.Repository) *Cache {
	return &Cache{repo: repo}
}

// Remember overwrites the stored record.
func (c *Cache) Remember(ctx context.Context, id, title string) error {
	if id == "" {
		return fmt.Errorf("%w: empty chest id", common.ErrorValidation)
	}
	if err := metadata.SetJSON(ctx, c.repo, metadata.KeyLastOpened, models.LastOpened{ID: id, Title: title}); err != nil {
		return fmt.Errorf("error saving last opened chest: %w", err)
	}
	return nil
}

// Recall returns nil, nil when nothing was remembered. A corrupt record is
// treated as absent.
func (c *Cache) Recall(ctx context.Context) (*models.LastOpened, error) {
	var lo models.LastOpened
	ok, err := metadata.GetJSON(ctx, c.repo, metadata.KeyLastOpened, &lo)
	if errors.Is(err, metadata.ErrCorrupt) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading last opened chest: %w", err)
	}
	if !ok || lo.ID == "" {
		return nil, nil
	}
	return &lo, nil
}

func (c *Cache) Forget(ctx context.Context) error {
	if err := c.repo.Delete(ctx, metadata.KeyLastOpened); err != nil {
		return fmt.Errorf("error clearing last opened chest: %w", err)
	}
	return nil
}

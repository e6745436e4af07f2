package lastopened

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/gophchest/internal/client/client"
	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/dmitrijs2005/gophchest/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophchest/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*Cache, metadata.Repository) {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "chest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := client.NewRepositories(db).Metadata
	return New(repo), repo
}

func TestRecall_EmptyIsNil(t *testing.T) {
	c, _ := newCache(t)
	lo, err := c.Recall(context.Background())
	require.NoError(t, err)
	assert.Nil(t, lo)
}

func TestRememberRecall(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Remember(ctx, "f1", "Home.chest"))
	require.NoError(t, c.Remember(ctx, "f2", "Work.chest"))

	lo, err := c.Recall(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.LastOpened{ID: "f2", Title: "Work.chest"}, lo)
}

func TestRemember_EmptyID(t *testing.T) {
	c, _ := newCache(t)
	assert.ErrorIs(t, c.Remember(context.Background(), "", "x"), common.ErrorValidation)
}

func TestForget(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Remember(ctx, "f1", "Home.chest"))
	require.NoError(t, c.Forget(ctx))

	lo, err := c.Recall(ctx)
	require.NoError(t, err)
	assert.Nil(t, lo)
}

func TestRecall_CorruptRecordIsAbsent(t *testing.T) {
	c, repo := newCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, metadata.KeyLastOpened, []byte("{not json")))
	lo, err := c.Recall(ctx)
	require.NoError(t, err)
	assert.Nil(t, lo)
}

type brokenRepo struct{ metadata.Repository }

func (brokenRepo) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk") }

func TestRecall_RepositoryError(t *testing.T) {
	_, err := New(brokenRepo{}).Recall(context.Background())
	assert.ErrorContains(t, err, "disk")
}

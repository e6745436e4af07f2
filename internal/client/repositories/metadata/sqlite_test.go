package metadata

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophchest/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)
	require.NoError(t, err)
	return db
}

func TestSetGetDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	v, err := r.Get(ctx, KeyAccountEmail)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, r.Set(ctx, KeyAccountEmail, []byte("old@example.com")))
	require.NoError(t, r.Set(ctx, KeyAccountEmail, []byte("me@example.com")))
	v, err = r.Get(ctx, KeyAccountEmail)
	require.NoError(t, err)
	assert.Equal(t, []byte("me@example.com"), v)

	require.NoError(t, r.Delete(ctx, KeyAccountEmail))
	require.NoError(t, r.Delete(ctx, KeyAccountEmail))
	v, err = r.Get(ctx, KeyAccountEmail)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSet_NilValue(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", nil))
	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)

	var out map[string]string
	ok, err := GetJSON(ctx, r, "k", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

type record struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestJSONHelpers(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	var got record
	ok, err := GetJSON(ctx, r, KeyLastOpened, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, r, KeyLastOpened, record{ID: "f1", Title: "Home.chest"}))
	ok, err = GetJSON(ctx, r, KeyLastOpened, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, record{ID: "f1", Title: "Home.chest"}, got)

	raw, err := r.Get(ctx, KeyLastOpened)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"f1","title":"Home.chest"}`, string(raw))
}

func TestGetJSON_Corrupt(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Set(ctx, KeyLastOpened, []byte("{not json")))

	var got record
	ok, err := GetJSON(ctx, r, KeyLastOpened, &got)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSetJSON_Unencodable(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	err := SetJSON(context.Background(), r, "k", func() {})
	assert.ErrorContains(t, err, `error encoding metadata "k"`)
}

func TestRepository_InsideTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := NewSQLiteRepository(tx).Set(ctx, "k", []byte("v")); err != nil {
			return err
		}
		return errors.New("rollback")
	})
	require.Error(t, err)

	v, err := NewSQLiteRepository(db).Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	assert.ErrorContains(t, err, `error reading metadata "k"`)
	assert.ErrorContains(t, r.Set(ctx, "k", []byte("v")), `error writing metadata "k"`)
	assert.ErrorContains(t, r.Delete(ctx, "k"), `error deleting metadata "k"`)
}

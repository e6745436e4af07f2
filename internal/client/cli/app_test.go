package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophchest/internal/client/chest"
	"github.com/dmitrijs2005/gophchest/internal/client/client"
	"github.com/dmitrijs2005/gophchest/internal/client/config"
	"github.com/dmitrijs2005/gophchest/internal/client/entries"
	"github.com/dmitrijs2005/gophchest/internal/client/lastopened"
	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/dmitrijs2005/gophchest/internal/client/remote"
	"github.com/dmitrijs2005/gophchest/internal/client/services"
	"github.com/dmitrijs2005/gophchest/internal/common"
	"github.com/dmitrijs2005/gophchest/internal/cryptox"
	"github.com/dmitrijs2005/gophchest/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastCodec = cryptox.Codec{KDF: cryptox.KDFArgon2id, Iterations: 1, MemoryKiB: 64, Threads: 1}

type testApp struct {
	*App
	out   *bytes.Buffer
	store *remote.MemoryStore
}

func newTestApp(t *testing.T, input ...string) *testApp {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "chest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Storage = config.StorageMemory

	store := remote.NewMemoryStore()
	a := NewApp(cfg, Deps{
		Chest:  chest.New(fastCodec),
		Sync:   services.NewSyncService(store, logging.Nop()),
		Last:   lastopened.New(client.NewRepositories(db).Metadata),
		Logger: logging.Nop(),
	})

	var out bytes.Buffer
	a.out = &out
	a.reader = bufio.NewReader(strings.NewReader(strings.Join(input, "\n")))
	return &testApp{App: a, out: &out, store: store}
}

// stubPasswords makes getPassword return pws in order.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer, string) ([]byte, error) {
		if len(pws) == 0 {
			return nil, errors.New("no more passwords")
		}
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
	t.Cleanup(func() { getPassword = orig })
}

// seedRemote stores a chest with the example entry and bank under pw.
func seedRemote(t *testing.T, store *remote.MemoryStore, pw string) *models.Metadata {
	t.Helper()
	c := chest.New(fastCodec)
	require.NoError(t, c.Create("Work", pw))
	require.NoError(t, c.Entries().Add(models.Entry{ID: "a1", Title: "Bank", Username: "u", Password: "pw", URL: "http://bank.example"}))
	require.NoError(t, c.Update())
	meta, err := store.Create(context.Background(), models.Metadata{Title: c.Title()}, c.Ciphertext())
	require.NoError(t, err)
	return meta
}

func TestNew_CreatesAndUploads(t *testing.T) {
	a := newTestApp(t)
	stubPasswords(t, "hunter2", "hunter2")
	ctx := context.Background()

	require.NoError(t, a.New(ctx, []string{"Home"}))

	assert.Equal(t, "Home.chest", a.chest.Title())
	assert.NotEmpty(t, a.chest.ID())
	assert.Equal(t, models.StatusSynced, a.chest.Status())
	assert.Equal(t, 1, a.store.Calls(remote.OpCreate))
	assert.Equal(t, 1, a.chest.Entries().Len())

	lo, err := a.last.Recall(ctx)
	require.NoError(t, err)
	require.NotNil(t, lo)
	assert.Equal(t, a.chest.ID(), lo.ID)
}

func TestNew_PromptsForName(t *testing.T) {
	a := newTestApp(t, "Personal")
	stubPasswords(t, "pw", "pw")

	require.NoError(t, a.New(context.Background(), nil))
	assert.Equal(t, "Personal.chest", a.chest.Title())
}

func TestNew_PasswordMismatch(t *testing.T) {
	a := newTestApp(t)
	stubPasswords(t, "one", "two")

	err := a.New(context.Background(), []string{"Home"})
	assert.ErrorIs(t, err, ErrMismatch)
	assert.Empty(t, a.chest.Title())
	assert.Zero(t, a.store.Calls(remote.OpCreate))
}

func TestNew_EmptyPassword(t *testing.T) {
	a := newTestApp(t)
	stubPasswords(t, "", "")
	assert.ErrorIs(t, a.New(context.Background(), []string{"Home"}), common.ErrorValidation)
}

func TestNew_UploadFailureLeavesNeedSync(t *testing.T) {
	a := newTestApp(t)
	stubPasswords(t, "pw", "pw")
	a.store.FailNext(remote.OpCreate, remote.KindNetwork, errors.New("offline"))
	ctx := context.Background()

	err := a.New(ctx, []string{"Home"})
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrRemote)
	assert.Contains(t, err.Error(), "needSync")
	assert.True(t, a.chest.IsUnlocked())
	assert.Equal(t, models.StatusNeedSync, a.chest.Status())

	require.NoError(t, a.Sync(ctx, nil))
	assert.Equal(t, models.StatusSynced, a.chest.Status())
	assert.NotEmpty(t, a.chest.ID())
}

func TestOpen_RetriesWrongPassword(t *testing.T) {
	a := newTestApp(t)
	meta := seedRemote(t, a.store, "pw")
	stubPasswords(t, "nope", "pw")
	ctx := context.Background()

	require.NoError(t, a.Open(ctx, []string{meta.ID}))

	assert.Contains(t, a.out.String(), "Wrong password")
	assert.True(t, a.chest.IsUnlocked())
	assert.Equal(t, 2, a.chest.Entries().Len())
	assert.Equal(t, models.StatusSynced, a.chest.Status())

	lo, err := a.last.Recall(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.LastOpened{ID: meta.ID, Title: "Work.chest"}, lo)
}

func TestOpen_GivesUpAfterMaxAttempts(t *testing.T) {
	a := newTestApp(t)
	meta := seedRemote(t, a.store, "pw")
	stubPasswords(t, "a", "b", "c", "pw")
	ctx := context.Background()

	err := a.Open(ctx, []string{meta.ID})
	assert.ErrorIs(t, err, cryptox.ErrAuthentication)
	assert.False(t, a.chest.IsUnlocked())
	assert.Equal(t, "Work.chest", a.chest.Title())

	lo, err := a.last.Recall(ctx)
	require.NoError(t, err)
	assert.Nil(t, lo)

	// the fetched chest can still be unlocked
	require.NoError(t, a.Unlock(ctx, nil))
	assert.True(t, a.chest.IsUnlocked())
}

func TestOpen_Errors(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	assert.ErrorIs(t, a.Open(ctx, nil), ErrUsage)
	assert.ErrorIs(t, a.Open(ctx, []string{"missing"}), remote.ErrDownload)
}

func TestOpen_RefusesToDiscardUnsyncedChanges(t *testing.T) {
	a := newTestApp(t)
	meta := seedRemote(t, a.store, "pw")
	stubPasswords(t, "mine", "mine", "pw")
	ctx := context.Background()

	require.NoError(t, a.New(ctx, []string{"Home"}))
	require.NoError(t, a.chest.Entries().Add(models.Entry{ID: "x1", Title: "Draft"}))

	assert.ErrorIs(t, a.Open(ctx, []string{meta.ID}), ErrUnsynced)
	assert.Equal(t, "Home.chest", a.chest.Title())

	require.NoError(t, a.Open(ctx, []string{"-f", meta.ID}))
	assert.Equal(t, "Work.chest", a.chest.Title())
}

func TestLockedUnsyncedChestIsNotReplaced(t *testing.T) {
	a := newTestApp(t)
	meta := seedRemote(t, a.store, "pw")
	stubPasswords(t, "mine", "mine", "pw", "other", "other")
	ctx := context.Background()

	require.NoError(t, a.New(ctx, []string{"Home"}))
	require.NoError(t, a.chest.Entries().Add(models.Entry{ID: "x1", Title: "Draft"}))
	require.NoError(t, a.Lock(ctx, nil))
	require.Equal(t, models.StatusNeedSync, a.chest.Status())

	assert.ErrorIs(t, a.Open(ctx, []string{meta.ID}), ErrUnsynced)
	assert.ErrorIs(t, a.New(ctx, []string{"Other"}), ErrUnsynced)
	require.NoError(t, a.last.Remember(ctx, meta.ID, "Work.chest"))
	assert.ErrorIs(t, a.Reopen(ctx, nil), ErrUnsynced)
	assert.Equal(t, "Home.chest", a.chest.Title())
	assert.Zero(t, a.store.Calls(remote.OpGetMetadata))

	require.NoError(t, a.Open(ctx, []string{"-f", meta.ID}))
	assert.Equal(t, "Work.chest", a.chest.Title())

	require.NoError(t, a.chest.Entries().Add(models.Entry{ID: "x2"}))
	require.NoError(t, a.New(ctx, []string{"-f", "Other"}))
	assert.Equal(t, "Other.chest", a.chest.Title())
}

func TestReopen(t *testing.T) {
	a := newTestApp(t)
	meta := seedRemote(t, a.store, "pw")
	stubPasswords(t, "pw", "pw")
	ctx := context.Background()

	assert.ErrorIs(t, a.Reopen(ctx, nil), common.ErrorNotFound)

	require.NoError(t, a.Open(ctx, []string{meta.ID}))
	require.NoError(t, a.Lock(ctx, nil))
	require.NoError(t, a.Reopen(ctx, nil))
	assert.Contains(t, a.out.String(), "Opening Work.chest")
	assert.True(t, a.chest.IsUnlocked())
}

func TestEntryCommands(t *testing.T) {
	a := newTestApp(t, "Mail", "me", "https://mail.example")
	meta := seedRemote(t, a.store, "pw")
	stubPasswords(t, "pw", "mailpw")
	ctx := context.Background()

	require.NoError(t, a.Open(ctx, []string{meta.ID}))

	require.NoError(t, a.Add(ctx, nil))
	assert.Equal(t, models.StatusNeedSync, a.chest.Status())
	added := a.chest.Entries().Filter(func(e models.Entry) bool { return e.Title == "Mail" })
	require.Len(t, added, 1)
	assert.Equal(t, "mailpw", added[0].Password)
	id := added[0].ID

	a.out.Reset()
	require.NoError(t, a.List(ctx, []string{"mail"}))
	assert.Contains(t, a.out.String(), "https://mail.example")
	assert.NotContains(t, a.out.String(), "Bank")

	require.NoError(t, a.Edit(ctx, []string{id, "title", "Web", "Mail"}))
	e, _ := a.chest.Entries().Get(id)
	assert.Equal(t, "Web Mail", e.Title)

	require.NoError(t, a.Trash(ctx, []string{"a1"}))
	a.out.Reset()
	require.NoError(t, a.List(ctx, nil))
	assert.NotContains(t, a.out.String(), "Bank")
	a.out.Reset()
	require.NoError(t, a.List(ctx, []string{"trash"}))
	assert.Contains(t, a.out.String(), "Bank")

	require.NoError(t, a.Restore(ctx, []string{"a1"}))
	a.out.Reset()
	require.NoError(t, a.Show(ctx, []string{"a1"}))
	assert.Contains(t, a.out.String(), "Password: pw")

	require.NoError(t, a.Delete(ctx, []string{"a1"}))
	_, ok := a.chest.Entries().Get("a1")
	assert.False(t, ok)

	assert.ErrorIs(t, a.Show(ctx, []string{"a1"}), common.ErrorNotFound)
	assert.ErrorIs(t, a.Edit(ctx, []string{id, "title"}), ErrUsage)
	assert.ErrorIs(t, a.Show(ctx, nil), ErrUsage)

	require.NoError(t, a.Sync(ctx, nil))
	assert.Equal(t, models.StatusSynced, a.chest.Status())
	assert.Equal(t, 1, a.store.Calls(remote.OpUpdate))
}

func TestEdit_UnknownField(t *testing.T) {
	a := newTestApp(t)
	stubPasswords(t, "pw", "pw")
	ctx := context.Background()
	require.NoError(t, a.New(ctx, []string{"Home"}))

	id := a.chest.Entries().List()[0].ID
	assert.ErrorIs(t, a.Edit(ctx, []string{id, "colour", "red"}), entries.ErrUnknownField)
	assert.Equal(t, models.StatusSynced, a.chest.Status())
}

func TestEdit_PromptedPassword(t *testing.T) {
	a := newTestApp(t)
	stubPasswords(t, "pw", "pw", "fresh")
	ctx := context.Background()
	require.NoError(t, a.New(ctx, []string{"Home"}))

	id := a.chest.Entries().List()[0].ID
	require.NoError(t, a.Edit(ctx, []string{id, "password", "-"}))
	e, _ := a.chest.Entries().Get(id)
	assert.Equal(t, "fresh", e.Password)
}

func TestLock_KeepsUnsyncedEdits(t *testing.T) {
	a := newTestApp(t)
	stubPasswords(t, "pw", "pw", "pw")
	ctx := context.Background()

	require.NoError(t, a.New(ctx, []string{"Home"}))
	require.NoError(t, a.chest.Entries().Add(models.Entry{ID: "x1", Title: "Draft"}))

	require.NoError(t, a.Lock(ctx, nil))
	assert.False(t, a.chest.IsUnlocked())
	assert.ErrorIs(t, a.List(ctx, nil), chest.ErrLocked)
	assert.ErrorIs(t, a.Sync(ctx, nil), chest.ErrLocked)

	require.NoError(t, a.Unlock(ctx, nil))
	_, ok := a.chest.Entries().Get("x1")
	assert.True(t, ok)
	assert.Equal(t, models.StatusNeedSync, a.chest.Status())
}

func TestPasswd(t *testing.T) {
	a := newTestApp(t)
	stubPasswords(t, "old", "old", "old", "new", "new", "new")
	ctx := context.Background()

	require.NoError(t, a.New(ctx, []string{"Home"}))
	require.NoError(t, a.Passwd(ctx, nil))
	assert.Equal(t, models.StatusNeedSync, a.chest.Status())

	require.NoError(t, a.Lock(ctx, nil))
	require.NoError(t, a.Unlock(ctx, nil))
	assert.True(t, a.chest.IsUnlocked())
}

func TestPasswd_WrongCurrent(t *testing.T) {
	a := newTestApp(t)
	stubPasswords(t, "old", "old", "bad", "new", "new")
	ctx := context.Background()

	require.NoError(t, a.New(ctx, []string{"Home"}))
	assert.ErrorIs(t, a.Passwd(ctx, nil), cryptox.ErrAuthentication)
	assert.Equal(t, models.StatusSynced, a.chest.Status())
}

func TestCommands_WithoutChest(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	assert.ErrorIs(t, a.List(ctx, nil), ErrNoChest)
	assert.ErrorIs(t, a.Add(ctx, nil), ErrNoChest)
	assert.ErrorIs(t, a.Sync(ctx, nil), ErrNoChest)
	assert.ErrorIs(t, a.Lock(ctx, nil), ErrNoChest)
	assert.ErrorIs(t, a.Unlock(ctx, nil), ErrNoChest)
	assert.ErrorIs(t, a.SignOut(ctx, nil), ErrNoAccount)
}

func TestStatusAndPrompt(t *testing.T) {
	a := newTestApp(t)
	stubPasswords(t, "pw", "pw")
	ctx := context.Background()

	assert.Equal(t, "no chest", a.getStatus())
	require.NoError(t, a.Status(ctx, nil))
	assert.Contains(t, a.out.String(), "No chest")

	require.NoError(t, a.New(ctx, []string{"Home"}))
	assert.Equal(t, "Home.chest synced", a.getStatus())

	a.out.Reset()
	require.NoError(t, a.Status(ctx, nil))
	assert.Contains(t, a.out.String(), "Status:  synced")
	assert.Contains(t, a.out.String(), "Storage: memory")

	a.chest.Lock()
	assert.Equal(t, "Home.chest locked", a.getStatus())
}

func TestConfirmExit(t *testing.T) {
	a := newTestApp(t)
	stubPasswords(t, "pw", "pw")
	ctx := context.Background()

	assert.True(t, a.confirmExit())

	require.NoError(t, a.New(ctx, []string{"Home"}))
	require.NoError(t, a.chest.Entries().Add(models.Entry{ID: "x1"}))

	assert.False(t, a.confirmExit())
	assert.Contains(t, a.out.String(), "unsynced changes")
	assert.True(t, a.confirmExit())
}

func TestRun_ReplOverApp(t *testing.T) {
	capturePrints(t)
	a := newTestApp(t, "new Home", "status", "exit")
	stubPasswords(t, "pw", "pw")

	a.Run(context.Background())

	assert.Equal(t, "Home.chest", a.chest.Title())
	assert.Contains(t, a.out.String(), "Storage: memory")
}

// Package chest implements the encrypted vault aggregate.
//
// A Chest owns the sealed ciphertext, the decrypted entry collection and the
// synchronization status. Entries are only reachable after a successful Open;
// Update re-seals them under the master password kept in memory.
//
// Status rules:
//   - added, removed and changed collection events mark the chest needSync;
//     a reset (load, open, lock) does not.
//   - BeginSync moves to syncing; EndSync moves to synced on success and
//     back to needSync on failure so the upload can be retried.
package chest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophchest/internal/client/entries"
	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/dmitrijs2005/gophchest/internal/common"
)

// Extension is appended to the name of a newly created chest.
const Extension = ".chest"

var (
	ErrLocked         = errors.New("chest is locked")
	ErrEmpty          = errors.New("chest has no ciphertext")
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrNotSyncing     = errors.New("no sync in progress")
)

// Codec seals and opens the serialized entry list.
type Codec interface {
	Encrypt(password, plaintext string) (string, error)
	Decrypt(password, record string) (string, error)
}

// StatusObserver is notified after every status transition.
type StatusObserver func(old, new models.Status)

// Chest is safe for concurrent use.
type Chest struct {
	mu sync.Mutex

	id         string
	title      string
	password   []byte
	ciphertext string
	status     models.Status

	// set when the collection changes while an upload is in flight
	dirtyDuringSync bool

	codec     Codec
	entries   *entries.Collection
	observers []StatusObserver
}

// New returns an empty chest in the synced state.
func New(codec Codec) *Chest {
	c := &Chest{
		status:  models.StatusSynced,
		codec:   codec,
		entries: entries.New(),
	}
	c.entries.Subscribe(c.onEntryEvent)
	return c
}

func (c *Chest) onEntryEvent(ev entries.Event) {
	if ev.Kind == entries.EventReset {
		return
	}
	c.mu.Lock()
	if c.status == models.StatusSyncing {
		c.dirtyDuringSync = true
		c.mu.Unlock()
		return
	}
	obs, old := c.setStatusLocked(models.StatusNeedSync)
	c.mu.Unlock()

	notifyStatus(obs, old, models.StatusNeedSync)
}

// OnStatus registers fn for status transitions.
func (c *Chest) OnStatus(fn StatusObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Create turns the chest into a brand new one named name+Extension, seeded
// with one example entry and sealed under password. The chest has no remote
// id until the sync service creates it remotely.
func (c *Chest) Create(name, password string) error {
	id, err := c.entries.NewID()
	if err != nil {
		return fmt.Errorf("error creating chest: %w", err)
	}
	seed := []models.Entry{models.ExampleEntry(id)}

	plaintext, err := json.Marshal(seed)
	if err != nil {
		return fmt.Errorf("error serializing entries: %w", err)
	}
	ciphertext, err := c.codec.Encrypt(password, string(plaintext))
	if err != nil {
		return fmt.Errorf("error encrypting chest: %w", err)
	}

	if err := c.entries.Reset(seed); err != nil {
		return fmt.Errorf("error creating chest: %w", err)
	}

	c.mu.Lock()
	c.id = ""
	c.title = name + Extension
	c.replacePasswordLocked(password)
	c.ciphertext = ciphertext
	c.dirtyDuringSync = false
	obs, old := c.setStatusLocked(models.StatusSynced)
	c.mu.Unlock()

	notifyStatus(obs, old, models.StatusSynced)
	return nil
}

// Load installs a fetched chest. The result is locked: entries are cleared
// and any password from a previous chest is wiped.
func (c *Chest) Load(id, title, ciphertext string) {
	_ = c.entries.Reset(nil)

	c.mu.Lock()
	c.id = id
	c.title = title
	c.ciphertext = ciphertext
	c.wipePasswordLocked()
	c.dirtyDuringSync = false
	obs, old := c.setStatusLocked(models.StatusSynced)
	c.mu.Unlock()

	notifyStatus(obs, old, models.StatusSynced)
}

// Open tries to unlock the chest with password and reports whether it did.
func (c *Chest) Open(password string) bool {
	return c.OpenErr(password) == nil
}

// OpenErr is Open with the failure cause. On any error the chest, including
// previously unlocked entries, is left exactly as it was.
func (c *Chest) OpenErr(password string) error {
	c.mu.Lock()
	ciphertext := c.ciphertext
	c.mu.Unlock()

	if ciphertext == "" {
		return ErrEmpty
	}

	plaintext, err := c.codec.Decrypt(password, ciphertext)
	if err != nil {
		return fmt.Errorf("error decrypting chest: %w", err)
	}

	var list []models.Entry
	if err := json.Unmarshal([]byte(plaintext), &list); err != nil {
		return fmt.Errorf("error parsing chest: %w", err)
	}

	c.mu.Lock()
	if c.ciphertext != ciphertext {
		// replaced by Load or Update while decrypting
		c.mu.Unlock()
		return fmt.Errorf("error opening chest: %w", common.ErrorInternal)
	}
	c.mu.Unlock()

	if err := c.entries.Reset(list); err != nil {
		return fmt.Errorf("error loading entries: %w", err)
	}

	c.mu.Lock()
	c.replacePasswordLocked(password)
	c.mu.Unlock()
	return nil
}

// Update serializes the entries in order and re-seals them with the stored
// password, replacing the ciphertext. It must run before every upload.
func (c *Chest) Update() error {
	c.mu.Lock()
	if c.password == nil {
		c.mu.Unlock()
		return ErrLocked
	}
	password := string(c.password)
	c.mu.Unlock()

	plaintext, err := json.Marshal(c.entries.List())
	if err != nil {
		return fmt.Errorf("error serializing entries: %w", err)
	}
	ciphertext, err := c.codec.Encrypt(password, string(plaintext))
	if err != nil {
		return fmt.Errorf("error encrypting chest: %w", err)
	}

	c.mu.Lock()
	c.ciphertext = ciphertext
	c.mu.Unlock()
	return nil
}

// ChangePassword re-seals the chest under newPassword after checking that
// oldPassword opens the current ciphertext.
func (c *Chest) ChangePassword(oldPassword, newPassword string) error {
	c.mu.Lock()
	if c.password == nil {
		c.mu.Unlock()
		return ErrLocked
	}
	ciphertext := c.ciphertext
	c.mu.Unlock()

	if _, err := c.codec.Decrypt(oldPassword, ciphertext); err != nil {
		return fmt.Errorf("error verifying password: %w", err)
	}

	plaintext, err := json.Marshal(c.entries.List())
	if err != nil {
		return fmt.Errorf("error serializing entries: %w", err)
	}
	sealed, err := c.codec.Encrypt(newPassword, string(plaintext))
	if err != nil {
		return fmt.Errorf("error encrypting chest: %w", err)
	}

	c.mu.Lock()
	c.ciphertext = sealed
	c.replacePasswordLocked(newPassword)
	var obs []StatusObserver
	var old models.Status
	if c.status == models.StatusSyncing {
		c.dirtyDuringSync = true
	} else {
		obs, old = c.setStatusLocked(models.StatusNeedSync)
	}
	c.mu.Unlock()

	notifyStatus(obs, old, models.StatusNeedSync)
	return nil
}

// Lock drops the password and the decrypted entries. The ciphertext stays.
func (c *Chest) Lock() {
	c.mu.Lock()
	c.wipePasswordLocked()
	c.mu.Unlock()
	_ = c.entries.Reset(nil)
}

// BeginSync marks an upload as dispatched.
func (c *Chest) BeginSync() error {
	c.mu.Lock()
	if c.status == models.StatusSyncing {
		c.mu.Unlock()
		return ErrSyncInProgress
	}
	c.dirtyDuringSync = false
	obs, old := c.setStatusLocked(models.StatusSyncing)
	c.mu.Unlock()

	notifyStatus(obs, old, models.StatusSyncing)
	return nil
}

// EndSync completes an upload started with BeginSync. A nil err means the
// remote confirmed the write.
func (c *Chest) EndSync(err error) error {
	c.mu.Lock()
	if c.status != models.StatusSyncing {
		c.mu.Unlock()
		return ErrNotSyncing
	}
	next := models.StatusSynced
	if err != nil || c.dirtyDuringSync {
		next = models.StatusNeedSync
	}
	c.dirtyDuringSync = false
	obs, old := c.setStatusLocked(next)
	c.mu.Unlock()

	notifyStatus(obs, old, next)
	return nil
}

// SetID records the identifier assigned by the remote store.
func (c *Chest) SetID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

// ID returns the remote identifier, or "" before the first upload.
func (c *Chest) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Title returns the chest file name, extension included.
func (c *Chest) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// Ciphertext returns the sealed record as last produced by Create, Update
// or ChangePassword, or as installed by Load.
func (c *Chest) Ciphertext() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ciphertext
}

// Status returns the current synchronization status.
func (c *Chest) Status() models.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// IsUnlocked reports whether a master password is held in memory.
func (c *Chest) IsUnlocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.password != nil
}

// Entries returns the owned collection. Mutating it marks the chest needSync.
func (c *Chest) Entries() *entries.Collection {
	return c.entries
}

func (c *Chest) setStatusLocked(s models.Status) ([]StatusObserver, models.Status) {
	old := c.status
	if old == s {
		return nil, old
	}
	c.status = s
	return append([]StatusObserver(nil), c.observers...), old
}

func notifyStatus(obs []StatusObserver, old, new models.Status) {
	for _, fn := range obs {
		fn(old, new)
	}
}

func (c *Chest) replacePasswordLocked(password string) {
	c.wipePasswordLocked()
	c.password = []byte(password)
}

func (c *Chest) wipePasswordLocked() {
	common.WipeByteArray(c.password)
	c.password = nil
}

// Package entries holds the decrypted entry collection of a chest.
//
// A Collection keeps entries in insertion order, enforces unique ids and
// publishes an Event to its subscribers after every mutation. Reset is
// reported as a single EventReset so that observers can tell a bulk load
// apart from user edits.
package entries

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/dmitrijs2005/gophchest/internal/common"
)

// ErrUnknownField is returned by Update for a field name that Entry does not have.
var ErrUnknownField = errors.New("unknown entry field")

const (
	idBytes       = 8
	maxIDAttempts = 16
)

// EventKind identifies the mutation that produced an Event.
type EventKind int

const (
	EventAdded EventKind = iota
	EventRemoved
	EventChanged
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventChanged:
		return "changed"
	case EventReset:
		return "reset"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is delivered to subscribers. Entry is set for added, removed and
// changed events, Field only for changed events, Entries only for reset.
type Event struct {
	Kind    EventKind
	Entry   models.Entry
	Field   string
	Entries []models.Entry
}

// Observer receives collection events.
type Observer func(Event)

// Collection is an ordered, id-addressable set of entries.
// It is safe for concurrent use. Observers run after the internal lock is
// released, in subscription order.
type Collection struct {
	mu        sync.Mutex
	order     []string
	byID      map[string]*models.Entry
	observers map[int]Observer
	nextObs   int

	newToken func() (string, error)
}

// New returns an empty collection.
func New() *Collection {
	return &Collection{
		byID:      make(map[string]*models.Entry),
		observers: make(map[int]Observer),
		newToken:  func() (string, error) { return common.MakeRandHexString(idBytes) },
	}
}

// Subscribe registers fn and returns a function that removes it.
func (c *Collection) Subscribe(fn Observer) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Add appends e. It fails with common.ErrDuplicateID if the id is taken
// and with common.ErrorValidation if the id is empty.
func (c *Collection) Add(e models.Entry) error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty entry id", common.ErrorValidation)
	}

	c.mu.Lock()
	if _, ok := c.byID[e.ID]; ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", common.ErrDuplicateID, e.ID)
	}
	stored := e
	c.byID[e.ID] = &stored
	c.order = append(c.order, e.ID)
	obs := c.snapshotObservers()
	c.mu.Unlock()

	notify(obs, Event{Kind: EventAdded, Entry: e})
	return nil
}

// Remove deletes the entry with the given id, or returns common.ErrorNotFound.
func (c *Collection) Remove(id string) error {
	c.mu.Lock()
	e, ok := c.byID[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: entry %s", common.ErrorNotFound, id)
	}
	removed := *e
	delete(c.byID, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	obs := c.snapshotObservers()
	c.mu.Unlock()

	notify(obs, Event{Kind: EventRemoved, Entry: removed})
	return nil
}

// Reset replaces the whole content with list and emits one EventReset.
// If list contains an empty or duplicate id nothing is changed.
func (c *Collection) Reset(list []models.Entry) error {
	byID := make(map[string]*models.Entry, len(list))
	order := make([]string, 0, len(list))
	for _, e := range list {
		if e.ID == "" {
			return fmt.Errorf("%w: empty entry id", common.ErrorValidation)
		}
		if _, ok := byID[e.ID]; ok {
			return fmt.Errorf("%w: %s", common.ErrDuplicateID, e.ID)
		}
		stored := e
		byID[e.ID] = &stored
		order = append(order, e.ID)
	}

	c.mu.Lock()
	c.byID = byID
	c.order = order
	all := c.listLocked()
	obs := c.snapshotObservers()
	c.mu.Unlock()

	notify(obs, Event{Kind: EventReset, Entries: all})
	return nil
}

// Get returns a copy of the entry with the given id.
func (c *Collection) Get(id string) (models.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.byID[id]
	if !ok {
		return models.Entry{}, false
	}
	return *e, true
}

// Update sets one field of an entry in place. No event is emitted when the
// value is unchanged.
func (c *Collection) Update(id, field, value string) error {
	c.mu.Lock()
	e, ok := c.byID[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: entry %s", common.ErrorNotFound, id)
	}

	field = strings.ToLower(field)
	changed, err := setField(e, field, value)
	if err != nil || !changed {
		c.mu.Unlock()
		return err
	}
	updated := *e
	obs := c.snapshotObservers()
	c.mu.Unlock()

	notify(obs, Event{Kind: EventChanged, Entry: updated, Field: field})
	return nil
}

// List returns all entries in insertion order.
func (c *Collection) List() []models.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listLocked()
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// NewID returns a random token not used by any entry in the collection.
func (c *Collection) NewID() (string, error) {
	for range maxIDAttempts {
		id, err := c.newToken()
		if err != nil {
			return "", fmt.Errorf("error generating id: %w", err)
		}
		if _, ok := c.Get(id); !ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no free id after %d attempts", common.ErrDuplicateID, maxIDAttempts)
}

func (c *Collection) listLocked() []models.Entry {
	out := make([]models.Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.byID[id])
	}
	return out
}

func (c *Collection) snapshotObservers() []Observer {
	if len(c.observers) == 0 {
		return nil
	}
	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	// subscription order is the id order
	slices.Sort(ids)
	out := make([]Observer, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.observers[id])
	}
	return out
}

func notify(obs []Observer, ev Event) {
	for _, fn := range obs {
		fn(ev)
	}
}

func setField(e *models.Entry, field, value string) (bool, error) {
	var dst *string
	switch field {
	case models.FieldTitle:
		dst = &e.Title
	case models.FieldUsername:
		dst = &e.Username
	case models.FieldPassword:
		dst = &e.Password
	case models.FieldURL:
		dst = &e.URL
	case models.FieldTrashed:
		v, err := parseBool(value)
		if err != nil {
			return false, err
		}
		if e.Trashed == v {
			return false, nil
		}
		e.Trashed = v
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	if *dst == value {
		return false, nil
	}
	*dst = value
	return true, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true, nil
	case "false", "0", "no", "n", "":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", common.ErrorValidation, s)
}

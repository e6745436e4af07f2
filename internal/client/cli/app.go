package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophchest/internal/client/chest"
	"github.com/dmitrijs2005/gophchest/internal/client/config"
	"github.com/dmitrijs2005/gophchest/internal/client/lastopened"
	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/dmitrijs2005/gophchest/internal/client/services"
	"github.com/dmitrijs2005/gophchest/internal/logging"
)

var (
	ErrNoChest   = errors.New("no chest, use 'new' or 'open'")
	ErrUnsynced  = errors.New("chest has unsynced changes, run 'sync' or add -f to discard them")
	ErrUsage     = errors.New("wrong arguments")
	ErrMismatch  = errors.New("passwords do not match")
	ErrNoAccount = errors.New("storage has no account to sign out of")
)

// getSimpleText and getPassword are indirections used in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// maxOpenAttempts bounds the master password prompts of open.
const maxOpenAttempts = 3

// Deps are the collaborators of an App.
type Deps struct {
	Chest  *chest.Chest
	Sync   services.SyncService
	Last   *lastopened.Cache
	Auth   services.AuthService // nil unless the storage uses OAuth
	Logger logging.Logger
}

type App struct {
	config *config.Config
	chest  *chest.Chest
	sync   services.SyncService
	last   *lastopened.Cache
	auth   services.AuthService
	logger logging.Logger

	reader *bufio.Reader
	out    io.Writer

	// set by the first exit with unsynced changes
	exitWarned bool
}

func NewApp(cfg *config.Config, deps Deps) *App {
	a := &App{
		config: cfg,
		chest:  deps.Chest,
		sync:   deps.Sync,
		last:   deps.Last,
		auth:   deps.Auth,
		logger: deps.Logger,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
	a.chest.OnStatus(func(old, new models.Status) {
		a.logger.Debug(context.Background(), "chest status changed", "from", old, "to", new)
	})
	return a
}

// Run starts the REPL on stdin and returns when the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to gophchest (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) getStatus() string {
	title := a.chest.Title()
	switch {
	case title == "":
		return "no chest"
	case !a.chest.IsUnlocked():
		return fmt.Sprintf("%s locked", title)
	}
	return fmt.Sprintf("%s %s", title, a.chest.Status())
}

func (a *App) isUnlocked() bool {
	return a.chest.IsUnlocked()
}

// confirmExit reports whether the REPL may stop. With unsynced changes the
// first exit only warns.
func (a *App) confirmExit() bool {
	if a.chest.Status() != models.StatusNeedSync || a.exitWarned {
		return true
	}
	a.exitWarned = true
	fmt.Fprintln(a.out, "The chest has unsynced changes. Run 'sync', or 'exit' again to discard them.")
	return false
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) requireUnlocked() error {
	if a.chest.Title() == "" {
		return ErrNoChest
	}
	if !a.chest.IsUnlocked() {
		return chest.ErrLocked
	}
	return nil
}

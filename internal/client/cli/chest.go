package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/dmitrijs2005/gophchest/internal/common"
	"github.com/dmitrijs2005/gophchest/internal/cryptox"
)

// New creates a chest named after args (or a prompted name), seals it under a
// new master password and uploads it. -f discards unsynced changes. If the upload fails the chest stays
// unlocked in memory with status needSync.
func (a *App) New(ctx context.Context, args []string) error {
	force, rest := splitForce(args)
	if err := a.checkDiscard(force); err != nil {
		return err
	}

	name := strings.Join(rest, " ")
	if name == "" {
		var err error
		name, err = getSimpleText(a.reader, "Enter chest name", a.out)
		if err != nil {
			return err
		}
	}
	if name == "" {
		return fmt.Errorf("%w: chest name is required", common.ErrorValidation)
	}

	password, err := a.newPassword("Master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.chest.Create(name, string(password)); err != nil {
		return err
	}
	a.exitWarned = false
	fmt.Fprintf(a.out, "Chest %s created\n", a.chest.Title())

	return a.upload(ctx)
}

// Open fetches the chest with the given remote id and unlocks it.
func (a *App) Open(ctx context.Context, args []string) error {
	force, rest := splitForce(args)
	if len(rest) != 1 {
		return fmt.Errorf("%w: open [-f] <id>", ErrUsage)
	}
	return a.open(ctx, rest[0], force)
}

// Reopen opens the chest recorded by the last successful open.
func (a *App) Reopen(ctx context.Context, args []string) error {
	force, _ := splitForce(args)

	lo, err := a.last.Recall(ctx)
	if err != nil {
		return err
	}
	if lo == nil {
		return fmt.Errorf("%w: no chest was opened yet", common.ErrorNotFound)
	}
	fmt.Fprintf(a.out, "Opening %s\n", lo.Title)
	return a.open(ctx, lo.ID, force)
}

func (a *App) open(ctx context.Context, id string, force bool) error {
	if err := a.checkDiscard(force); err != nil {
		return err
	}

	fetchCtx, cancel := a.withTimeout(ctx)
	meta, err := a.sync.FetchInto(fetchCtx, a.chest, id)
	cancel()
	if err != nil {
		return err
	}
	a.exitWarned = false

	return a.unlock(ctx, meta.ID, meta.Title)
}

// Unlock opens the loaded chest again after lock.
func (a *App) Unlock(ctx context.Context, _ []string) error {
	if a.chest.Title() == "" {
		return ErrNoChest
	}
	if a.chest.IsUnlocked() {
		fmt.Fprintln(a.out, "Already unlocked")
		return nil
	}
	return a.unlock(ctx, a.chest.ID(), a.chest.Title())
}

// unlock prompts for the master password up to maxOpenAttempts times.
func (a *App) unlock(ctx context.Context, id, title string) error {
	for attempt := 1; ; attempt++ {
		password, err := getPassword(a.out, "Master password")
		if err != nil {
			return err
		}
		err = a.chest.OpenErr(string(password))
		common.WipeByteArray(password)

		if err == nil {
			break
		}
		if !errors.Is(err, cryptox.ErrAuthentication) || attempt == maxOpenAttempts {
			return err
		}
		fmt.Fprintln(a.out, "Wrong password")
	}

	if id != "" {
		if err := a.last.Remember(ctx, id, title); err != nil {
			a.logger.Warn(ctx, "cannot remember last opened chest", "error", err)
		}
	}
	fmt.Fprintf(a.out, "Opened %s (%d entries)\n", title, a.chest.Entries().Len())
	return nil
}

// Sync uploads the chest, creating the remote file on first use.
func (a *App) Sync(ctx context.Context, _ []string) error {
	if err := a.requireUnlocked(); err != nil {
		return err
	}
	return a.upload(ctx)
}

func (a *App) upload(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	meta, err := a.sync.Sync(ctx, a.chest)
	if err != nil {
		return fmt.Errorf("%w (status %s, run 'sync' to retry)", err, a.chest.Status())
	}
	if err := a.last.Remember(ctx, meta.ID, meta.Title); err != nil {
		a.logger.Warn(ctx, "cannot remember last opened chest", "error", err)
	}
	a.exitWarned = false
	fmt.Fprintf(a.out, "Synced %s (id %s)\n", meta.Title, meta.ID)
	return nil
}

// Passwd re-seals the chest under a new master password. The change is
// local until the next sync.
func (a *App) Passwd(ctx context.Context, _ []string) error {
	if err := a.requireUnlocked(); err != nil {
		return err
	}

	current, err := getPassword(a.out, "Current master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	next, err := a.newPassword("New master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	if err := a.chest.ChangePassword(string(current), string(next)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Master password changed, run 'sync' to upload")
	return nil
}

func (a *App) Lock(ctx context.Context, _ []string) error {
	if err := a.requireUnlocked(); err != nil {
		return err
	}
	// keep unsynced edits in the ciphertext so unlock brings them back
	if a.chest.Status() != models.StatusSynced {
		if err := a.chest.Update(); err != nil {
			return err
		}
	}
	a.chest.Lock()
	fmt.Fprintln(a.out, "Locked")
	return nil
}

func (a *App) Status(ctx context.Context, _ []string) error {
	if a.chest.Title() == "" {
		fmt.Fprintln(a.out, "No chest")
	} else {
		id := a.chest.ID()
		if id == "" {
			id = "(not uploaded)"
		}
		fmt.Fprintf(a.out, "Chest:   %s\nID:      %s\nStatus:  %s\nLocked:  %t\n",
			a.chest.Title(), id, a.chest.Status(), !a.chest.IsUnlocked())
	}
	fmt.Fprintf(a.out, "Storage: %s\n", a.config.Storage)

	if a.auth != nil {
		email, err := a.auth.Email(ctx)
		if err != nil {
			return err
		}
		if email != "" {
			fmt.Fprintf(a.out, "Account: %s\n", email)
		}
	}
	return nil
}

func (a *App) SignOut(ctx context.Context, _ []string) error {
	if a.auth == nil {
		return ErrNoAccount
	}
	if err := a.auth.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out, the next start asks for access again")
	return nil
}

// checkDiscard refuses to replace a chest with unsynced changes unless force
// is set. A locked chest counts too: lock keeps its edits sealed.
func (a *App) checkDiscard(force bool) error {
	if !force && a.chest.Status() == models.StatusNeedSync {
		return ErrUnsynced
	}
	return nil
}

// newPassword asks for a password twice.
func (a *App) newPassword(prompt string) ([]byte, error) {
	first, err := getPassword(a.out, prompt)
	if err != nil {
		return nil, err
	}
	second, err := getPassword(a.out, "Repeat "+strings.ToLower(prompt))
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if len(first) == 0 {
		return nil, fmt.Errorf("%w: empty password", common.ErrorValidation)
	}
	if !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		return nil, ErrMismatch
	}
	return first, nil
}

func splitForce(args []string) (bool, []string) {
	force := false
	rest := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "-f" || arg == "--force" {
			force = true
			continue
		}
		rest = append(rest, arg)
	}
	return force, rest
}

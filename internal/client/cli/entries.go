package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/gophchest/internal/client/entries"
	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/dmitrijs2005/gophchest/internal/common"
)

// List prints the entries not in the trash, optionally narrowed by a search
// query. "list trash" prints the trash instead.
func (a *App) List(ctx context.Context, args []string) error {
	if err := a.requireUnlocked(); err != nil {
		return err
	}

	preds := []entries.Predicate{entries.Trashed(false)}
	if len(args) == 1 && args[0] == "trash" {
		preds = []entries.Predicate{entries.Trashed(true)}
	} else if len(args) > 0 {
		preds = append(preds, entries.Search(strings.Join(args, " ")))
	}

	list := a.chest.Entries().Filter(preds...)
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No entries")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUSERNAME\tURL")
	for _, e := range list {
		v := e.Overview()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, v.Title, v.Username, v.URL)
	}
	return tw.Flush()
}

func (a *App) Show(ctx context.Context, args []string) error {
	e, err := a.entryArg(args, "show <id>")
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Title:    %s\nUsername: %s\nPassword: %s\nURL:      %s\n", e.Title, e.Username, e.Password, e.URL)
	if e.Trashed {
		fmt.Fprintln(a.out, "(in trash)")
	}
	return nil
}

// Add prompts for the fields of a new entry.
func (a *App) Add(ctx context.Context, _ []string) error {
	if err := a.requireUnlocked(); err != nil {
		return err
	}

	title, err := getSimpleText(a.reader, "Enter title", a.out)
	if err != nil {
		return err
	}
	if title == "" {
		return fmt.Errorf("%w: title is required", common.ErrorValidation)
	}
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	url, err := getSimpleText(a.reader, "Enter URL", a.out)
	if err != nil {
		return err
	}

	id, err := a.chest.Entries().NewID()
	if err != nil {
		return err
	}
	e := models.Entry{ID: id, Title: title, Username: username, Password: string(password), URL: url}
	if err := a.chest.Entries().Add(e); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s\n", id)
	return nil
}

// Edit sets one field: edit <id> <field> <value...>. A password given as
// "-" is prompted for without echo.
func (a *App) Edit(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: edit <id> <field> <value>", ErrUsage)
	}
	e, err := a.entryArg(args[:1], "edit <id> <field> <value>")
	if err != nil {
		return err
	}

	field, value := strings.ToLower(args[1]), strings.Join(args[2:], " ")
	if field == models.FieldPassword && value == "-" {
		pw, err := getPassword(a.out, "Enter password")
		if err != nil {
			return err
		}
		value = string(pw)
		common.WipeByteArray(pw)
	}

	if err := a.chest.Entries().Update(e.ID, field, value); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %s\n", e.ID)
	return nil
}

func (a *App) Trash(ctx context.Context, args []string) error {
	return a.setTrashed(args, true)
}

func (a *App) Restore(ctx context.Context, args []string) error {
	return a.setTrashed(args, false)
}

func (a *App) setTrashed(args []string, trashed bool) error {
	e, err := a.entryArg(args, "trash|restore <id>")
	if err != nil {
		return err
	}
	if err := a.chest.Entries().Update(e.ID, models.FieldTrashed, fmt.Sprint(trashed)); err != nil {
		return err
	}
	if trashed {
		fmt.Fprintf(a.out, "Moved %s to trash\n", e.ID)
	} else {
		fmt.Fprintf(a.out, "Restored %s\n", e.ID)
	}
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	e, err := a.entryArg(args, "delete <id>")
	if err != nil {
		return err
	}
	if err := a.chest.Entries().Remove(e.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", e.ID)
	return nil
}

// entryArg resolves the single id argument of an entry command.
func (a *App) entryArg(args []string, usage string) (models.Entry, error) {
	if err := a.requireUnlocked(); err != nil {
		return models.Entry{}, err
	}
	if len(args) != 1 {
		return models.Entry{}, fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	e, ok := a.chest.Entries().Get(args[0])
	if !ok {
		return models.Entry{}, fmt.Errorf("%w: entry %s", common.ErrorNotFound, args[0])
	}
	return e, nil
}

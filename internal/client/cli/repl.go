package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests provide a stub.
type execIface interface {
	isUnlocked() bool
	confirmExit() bool

	New(ctx context.Context, args []string) error
	Open(ctx context.Context, args []string) error
	Reopen(ctx context.Context, args []string) error
	Unlock(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Trash(ctx context.Context, args []string) error
	Restore(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error
	Passwd(ctx context.Context, args []string) error
	Lock(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
	SignOut(ctx context.Context, args []string) error
}

// runREPL reads one command per line from reader and dispatches it to a.
// Command errors are printed and the loop goes on. It returns on EOF, on a
// cancelled ctx, or when the user types exit or quit and a agrees.
//
// Prompts of the commands read from the same reader, so a command may
// consume the lines that follow it.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("chest (%s) > ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isUnlocked() {
				printlnFn("Available commands: (l)ist, show, add, edit, trash, restore, delete, sync, passwd, lock, new, open, reopen, status, signout, exit")
			} else {
				printlnFn("Available commands: new, open, reopen, unlock, status, signout, exit")
			}
		case "new":
			cmdErr = a.New(ctx, args)
		case "open":
			cmdErr = a.Open(ctx, args)
		case "reopen":
			cmdErr = a.Reopen(ctx, args)
		case "unlock":
			cmdErr = a.Unlock(ctx, args)
		case "l", "list":
			cmdErr = a.List(ctx, args)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "add":
			cmdErr = a.Add(ctx, args)
		case "edit":
			// the value keeps its inner and trailing spaces
			cmdErr = a.Edit(ctx, cutFields(strings.TrimRight(line, "\r\n"), 4)[1:])
		case "trash":
			cmdErr = a.Trash(ctx, args)
		case "restore":
			cmdErr = a.Restore(ctx, args)
		case "delete", "rm":
			cmdErr = a.Delete(ctx, args)
		case "sync":
			cmdErr = a.Sync(ctx, args)
		case "passwd":
			cmdErr = a.Passwd(ctx, args)
		case "lock":
			cmdErr = a.Lock(ctx, args)
		case "status":
			cmdErr = a.Status(ctx, args)
		case "signout":
			cmdErr = a.SignOut(ctx, args)
		case "exit", "quit":
			if a.confirmExit() {
				printlnFn("Bye!")
				return
			}
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}

// cutFields splits s like strings.Fields but stops after n-1 fields; the
// last element is the rest of s with only its leading blanks removed.
func cutFields(s string, n int) []string {
	var out []string
	for len(out) < n-1 {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return out
		}
		i := strings.IndexAny(s, " \t")
		if i < 0 {
			return append(out, s)
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	if rest := strings.TrimLeft(s, " \t"); rest != "" {
		out = append(out, rest)
	}
	return out
}

// Package cli implements the operator command-line tool: it registers
// accounts and checks credentials directly against the Identity
// Directory, using the same key-derivation path the web service uses.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/avdeev/driveauth/internal/common"
	"github.com/avdeev/driveauth/internal/cryptox"
	"github.com/avdeev/driveauth/internal/directory"
)

type App struct {
	dir directory.Client
	out io.Writer
}

func NewApp(dir directory.Client, out io.Writer) *App {
	return &App{dir: dir, out: out}
}

// Run dispatches one subcommand:
//
//	register <username> <email>   create an account (prompts for password)
//	check <username>              verify credentials (prompts for password)
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: driveauth-cli [flags] register|check ...")
	}

	switch args[0] {
	case "register":
		if len(args) != 3 {
			return errors.New("usage: register <username> <email>")
		}
		return a.register(ctx, args[1], args[2])
	case "check":
		if len(args) != 2 {
			return errors.New("usage: check <username>")
		}
		return a.check(ctx, args[1])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *App) register(ctx context.Context, username, email string) error {
	pw, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	confirm, err := GetPassword(a.out, "Confirm password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(pw) != string(confirm) {
		return errors.New("passwords do not match")
	}

	salt, key, err := cryptox.DeriveNew(string(pw))
	if err != nil {
		return err
	}

	if err := a.dir.CreateAccount(ctx, username, email, salt, key); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %s created\n", username)
	return nil
}

func (a *App) check(ctx context.Context, username string) error {
	pw, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	user, err := a.dir.FetchIdentity(ctx, username)
	if err != nil {
		return err
	}

	key, err := cryptox.DeriveKey(string(pw), user.Salt)
	if err != nil {
		return err
	}

	identity, err := a.dir.Verify(ctx, username, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "credentials OK: %s <%s>\n", identity.Username, identity.Email)
	return nil
}

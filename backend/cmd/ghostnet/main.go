// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Command ghostnet creates rooms and sends and reads sealed messages
// straight against an entity store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/efchatnet/ghostnet/backend/config"
	"github.com/efchatnet/ghostnet/backend/conversation"
)

type options struct {
	config.StoreConfig `group:"Store Options"`

	DebugLevel    string `short:"d" long:"debuglevel" env:"GHOSTNET_DEBUGLEVEL" default:"off" description:"Logging level {trace, debug, info, warn, error, critical, off}"`
	MinPassphrase int    `long:"min-passphrase" env:"GHOSTNET_MIN_PASSPHRASE" default:"1" description:"Minimum passphrase length in bytes"`
}

// app carries what every subcommand needs.
type app struct {
	opts options
	out  io.Writer
}

// withService opens the configured store for the duration of fn.
func (a *app) withService(fn func(ctx context.Context, svc *conversation.Service) error) error {
	if err := a.opts.StoreConfig.Validate(); err != nil {
		return err
	}
	if err := setLogLevels(a.opts.DebugLevel); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := a.opts.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := conversation.New(store, conversation.WithMinPassphraseLength(a.opts.MinPassphrase))
	return fn(ctx, svc)
}

func newParser(a *app) *flags.Parser {
	parser := flags.NewParser(&a.opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "ghostnet"

	parser.AddCommand("create", "Create a room",
		"Create a room and print its id. The passphrase is never stored or printed.",
		&createCommand{app: a})
	parser.AddCommand("send", "Send a message",
		"Seal a message under the room passphrase and send it.",
		&sendCommand{app: a})
	parser.AddCommand("read", "Read messages",
		"Read the messages that open under the passphrase.",
		&readCommand{app: a})
	parser.AddCommand("rooms", "List rooms",
		"List live rooms.",
		&roomsCommand{app: a})

	return parser
}

// run parses args and executes the chosen subcommand.
func run(args []string, out io.Writer) error {
	config.LoadDotEnv()

	a := &app{out: out}
	_, err := newParser(a).ParseArgs(args)
	return err
}

// userError turns service errors into the messages the command prints.
func userError(err error) error {
	if errors.Is(err, conversation.ErrNotFound) {
		return errors.New("Room not found")
	}
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if config.IsHelp(err) {
			fmt.Fprintln(os.Stdout, err)
			return
		}
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool
	Courses(ctx context.Context, args []string) error
	Course(ctx context.Context, args []string) error
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Profile(ctx context.Context, args []string) error
	Cart(ctx context.Context) error
	Add(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	Checkout(ctx context.Context, args []string) error
	Admin(ctx context.Context, args []string) error
}

const (
	helpGuest = "Available commands: courses [category], course <id>, register, login, cart, exit"
	helpUser  = "Available commands: courses [category], course <id>, cart, add <id>, remove <id>, " +
		"checkout pix|card, whoami, profile [edit], logout, exit"
	helpAdmin = "Admin commands: admin stats|users|sessions|sales|adduser, " +
		"admin activate|deactivate|rename|deluser <uid>, admin revoke <sid>, " +
		"admin addcourse, admin editcourse|delcourse <id>"
)

// runREPL reads commands from reader until EOF, "exit"/"quit" or ctx
// cancellation. The first word selects the handler and the rest are passed
// as arguments. Handler errors are reported with userMessage and never stop
// the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("store%s> ", statusFn()))

		line, err := readLine(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				printlnFn(userMessage(err))
			}
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help":
			switch {
			case a.isAdmin():
				printlnFn(helpUser)
				printlnFn(helpAdmin)
			case a.isLoggedIn():
				printlnFn(helpUser)
			default:
				printlnFn(helpGuest)
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		var cmdErr error
		switch cmd {
		case "courses", "ls":
			cmdErr = a.Courses(ctx, args)
		case "course", "show":
			cmdErr = a.Course(ctx, args)
		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)
		case "profile":
			cmdErr = a.Profile(ctx, args)
		case "cart":
			cmdErr = a.Cart(ctx)
		case "add":
			cmdErr = a.Add(ctx, args)
		case "remove", "rm":
			cmdErr = a.Remove(ctx, args)
		case "checkout":
			cmdErr = a.Checkout(ctx, args)
		case "admin":
			cmdErr = a.Admin(ctx, args)
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn(userMessage(cmdErr))
		}
	}
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/config"
	"github.com/dmitrijs2005/coursestore/internal/logging"
	"github.com/dmitrijs2005/coursestore/internal/models"
	"github.com/dmitrijs2005/coursestore/internal/services"
)

// getSimpleText, getPassword and getConfirm are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getConfirm    = GetConfirm
)

type App struct {
	config *config.Config
	svc    *services.Services
	log    logging.Logger
	reader *bufio.Reader
	out    io.Writer
	user   *models.PublicAccount
}

func NewApp(c *config.Config, svc *services.Services, log logging.Logger) *App {
	return &App{
		config: c,
		svc:    svc,
		log:    log.With("module", "cli"),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Run prepares the store and blocks in the REPL until the user exits or
// ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	user, err := a.svc.Bootstrap(ctx)
	if err != nil {
		return err
	}
	a.user = user

	a.printf("Welcome to the course store (type 'help' for commands)\n")
	if a.user != nil {
		a.printf("Logged in as %s <%s>\n", a.user.Name, a.user.Email)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) getStatus() string {
	if a.user == nil {
		return ""
	}
	if a.user.IsAdmin() {
		return fmt.Sprintf(" (%s, admin)", a.user.Name)
	}
	return fmt.Sprintf(" (%s)", a.user.Name)
}

func (a *App) isLoggedIn() bool {
	return a.user != nil
}

func (a *App) isAdmin() bool {
	return a.user != nil && a.user.IsAdmin()
}

// current refreshes the logged-in account. It forgets the local user when
// the session has gone away.
func (a *App) current(ctx context.Context) (*models.PublicAccount, error) {
	acc, err := a.svc.Auth.CurrentAccount(ctx)
	if errors.Is(err, common.ErrorUnauthorized) {
		a.user = nil
	}
	if err != nil {
		return nil, err
	}
	a.user = acc
	return acc, nil
}

func (a *App) prompt(text string) (string, error) {
	return getSimpleText(a.reader, text, a.out)
}

func parseID(args []string, usage string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("usage: %s: %w", usage, common.ErrInvalidInput)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a course id: %w", args[0], common.ErrInvalidInput)
	}
	return id, nil
}

func formatMoney(v float64) string {
	return "R$ " + strings.Replace(strconv.FormatFloat(v, 'f', 2, 64), ".", ",", 1)
}

// userMessage turns an error into one line for the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled."
	case errors.Is(err, common.ErrorUnauthorized):
		return "Please log in first."
	case errors.Is(err, common.ErrAuthFailure):
		return "Invalid email or password."
	case errors.Is(err, common.ErrEmailTaken):
		return "This email is already registered."
	case errors.Is(err, common.ErrEmptyCart):
		return "Your cart is empty."
	case errors.Is(err, common.ErrCheckoutInProgress):
		return "Another checkout is being processed, try again in a moment."
	case errors.Is(err, common.ErrForbidden):
		return "Not allowed: " + err.Error()
	case errors.Is(err, common.ErrInvalidInput):
		return "Invalid input: " + err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return "Not found: " + err.Error()
	case errors.Is(err, io.EOF):
		return "Input closed."
	default:
		return "Something went wrong: " + err.Error()
	}
}

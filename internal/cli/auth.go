package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/services"
)

// Register prompts for name, email and password and creates a user account.
// The new account is logged in right away.
func (a *App) Register(ctx context.Context) error {
	name, err := a.prompt("Enter name")
	if err != nil {
		return err
	}
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := getPassword(a.reader, "Repeat password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(password) != string(confirm) {
		return errors.New("passwords do not match")
	}

	acc, err := a.svc.Auth.Register(ctx, name, email, string(password))
	if err != nil {
		return err
	}
	a.user = acc
	a.printf("Welcome, %s!\n", acc.Name)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	acc, err := a.svc.Auth.Login(ctx, email, string(password))
	if err != nil {
		return err
	}
	a.user = acc
	a.printf("Logged in as %s\n", acc.Name)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.svc.Auth.Logout(ctx); err != nil {
		return err
	}
	a.user = nil
	a.log.Debug(ctx, "logged out")
	a.printf("Logged out\n")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	acc, err := a.current(ctx)
	if err != nil {
		return err
	}
	a.printf("%s <%s> role=%s\n", acc.Name, acc.Email, acc.Role)
	return nil
}

// Profile shows the account details, or edits them with "profile edit".
func (a *App) Profile(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "edit" {
		return a.editProfile(ctx)
	}

	acc, err := a.current(ctx)
	if err != nil {
		return err
	}

	a.printf("Name:     %s\n", acc.Name)
	a.printf("Email:    %s\n", acc.Email)
	a.printf("Phone:    %s\n", acc.Profile.Phone)
	a.printf("Location: %s/%s\n", acc.Profile.City, acc.Profile.State)
	a.printf("Member since %s\n", acc.CreatedAt.Local().Format("02/01/2006"))

	if len(acc.Profile.EnrolledCourses) == 0 {
		a.printf("No courses yet.\n")
		return nil
	}
	a.printf("Enrolled courses:\n")
	for _, id := range acc.Profile.EnrolledCourses {
		title := "(no longer offered)"
		if c, err := a.svc.Catalog.Get(id); err == nil {
			title = c.Title
		}
		a.printf("  %d  %s\n", id, title)
	}
	return nil
}

// editProfile asks for each field; an empty answer keeps the current value.
func (a *App) editProfile(ctx context.Context) error {
	acc, err := a.current(ctx)
	if err != nil {
		return err
	}

	var patch services.AccountPatch
	fields := []struct {
		label   string
		current string
		target  **string
	}{
		{"Name", acc.Name, &patch.Name},
		{"Phone", acc.Profile.Phone, &patch.Phone},
		{"City", acc.Profile.City, &patch.City},
		{"State (2 letters)", acc.Profile.State, &patch.State},
	}
	for _, f := range fields {
		v, err := a.prompt(f.label + " [" + f.current + "]")
		if err != nil {
			return err
		}
		if v = strings.TrimSpace(v); v != "" {
			*f.target = &v
		}
	}

	updated, err := a.svc.Auth.UpdateProfile(ctx, patch)
	if err != nil {
		return err
	}
	a.user = updated
	a.printf("Profile updated\n")
	return nil
}

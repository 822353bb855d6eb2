package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/coursestore/internal/catalog"
	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/models"
)

const timeLayout = "02/01/2006 15:04"

// Admin dispatches the "admin <sub> [args]" family. Authorization is left
// to the admin service; the local role only hides the help text.
func (a *App) Admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn(helpAdmin)
		return nil
	}
	sub, rest := strings.ToLower(args[0]), args[1:]

	switch sub {
	case "stats":
		return a.adminStats(ctx)
	case "users":
		return a.adminUsers(ctx)
	case "sessions":
		return a.adminSessions(ctx)
	case "sales":
		return a.adminSales(ctx)
	case "revoke":
		return a.withArg(rest, "admin revoke <sid>", func(id string) error {
			if err := a.svc.Admin.RevokeSession(ctx, id); err != nil {
				return err
			}
			a.printf("Session %s revoked\n", id)
			return nil
		})
	case "activate", "deactivate":
		active := sub == "activate"
		return a.withArg(rest, "admin "+sub+" <uid>", func(id string) error {
			acc, err := a.svc.Admin.UpdateUser(ctx, id, nil, &active)
			if err != nil {
				return err
			}
			a.printf("%s is now %s\n", acc.Email, statusLabel(acc.IsActive))
			return nil
		})
	case "rename":
		return a.withArg(rest, "admin rename <uid>", func(id string) error {
			name, err := a.prompt("New name")
			if err != nil {
				return err
			}
			acc, err := a.svc.Admin.UpdateUser(ctx, id, &name, nil)
			if err != nil {
				return err
			}
			a.printf("Renamed to %s\n", acc.Name)
			return nil
		})
	case "role":
		if len(rest) < 2 {
			return fmt.Errorf("usage: admin role <uid> user|admin: %w", common.ErrInvalidInput)
		}
		acc, err := a.svc.Admin.SetRole(ctx, rest[0], models.Role(strings.ToLower(rest[1])))
		if err != nil {
			return err
		}
		a.printf("%s is now %s\n", acc.Email, acc.Role)
		return nil
	case "deluser":
		return a.withArg(rest, "admin deluser <uid>", func(id string) error {
			ok, err := getConfirm(a.reader, "Delete user "+id+"?", a.out)
			if err != nil || !ok {
				return err
			}
			if err := a.svc.Admin.DeleteUser(ctx, id); err != nil {
				return err
			}
			a.printf("User %s deleted\n", id)
			return nil
		})
	case "adduser":
		return a.adminAddUser(ctx)
	case "addcourse":
		return a.adminAddCourse(ctx)
	case "editcourse":
		id, err := parseID(rest, "admin editcourse <id>")
		if err != nil {
			return err
		}
		return a.adminEditCourse(ctx, id)
	case "delcourse":
		id, err := parseID(rest, "admin delcourse <id>")
		if err != nil {
			return err
		}
		if err := a.svc.Admin.DeleteCourse(ctx, id); err != nil {
			return err
		}
		a.printf("Course %d deleted\n", id)
		return nil
	default:
		return fmt.Errorf("unknown admin command %q: %w", sub, common.ErrInvalidInput)
	}
}

func (a *App) withArg(args []string, usage string, fn func(string) error) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s: %w", usage, common.ErrInvalidInput)
	}
	return fn(args[0])
}

func statusLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func (a *App) adminStats(ctx context.Context) error {
	st, err := a.svc.Admin.Stats(ctx)
	if err != nil {
		return err
	}
	a.printf("Users:    %d (%d active)\n", st.Users.Total, st.Users.Active)
	a.printf("Courses:  %d\n", st.Courses)
	a.printf("Sessions: %d (%d active)\n", st.Sessions.Total, st.Sessions.Active)
	a.printf("Sales:    %d\n", st.Sales)
	a.printf("Revenue:  %s\n", formatMoney(st.Revenue))
	return nil
}

func (a *App) adminUsers(ctx context.Context) error {
	users, err := a.svc.Admin.Users(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tSTATUS\tCOURSES\tLAST LOGIN")
	for _, u := range users {
		last := "never"
		if u.LastLogin != nil {
			last = u.LastLogin.Local().Format(timeLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			u.ID, u.Name, u.Email, u.Role, statusLabel(u.IsActive), len(u.Profile.EnrolledCourses), last)
	}
	return tw.Flush()
}

func (a *App) adminSessions(ctx context.Context) error {
	sessions, err := a.svc.Admin.Sessions(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tCREATED\tEXPIRES\tSTATUS")
	for _, s := range sessions {
		status := statusLabel(s.IsActive)
		if s.IsActive && s.Expired(now) {
			status = "expired"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.AccountID,
			s.CreatedAt.Local().Format(timeLayout), s.ExpiresAt.Local().Format(timeLayout), status)
	}
	return tw.Flush()
}

func (a *App) adminSales(ctx context.Context) error {
	report, err := a.svc.Admin.SalesReport(ctx)
	if err != nil {
		return err
	}
	if report.Count == 0 {
		a.printf("No sales yet.\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tBUYER\tCOURSES\tMETHOD\tAMOUNT")
	for _, l := range report.Lines {
		buyer := l.BuyerName
		if l.BuyerEmail != "" {
			buyer += " <" + l.BuyerEmail + ">"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.CreatedAt.Local().Format(timeLayout), buyer,
			strings.Join(l.Courses, ", "), l.PaymentMethod, formatMoney(l.Amount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	a.printf("%d sale(s), revenue %s, average ticket %s\n",
		report.Count, formatMoney(report.Revenue), formatMoney(report.AverageTicket))
	return nil
}

func (a *App) adminAddUser(ctx context.Context) error {
	name, err := a.prompt("Name")
	if err != nil {
		return err
	}
	email, err := a.prompt("Email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	role := models.RoleUser
	admin, err := getConfirm(a.reader, "Grant admin role?", a.out)
	if err != nil {
		return err
	}
	if admin {
		role = models.RoleAdmin
	}

	acc, err := a.svc.Admin.CreateUser(ctx, name, email, string(password), role)
	if err != nil {
		return err
	}
	a.printf("Created %s (%s)\n", acc.Email, acc.ID)
	return nil
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a price: %w", s, common.ErrInvalidInput)
	}
	return v, nil
}

func (a *App) adminAddCourse(ctx context.Context) error {
	var in catalog.CourseInput
	var err error

	if in.Title, err = a.prompt("Title"); err != nil {
		return err
	}
	if in.Instructor, err = a.prompt("Instructor"); err != nil {
		return err
	}
	if in.Category, err = a.prompt("Category"); err != nil {
		return err
	}
	price, err := a.prompt("Price")
	if err != nil {
		return err
	}
	if in.Price, err = parsePrice(price); err != nil {
		return err
	}

	c, err := a.svc.Admin.AddCourse(ctx, in)
	if err != nil {
		return err
	}
	a.printf("Course %d added: %s, %s\n", c.ID, c.Title, formatMoney(c.Price))
	return nil
}

// adminEditCourse asks for each field; an empty answer keeps the current value.
func (a *App) adminEditCourse(ctx context.Context, id int) error {
	c, err := a.svc.Catalog.Get(id)
	if err != nil {
		return err
	}

	var patch catalog.CoursePatch
	texts := []struct {
		label   string
		current string
		target  **string
	}{
		{"Title", c.Title, &patch.Title},
		{"Instructor", c.Instructor, &patch.Instructor},
		{"Category", c.Category, &patch.Category},
	}
	for _, f := range texts {
		v, err := a.prompt(f.label + " [" + f.current + "]")
		if err != nil {
			return err
		}
		if v != "" {
			*f.target = &v
		}
	}

	price, err := a.prompt("Price [" + formatMoney(c.Price) + "]")
	if err != nil {
		return err
	}
	if price != "" {
		v, err := parsePrice(price)
		if err != nil {
			return err
		}
		patch.Price = &v
	}

	updated, err := a.svc.Admin.UpdateCourse(ctx, id, patch)
	if err != nil {
		return err
	}
	a.printf("Course %d updated: %s, %s\n", updated.ID, updated.Title, formatMoney(updated.Price))
	return nil
}

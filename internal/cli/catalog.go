package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
)

func (a *App) Courses(ctx context.Context, args []string) error {
	category := strings.Join(args, " ")
	courses := a.svc.Catalog.ByCategory(category)
	if len(courses) == 0 {
		a.printf("No courses in category %q. Categories: all, %s\n", category,
			strings.Join(a.svc.Catalog.Categories(), ", "))
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tINSTRUCTOR\tCATEGORY\tPRICE")
	for _, c := range courses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Title, c.Instructor, c.Category, formatMoney(c.Price))
	}
	return tw.Flush()
}

func (a *App) Course(ctx context.Context, args []string) error {
	id, err := parseID(args, "course <id>")
	if err != nil {
		return err
	}
	c, err := a.svc.Catalog.Get(id)
	if err != nil {
		return err
	}

	a.printf("%s [%s]\n", c.Title, c.Category)
	a.printf("  by %s, %s\n", c.Instructor, c.Duration)
	if c.Description != "" {
		a.printf("  %s\n", c.Description)
	}
	if c.OriginalPrice > c.Price {
		a.printf("  %s (was %s)\n", formatMoney(c.Price), formatMoney(c.OriginalPrice))
	} else {
		a.printf("  %s\n", formatMoney(c.Price))
	}
	if c.Rating > 0 {
		a.printf("  rating %.1f, %d students\n", c.Rating, c.Students)
	}
	for _, f := range c.Features {
		a.printf("  * %s\n", f)
	}

	if a.isLoggedIn() {
		if acc, err := a.current(ctx); err == nil && acc.Profile.IsEnrolled(c.ID) {
			a.printf("You are enrolled in this course.\n")
		}
	}
	return nil
}

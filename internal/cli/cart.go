package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/services"
)

func (a *App) Cart(ctx context.Context) error {
	items, err := a.svc.Cart.Items(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		a.printf("Your cart is empty.\n")
		return nil
	}

	total, err := a.svc.Cart.Total(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", it.CourseID, it.Title, formatMoney(it.Price))
	}
	fmt.Fprintf(tw, "\tTOTAL\t%s\n", formatMoney(total))
	return tw.Flush()
}

func (a *App) Add(ctx context.Context, args []string) error {
	id, err := parseID(args, "add <id>")
	if err != nil {
		return err
	}

	added, err := a.svc.Cart.Add(ctx, id)
	if err != nil {
		return err
	}
	if !added {
		a.printf("Course %d is already in your cart.\n", id)
		return nil
	}
	a.printf("Course %d added to cart.\n", id)
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	id, err := parseID(args, "remove <id>")
	if err != nil {
		return err
	}
	if err := a.svc.Cart.Remove(ctx, id); err != nil {
		return err
	}
	a.printf("Course %d removed from cart.\n", id)
	return nil
}

// Checkout pays for the cart with "pix" or "card".
func (a *App) Checkout(ctx context.Context, args []string) error {
	if _, err := a.current(ctx); err != nil {
		return err
	}

	items, err := a.svc.Cart.Items(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return common.ErrEmptyCart
	}
	total, err := a.svc.Cart.Total(ctx)
	if err != nil {
		return err
	}

	method := ""
	if len(args) > 0 {
		method = strings.ToLower(args[0])
	}

	var payment services.Payment
	switch method {
	case "pix":
		ok, err := getConfirm(a.reader, "Pay "+formatMoney(total)+" with PIX?", a.out)
		if err != nil {
			return err
		}
		payment = services.PixPayment{Confirmed: ok}
	case "card":
		payment, err = a.readCard()
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("usage: checkout pix|card: %w", common.ErrInvalidInput)
	}

	a.printf("Processing payment...\n")
	sale, err := a.svc.Checkout.Checkout(ctx, payment)
	if err != nil {
		return err
	}
	if _, err := a.current(ctx); err != nil {
		return err
	}

	a.printf("Payment approved! Order %s, %s via %s.\n", sale.ID, formatMoney(sale.TotalAmount), sale.PaymentMethod)
	a.printf("You are now enrolled in %d course(s).\n", len(sale.CourseIDs))
	return nil
}

func (a *App) readCard() (services.CardPayment, error) {
	var p services.CardPayment
	var err error

	if p.Holder, err = a.prompt("Card holder name"); err != nil {
		return p, err
	}
	if p.Number, err = a.prompt("Card number"); err != nil {
		return p, err
	}
	if p.Expiry, err = a.prompt("Expiry (MM/YY)"); err != nil {
		return p, err
	}

	cvv, err := getPassword(a.reader, "CVV", a.out)
	if err != nil {
		return p, err
	}
	p.CVV = string(cvv)
	common.WipeByteArray(cvv)
	return p, nil
}

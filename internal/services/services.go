// Package services implements the storefront on top of a kv.Store:
// accounts, sessions, the cart, checkout and the admin console.
//
// All persistent state is kept as JSON documents under a handful of keys
// (see the Key constants). Writes are read-modify-write cycles guarded by
// compare-and-swap, so several processes may share one store.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/coursestore/internal/catalog"
	"github.com/dmitrijs2005/coursestore/internal/config"
	"github.com/dmitrijs2005/coursestore/internal/logging"
	"github.com/dmitrijs2005/coursestore/internal/models"
	"github.com/dmitrijs2005/coursestore/internal/repositories/kv"
)

// Services is the wired set used by the CLI.
type Services struct {
	Catalog  *catalog.Catalog
	Accounts *AccountService
	Sessions *SessionService
	Auth     *AuthService
	Cart     *CartService
	Checkout *CheckoutService
	Admin    *AdminService

	cfg *config.Config
	log logging.Logger
}

func New(store kv.Store, cat *catalog.Catalog, cfg *config.Config, log logging.Logger, opts ...Option) *Services {
	accounts := NewAccountService(store, log, opts...)
	sessions := NewSessionService(store, cfg.SessionTTL, log, opts...)
	auth := NewAuthService(store, accounts, sessions, log)
	cart := NewCartService(store, cat, auth, log, opts...)
	checkout := NewCheckoutService(store, accounts, auth, cart, cfg.PaymentDelay, log, opts...)

	return &Services{
		Catalog:  cat,
		Accounts: accounts,
		Sessions: sessions,
		Auth:     auth,
		Cart:     cart,
		Checkout: checkout,
		Admin:    NewAdminService(accounts, sessions, auth, checkout, cat, log),
		cfg:      cfg,
		log:      log,
	}
}

// Bootstrap prepares the store for use: it makes sure the operator account
// exists, finishes any interrupted checkout and restores the stored login.
// It returns the logged-in account or nil.
func (s *Services) Bootstrap(ctx context.Context) (*models.PublicAccount, error) {
	if s.cfg.AdminEmail != "" {
		if _, err := s.Accounts.EnsureAdmin(ctx, s.cfg.AdminName, s.cfg.AdminEmail, s.cfg.AdminPassword); err != nil {
			return nil, fmt.Errorf("failed to provision operator account: %w", err)
		}
	}
	if err := s.Checkout.Resume(ctx); err != nil {
		return nil, fmt.Errorf("failed to resume checkout: %w", err)
	}
	return s.Auth.Restore(ctx)
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/logging"
	"github.com/dmitrijs2005/coursestore/internal/models"
	"github.com/dmitrijs2005/coursestore/internal/repositories/kv"
	"github.com/dmitrijs2005/coursestore/internal/repositories/records"
	"github.com/google/uuid"
)

// A journal younger than the payment delay plus this margin is assumed to
// belong to a checkout that is still running somewhere.
const checkoutGrace = 30 * time.Second

// CheckoutService turns the cart into a sale.
//
// A checkout first writes a "pendingCheckout" journal holding the complete
// sale, waits for the simulated payment, then commits the sale, the
// enrollment, the cart cleanup and the journal removal. Every commit step
// is idempotent, so a journal left by a crash can simply be committed
// again by Resume.
type CheckoutService struct {
	store    kv.Store
	sales    *records.Collection[models.Sale]
	accounts *AccountService
	auth     *AuthService
	cart     *CartService
	delay    time.Duration
	log      logging.Logger
	now      func() time.Time
	recOpts  []records.Option
}

func NewCheckoutService(store kv.Store, accounts *AccountService, auth *AuthService, cart *CartService,
	delay time.Duration, log logging.Logger, opts ...Option) *CheckoutService {
	o := buildOptions(opts)
	log = log.With("module", "checkout")
	recOpts := append([]records.Option{records.WithLogger(log)}, o.recordOpts...)
	return &CheckoutService{
		store:    store,
		sales:    records.New[models.Sale](store, KeySales, recOpts...),
		accounts: accounts,
		auth:     auth,
		cart:     cart,
		delay:    delay,
		log:      log,
		now:      o.now,
		recOpts:  recOpts,
	}
}

// Checkout charges the cart of the logged-in account with p.
func (s *CheckoutService) Checkout(ctx context.Context, p Payment) (*models.Sale, error) {
	if err := s.resume(ctx, false); err != nil {
		return nil, err
	}

	acc, err := s.auth.CurrentAccount(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.cart.Items(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, common.ErrEmptyCart
	}

	if p == nil {
		return nil, fmt.Errorf("payment is required: %w", common.ErrInvalidInput)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	courseIDs := make([]int, len(items))
	for i, it := range items {
		courseIDs[i] = it.CourseID
	}

	now := s.now().UTC()
	pending := models.PendingCheckout{
		Sale: models.Sale{
			ID:            "sale_" + uuid.NewString(),
			AccountID:     acc.ID,
			CourseIDs:     courseIDs,
			TotalAmount:   sumPrices(items),
			PaymentMethod: p.Method(),
			Status:        models.SaleCompleted,
			CreatedAt:     now,
		},
		StartedAt: now,
	}

	journal, err := json.Marshal(pending)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkout journal: %w", err)
	}
	err = s.store.CompareAndSwap(ctx, KeyPendingCheckout, nil, journal)
	if errors.Is(err, common.ErrVersionConflict) {
		return nil, common.ErrCheckoutInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write checkout journal: %w", err)
	}

	s.log.Info(ctx, "checkout started", "sale_id", pending.Sale.ID, "method", p.Method())

	if err := s.wait(ctx); err != nil {
		s.abandon(context.WithoutCancel(ctx), journal)
		return nil, err
	}

	if err := s.commit(ctx, pending); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "checkout completed", "sale_id", pending.Sale.ID, "total", pending.Sale.TotalAmount)
	return &pending.Sale, nil
}

func (s *CheckoutService) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// abandon removes the journal of a cancelled checkout, unless it has
// already been replaced or committed.
func (s *CheckoutService) abandon(ctx context.Context, journal []byte) {
	err := s.store.CompareAndSwap(ctx, KeyPendingCheckout, journal, nil)
	if err != nil && !errors.Is(err, common.ErrVersionConflict) {
		s.log.Error(ctx, "failed to remove checkout journal", "error", err)
		return
	}
	s.log.Info(ctx, "checkout cancelled")
}

// Resume commits a checkout journal left behind by an interrupted run.
func (s *CheckoutService) Resume(ctx context.Context) error {
	return s.resume(ctx, true)
}

func (s *CheckoutService) resume(ctx context.Context, force bool) error {
	raw, err := s.store.Get(ctx, KeyPendingCheckout)
	if err != nil {
		return fmt.Errorf("failed to read checkout journal: %w", err)
	}
	if raw == nil {
		return nil
	}

	var pending models.PendingCheckout
	if err := json.Unmarshal(raw, &pending); err != nil || pending.Sale.ID == "" {
		s.log.Warn(ctx, "discarding unreadable checkout journal", "error", err)
		err := s.store.CompareAndSwap(ctx, KeyPendingCheckout, raw, nil)
		if err != nil && !errors.Is(err, common.ErrVersionConflict) {
			return err
		}
		return nil
	}

	if !force && s.now().Before(pending.StartedAt.Add(s.delay+checkoutGrace)) {
		return common.ErrCheckoutInProgress
	}

	s.log.Info(ctx, "resuming interrupted checkout", "sale_id", pending.Sale.ID)
	return s.commit(ctx, pending)
}

func (s *CheckoutService) commit(ctx context.Context, pending models.PendingCheckout) error {
	sale := pending.Sale

	planSale := records.PlanFor(s.sales, func(all []models.Sale) ([]models.Sale, error) {
		if slices.ContainsFunc(all, func(x models.Sale) bool { return x.ID == sale.ID }) {
			return all, nil
		}
		return append(all, sale), nil
	})

	planJournal := func(ctx context.Context) (kv.Swap, error) {
		raw, err := s.store.Get(ctx, KeyPendingCheckout)
		if err != nil {
			return kv.Swap{}, err
		}
		if raw == nil {
			return kv.Swap{Key: KeyPendingCheckout}, nil
		}
		var cur models.PendingCheckout
		if err := json.Unmarshal(raw, &cur); err == nil && cur.Sale.ID != sale.ID {
			// a newer checkout owns the journal now
			return kv.Swap{Key: KeyPendingCheckout, Expected: raw, Value: bytes.Clone(raw)}, nil
		}
		return kv.Swap{Key: KeyPendingCheckout, Expected: raw}, nil
	}

	planners := []records.Planner{
		planSale,
		s.accounts.planEnroll(sale.AccountID, sale.CourseIDs),
		s.cart.planRemove(sale.CourseIDs),
		planJournal,
	}
	if err := records.Commit(ctx, s.store, planners, s.recOpts...); err != nil {
		return fmt.Errorf("failed to commit sale %s: %w", sale.ID, err)
	}
	return nil
}

// Sales returns the append-only sales log.
func (s *CheckoutService) Sales(ctx context.Context) ([]models.Sale, error) {
	return s.sales.List(ctx)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/dmitrijs2005/coursestore/internal/catalog"
	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/logging"
	"github.com/dmitrijs2005/coursestore/internal/models"
	"github.com/dmitrijs2005/coursestore/internal/repositories/kv"
	"github.com/dmitrijs2005/coursestore/internal/repositories/records"
)

// CartService keeps the course references under the "cart" key.
type CartService struct {
	items   *records.Collection[models.CartItem]
	catalog *catalog.Catalog
	auth    *AuthService
	log     logging.Logger
}

func NewCartService(store kv.Store, cat *catalog.Catalog, auth *AuthService, log logging.Logger, opts ...Option) *CartService {
	o := buildOptions(opts)
	log = log.With("module", "cart")
	return &CartService{
		items:   records.New[models.CartItem](store, KeyCart, append([]records.Option{records.WithLogger(log)}, o.recordOpts...)...),
		catalog: cat,
		auth:    auth,
		log:     log,
	}
}

// Add puts a course in the cart. It reports false when the course was
// already there.
func (s *CartService) Add(ctx context.Context, courseID int) (bool, error) {
	if _, err := s.auth.CurrentAccount(ctx); err != nil {
		return false, err
	}

	course, err := s.catalog.Get(courseID)
	if err != nil {
		return false, err
	}

	err = s.items.Insert(ctx, models.CartItemFor(course), nil)
	if errors.Is(err, common.ErrDuplicateKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.log.Debug(ctx, "course added to cart", "course_id", courseID)
	return true, nil
}

func (s *CartService) Remove(ctx context.Context, courseID int) error {
	if err := s.items.Delete(ctx, strconv.Itoa(courseID)); err != nil {
		return fmt.Errorf("course %d is not in the cart: %w", courseID, err)
	}
	return nil
}

func (s *CartService) Items(ctx context.Context) ([]models.CartItem, error) {
	return s.items.List(ctx)
}

// Total sums item prices in cents.
func (s *CartService) Total(ctx context.Context) (float64, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return 0, err
	}
	return sumPrices(items), nil
}

func sumPrices(items []models.CartItem) float64 {
	var cents int64
	for _, it := range items {
		cents += models.Cents(it.Price)
	}
	return models.FromCents(cents)
}

func (s *CartService) Clear(ctx context.Context) error {
	return s.items.Mutate(ctx, func([]models.CartItem) ([]models.CartItem, error) {
		return []models.CartItem{}, nil
	})
}

// planRemove drops exactly courseIDs; anything added meanwhile stays.
func (s *CartService) planRemove(courseIDs []int) records.Planner {
	return records.PlanFor(s.items, func(all []models.CartItem) ([]models.CartItem, error) {
		return slices.DeleteFunc(all, func(it models.CartItem) bool {
			return slices.Contains(courseIDs, it.CourseID)
		}), nil
	})
}

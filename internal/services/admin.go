package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/coursestore/internal/catalog"
	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/logging"
	"github.com/dmitrijs2005/coursestore/internal/models"
)

type DashboardStats struct {
	Users    AccountStats
	Courses  int
	Sessions SessionStats
	Sales    int
	Revenue  float64
}

type SaleLine struct {
	SaleID        string
	BuyerName     string
	BuyerEmail    string
	Courses       []string
	Amount        float64
	PaymentMethod models.PaymentMethod
	CreatedAt     time.Time
}

type SalesReport struct {
	Lines         []SaleLine
	Count         int
	Revenue       float64
	AverageTicket float64
}

// AdminService exposes the operator console. Every call checks that the
// logged-in account has the admin role.
type AdminService struct {
	accounts *AccountService
	sessions *SessionService
	auth     *AuthService
	checkout *CheckoutService
	catalog  *catalog.Catalog
	log      logging.Logger
}

func NewAdminService(accounts *AccountService, sessions *SessionService, auth *AuthService,
	checkout *CheckoutService, cat *catalog.Catalog, log logging.Logger) *AdminService {
	return &AdminService{
		accounts: accounts,
		sessions: sessions,
		auth:     auth,
		checkout: checkout,
		catalog:  cat,
		log:      log.With("module", "admin"),
	}
}

func (s *AdminService) requireAdmin(ctx context.Context) (*models.PublicAccount, error) {
	acc, err := s.auth.CurrentAccount(ctx)
	if err != nil {
		return nil, err
	}
	if !acc.IsAdmin() {
		return nil, common.ErrForbidden
	}
	return acc, nil
}

func (s *AdminService) Stats(ctx context.Context) (*DashboardStats, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.accounts.Stats(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.Stats(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.checkout.Sales(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		Users:    users,
		Courses:  s.catalog.Len(),
		Sessions: sessions,
		Sales:    len(sales),
		Revenue:  revenue(sales),
	}, nil
}

func revenue(sales []models.Sale) float64 {
	var cents int64
	for _, sale := range sales {
		cents += models.Cents(sale.TotalAmount)
	}
	return models.FromCents(cents)
}

func (s *AdminService) Users(ctx context.Context) ([]models.PublicAccount, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.accounts.List(ctx)
}

func (s *AdminService) CreateUser(ctx context.Context, name, email, password string, role models.Role) (*models.PublicAccount, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.accounts.Provision(ctx, name, email, password, role)
}

// UpdateUser renames the account when name is non-nil and changes its
// status when active is non-nil. Deactivating revokes the user's sessions.
func (s *AdminService) UpdateUser(ctx context.Context, id string, name *string, active *bool) (*models.PublicAccount, error) {
	me, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil && !*active && id == me.ID {
		return nil, fmt.Errorf("cannot deactivate your own account: %w", common.ErrForbidden)
	}

	var acc *models.PublicAccount
	if name != nil {
		if acc, err = s.accounts.Rename(ctx, id, *name); err != nil {
			return nil, err
		}
	}
	if active != nil {
		if acc, err = s.accounts.SetActive(ctx, id, *active); err != nil {
			return nil, err
		}
		if !*active {
			if _, err := s.sessions.RevokeAccount(ctx, id); err != nil {
				return nil, err
			}
		}
	}
	if acc == nil {
		return s.accounts.Get(ctx, id)
	}
	return acc, nil
}

func (s *AdminService) SetRole(ctx context.Context, id string, role models.Role) (*models.PublicAccount, error) {
	me, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if id == me.ID && role != models.RoleAdmin {
		return nil, fmt.Errorf("cannot drop your own admin role: %w", common.ErrForbidden)
	}
	return s.accounts.SetRole(ctx, id, role)
}

func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	me, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}
	if id == me.ID {
		return fmt.Errorf("cannot delete your own account: %w", common.ErrForbidden)
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}
	_, err = s.sessions.RevokeAccount(ctx, id)
	return err
}

func (s *AdminService) Sessions(ctx context.Context) ([]models.Session, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.sessions.List(ctx)
}

func (s *AdminService) RevokeSession(ctx context.Context, id string) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, id)
}

func (s *AdminService) AddCourse(ctx context.Context, in catalog.CourseInput) (models.Course, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return models.Course{}, err
	}
	course, err := s.catalog.Add(in)
	if err != nil {
		return models.Course{}, err
	}
	s.log.Info(ctx, "course added", "course_id", course.ID)
	return course, nil
}

func (s *AdminService) UpdateCourse(ctx context.Context, id int, patch catalog.CoursePatch) (models.Course, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return models.Course{}, err
	}
	return s.catalog.Update(id, patch)
}

func (s *AdminService) DeleteCourse(ctx context.Context, id int) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.catalog.Delete(id); err != nil {
		return err
	}
	s.log.Info(ctx, "course deleted", "course_id", id)
	return nil
}

// SalesReport joins the sales log with accounts and the catalog. Buyers or
// courses that no longer exist are still reported.
func (s *AdminService) SalesReport(ctx context.Context) (*SalesReport, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	sales, err := s.checkout.Sales(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.PublicAccount, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	report := &SalesReport{
		Lines:   make([]SaleLine, 0, len(sales)),
		Count:   len(sales),
		Revenue: revenue(sales),
	}
	for _, sale := range sales {
		line := SaleLine{
			SaleID:        sale.ID,
			BuyerName:     "(removed)",
			Amount:        sale.TotalAmount,
			PaymentMethod: sale.PaymentMethod,
			CreatedAt:     sale.CreatedAt,
		}
		if a, ok := byID[sale.AccountID]; ok {
			line.BuyerName, line.BuyerEmail = a.Name, a.Email
		}
		for _, id := range sale.CourseIDs {
			c, err := s.catalog.Get(id)
			switch {
			case errors.Is(err, common.ErrorNotFound):
				line.Courses = append(line.Courses, "#"+strconv.Itoa(id))
			case err != nil:
				return nil, err
			default:
				line.Courses = append(line.Courses, c.Title)
			}
		}
		report.Lines = append(report.Lines, line)
	}
	if report.Count > 0 {
		report.AverageTicket = models.FromCents(models.Cents(report.Revenue) / int64(report.Count))
	}
	return report, nil
}

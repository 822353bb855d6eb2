package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/cryptox"
	"github.com/dmitrijs2005/coursestore/internal/logging"
	"github.com/dmitrijs2005/coursestore/internal/models"
	"github.com/dmitrijs2005/coursestore/internal/repositories/kv"
	"github.com/dmitrijs2005/coursestore/internal/repositories/records"
	"github.com/google/uuid"
)

const (
	minNameLen     = 2
	minPasswordLen = 6
	stateLen       = 2

	defaultCity  = "Brasília"
	defaultState = "DF"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AccountPatch lists the fields a user may change on their own account.
// Nil fields are left alone.
type AccountPatch struct {
	Name  *string
	Phone *string
	City  *string
	State *string
}

type AccountStats struct {
	Total  int
	Active int
}

// AccountService manages the "users" collection: registration, credential
// checks, profile edits and the administrative operations on accounts.
type AccountService struct {
	users *records.Collection[models.Account]
	log   logging.Logger
	now   func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAccountService(store kv.Store, log logging.Logger, opts ...Option) *AccountService {
	o := buildOptions(opts)
	log = log.With("module", "accounts")
	return &AccountService{
		users: records.New[models.Account](store, KeyUsers, append([]records.Option{records.WithLogger(log)}, o.recordOpts...)...),
		log:   log,
		now:   o.now,
	}
}

// Sanitize strips credentials from a.
func Sanitize(a models.Account) models.PublicAccount {
	return models.PublicAccount{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
		LastLogin: a.LastLogin,
		Profile:   a.Profile,
	}
}

func sanitized(a models.Account) *models.PublicAccount {
	p := Sanitize(a)
	return &p
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) < minNameLen {
		return fmt.Errorf("name must have at least %d characters: %w", minNameLen, common.ErrInvalidInput)
	}
	return nil
}

func validateRegistration(name, email, password string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("email %q is not valid: %w", email, common.ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return fmt.Errorf("password must have at least %d characters: %w", minPasswordLen, common.ErrInvalidInput)
	}
	return nil
}

func emailTaken(email string) func([]models.Account) error {
	return func(existing []models.Account) error {
		for _, a := range existing {
			if NormalizeEmail(a.Email) == email {
				return common.ErrEmailTaken
			}
		}
		return nil
	}
}

// Create registers a regular user.
func (s *AccountService) Create(ctx context.Context, name, email, password string) (*models.PublicAccount, error) {
	return s.Provision(ctx, name, email, password, models.RoleUser)
}

// Provision creates an account with an explicit role. It is the only way
// an admin account comes into existence.
func (s *AccountService) Provision(ctx context.Context, name, email, password string, role models.Role) (*models.PublicAccount, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, fmt.Errorf("unknown role %q: %w", role, common.ErrInvalidInput)
	}

	digest, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acc := models.Account{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Password:  digest,
		Role:      role,
		IsActive:  true,
		CreatedAt: s.now().UTC(),
		Profile: models.Profile{
			City:             defaultCity,
			State:            defaultState,
			EnrolledCourses:  []int{},
			CompletedCourses: []int{},
			FavoriteTopics:   []string{},
		},
	}

	if err := s.users.Insert(ctx, acc, emailTaken(email)); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "account created", "account_id", acc.ID, "role", role)
	return sanitized(acc), nil
}

func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = cryptox.HashPassword("not-a-real-password")
	})
	return s.dummyDigest
}

// Authenticate checks credentials and records the login time. Unknown
// email, inactive account and wrong password all yield
// common.ErrAuthFailure.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.PublicAccount, error) {
	email = NormalizeEmail(email)

	acc, err := s.users.Find(ctx, func(a models.Account) bool { return NormalizeEmail(a.Email) == email })
	if errors.Is(err, common.ErrorNotFound) {
		// Same work as a real check.
		_, _ = cryptox.VerifyPassword(password, s.dummy())
		return nil, common.ErrAuthFailure
	}
	if err != nil {
		return nil, err
	}

	ok, err := cryptox.VerifyPassword(password, acc.Password)
	if err != nil {
		s.log.Error(ctx, "stored digest unreadable", "account_id", acc.ID, "error", err)
		return nil, common.ErrAuthFailure
	}
	if !ok || !acc.IsActive {
		return nil, common.ErrAuthFailure
	}

	now := s.now().UTC()
	acc, err = s.users.Update(ctx, acc.ID, func(a *models.Account) error {
		a.LastLogin = &now
		return nil
	})
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrAuthFailure
	}
	if err != nil {
		return nil, err
	}

	return sanitized(acc), nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.PublicAccount, error) {
	acc, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitized(acc), nil
}

func (s *AccountService) List(ctx context.Context) ([]models.PublicAccount, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicAccount, len(all))
	for i, a := range all {
		out[i] = Sanitize(a)
	}
	return out, nil
}

// Update edits name and contact fields. Email and password cannot be
// changed here.
func (s *AccountService) Update(ctx context.Context, id string, patch AccountPatch) (*models.PublicAccount, error) {
	var name, phone, city, state *string
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	name, phone, city, state = trim(patch.Name), trim(patch.Phone), trim(patch.City), trim(patch.State)

	if name != nil {
		if err := validateName(*name); err != nil {
			return nil, err
		}
	}
	if state != nil && *state != "" {
		upper := strings.ToUpper(*state)
		if utf8.RuneCountInString(upper) != stateLen {
			return nil, fmt.Errorf("state must have exactly %d characters: %w", stateLen, common.ErrInvalidInput)
		}
		state = &upper
	}

	now := s.now().UTC()
	acc, err := s.users.Update(ctx, id, func(a *models.Account) error {
		if name != nil {
			a.Name = *name
		}
		if phone != nil {
			a.Profile.Phone = *phone
		}
		if city != nil {
			a.Profile.City = *city
		}
		if state != nil {
			a.Profile.State = *state
		}
		a.UpdatedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sanitized(acc), nil
}

func (s *AccountService) Rename(ctx context.Context, id, name string) (*models.PublicAccount, error) {
	return s.Update(ctx, id, AccountPatch{Name: &name})
}

func enroll(a *models.Account, courseIDs []int) {
	for _, id := range courseIDs {
		if !a.Profile.IsEnrolled(id) {
			a.Profile.EnrolledCourses = append(a.Profile.EnrolledCourses, id)
		}
	}
}

// Enroll adds course ids to the enrolled list, skipping ones already there.
func (s *AccountService) Enroll(ctx context.Context, id string, courseIDs []int) (*models.PublicAccount, error) {
	now := s.now().UTC()
	acc, err := s.users.Update(ctx, id, func(a *models.Account) error {
		enroll(a, courseIDs)
		a.UpdatedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sanitized(acc), nil
}

// planEnroll is Enroll as a records.Planner for multi-key commits. A missing
// account is skipped rather than failing the whole commit.
func (s *AccountService) planEnroll(id string, courseIDs []int) records.Planner {
	return records.PlanFor(s.users, func(all []models.Account) ([]models.Account, error) {
		now := s.now().UTC()
		for i := range all {
			if all[i].ID == id {
				enroll(&all[i], courseIDs)
				all[i].UpdatedAt = &now
			}
		}
		return all, nil
	})
}

func (s *AccountService) SetActive(ctx context.Context, id string, active bool) (*models.PublicAccount, error) {
	now := s.now().UTC()
	acc, err := s.users.Update(ctx, id, func(a *models.Account) error {
		a.IsActive = active
		a.UpdatedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "account status changed", "account_id", id, "active", active)
	return sanitized(acc), nil
}

func (s *AccountService) SetRole(ctx context.Context, id string, role models.Role) (*models.PublicAccount, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, fmt.Errorf("unknown role %q: %w", role, common.ErrInvalidInput)
	}
	now := s.now().UTC()
	acc, err := s.users.Update(ctx, id, func(a *models.Account) error {
		a.Role = role
		a.UpdatedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "account role changed", "account_id", id, "role", role)
	return sanitized(acc), nil
}

func (s *AccountService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "account deleted", "account_id", id)
	return nil
}

// EnsureAdmin creates the operator account with the admin role when no
// account uses that email. An existing account is returned untouched, so
// role or status changes made from the admin console survive restarts.
func (s *AccountService) EnsureAdmin(ctx context.Context, name, email, password string) (*models.PublicAccount, error) {
	email = NormalizeEmail(email)

	acc, err := s.users.Find(ctx, func(a models.Account) bool { return NormalizeEmail(a.Email) == email })
	switch {
	case errors.Is(err, common.ErrorNotFound):
		created, err := s.Provision(ctx, name, email, password, models.RoleAdmin)
		if errors.Is(err, common.ErrEmailTaken) {
			// another process won the race
			return s.EnsureAdmin(ctx, name, email, password)
		}
		return created, err
	case err != nil:
		return nil, err
	}
	return sanitized(acc), nil
}

func (s *AccountService) Stats(ctx context.Context) (AccountStats, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return AccountStats{}, err
	}
	st := AccountStats{Total: len(all)}
	for _, a := range all {
		if a.IsActive {
			st.Active++
		}
	}
	return st, nil
}

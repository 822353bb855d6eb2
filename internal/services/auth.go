package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/logging"
	"github.com/dmitrijs2005/coursestore/internal/models"
	"github.com/dmitrijs2005/coursestore/internal/repositories/kv"
)

// AuthService ties accounts to the session of this client. It also
// maintains the "currentUser" snapshot, which is a display cache only:
// every privileged decision goes back to the account record.
type AuthService struct {
	store    kv.Store
	accounts *AccountService
	sessions *SessionService
	log      logging.Logger
}

func NewAuthService(store kv.Store, accounts *AccountService, sessions *SessionService, log logging.Logger) *AuthService {
	return &AuthService{
		store:    store,
		accounts: accounts,
		sessions: sessions,
		log:      log.With("module", "auth"),
	}
}

func (s *AuthService) cache(ctx context.Context, acc *models.PublicAccount) error {
	data, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("failed to encode current user: %w", err)
	}
	if err := s.store.Set(ctx, KeyCurrentUser, data); err != nil {
		return fmt.Errorf("failed to write current user: %w", err)
	}
	return nil
}

func (s *AuthService) dropCache(ctx context.Context) error {
	if err := s.store.Delete(ctx, KeyCurrentUser); err != nil {
		return fmt.Errorf("failed to remove current user: %w", err)
	}
	return nil
}

func (s *AuthService) start(ctx context.Context, acc *models.PublicAccount) (*models.PublicAccount, error) {
	if _, err := s.sessions.Open(ctx, acc.ID); err != nil {
		return nil, err
	}
	if err := s.cache(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Register creates a user account and logs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.PublicAccount, error) {
	acc, err := s.accounts.Create(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, acc)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.PublicAccount, error) {
	acc, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrAuthFailure) {
			s.log.Info(ctx, "login rejected")
		}
		return nil, err
	}
	return s.start(ctx, acc)
}

// Logout revokes the current session, if any, and forgets the cached user.
func (s *AuthService) Logout(ctx context.Context) error {
	sess, err := s.sessions.Current(ctx)
	switch {
	case errors.Is(err, common.ErrNoSession):
	case err != nil:
		return err
	default:
		if err := s.sessions.Revoke(ctx, sess.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
	}
	return s.dropCache(ctx)
}

// CurrentAccount returns the logged-in account, read fresh from the
// accounts collection. A session whose account has been removed or
// deactivated is revoked.
func (s *AuthService) CurrentAccount(ctx context.Context) (*models.PublicAccount, error) {
	sess, err := s.sessions.Current(ctx)
	if errors.Is(err, common.ErrNoSession) {
		if err := s.dropCache(ctx); err != nil {
			return nil, err
		}
		return nil, common.ErrorUnauthorized
	}
	if err != nil {
		return nil, err
	}

	acc, err := s.accounts.Get(ctx, sess.AccountID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if err == nil && acc.IsActive {
		return acc, nil
	}

	s.log.Info(ctx, "session owner gone, logging out", "session_id", sess.ID, "account_id", sess.AccountID)
	if err := s.Logout(ctx); err != nil {
		return nil, err
	}
	return nil, common.ErrorUnauthorized
}

// Restore is called on startup. It returns the logged-in account with a
// refreshed cache, or nil when nobody is logged in.
func (s *AuthService) Restore(ctx context.Context) (*models.PublicAccount, error) {
	acc, err := s.CurrentAccount(ctx)
	if errors.Is(err, common.ErrorUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.cache(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Cached returns the snapshot written at login, without validating it.
func (s *AuthService) Cached(ctx context.Context) (*models.PublicAccount, error) {
	raw, err := s.store.Get(ctx, KeyCurrentUser)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, common.ErrorNotFound
	}
	var acc models.PublicAccount
	if err := json.Unmarshal(raw, &acc); err != nil {
		return nil, fmt.Errorf("failed to decode current user: %w", err)
	}
	return &acc, nil
}

// UpdateProfile applies patch to the logged-in account.
func (s *AuthService) UpdateProfile(ctx context.Context, patch AccountPatch) (*models.PublicAccount, error) {
	cur, err := s.CurrentAccount(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.Update(ctx, cur.ID, patch)
	if err != nil {
		return nil, err
	}
	if err := s.cache(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

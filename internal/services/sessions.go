package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/dmitrijs2005/coursestore/internal/logging"
	"github.com/dmitrijs2005/coursestore/internal/models"
	"github.com/dmitrijs2005/coursestore/internal/repositories/kv"
	"github.com/dmitrijs2005/coursestore/internal/repositories/records"
)

const sessionIDBytes = 16

type SessionStats struct {
	Total  int
	Active int
}

// SessionService keeps the "userSessions" collection and the
// "currentSession" pointer of this client.
type SessionService struct {
	store    kv.Store
	sessions *records.Collection[models.Session]
	ttl      time.Duration
	log      logging.Logger
	now      func() time.Time
	recOpts  []records.Option
}

func NewSessionService(store kv.Store, ttl time.Duration, log logging.Logger, opts ...Option) *SessionService {
	o := buildOptions(opts)
	log = log.With("module", "sessions")
	recOpts := append([]records.Option{records.WithLogger(log)}, o.recordOpts...)
	return &SessionService{
		store:    store,
		sessions: records.New[models.Session](store, KeySessions, recOpts...),
		ttl:      ttl,
		log:      log,
		now:      o.now,
		recOpts:  recOpts,
	}
}

func (s *SessionService) pointer(ctx context.Context) (string, []byte, error) {
	raw, err := s.store.Get(ctx, KeyCurrentSession)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read current session: %w", err)
	}
	if raw == nil {
		return "", nil, nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		// garbage in the pointer is treated as no session
		s.log.Warn(ctx, "current session pointer unreadable", "error", err)
		return "", raw, nil
	}
	return id, raw, nil
}

// clearPointer removes the pointer if it still names id. Losing the race
// to another writer is fine: whoever won already moved the pointer.
func (s *SessionService) clearPointer(ctx context.Context, id string) error {
	cur, raw, err := s.pointer(ctx)
	if err != nil {
		return err
	}
	if raw == nil || (cur != "" && cur != id) {
		return nil
	}
	err = s.store.CompareAndSwap(ctx, KeyCurrentSession, raw, nil)
	if errors.Is(err, common.ErrVersionConflict) {
		return nil
	}
	return err
}

// Open starts a session for accountID and makes it current. The session
// this client held before is deactivated in the same commit; the browser
// version left it active. Sessions of other clients are not touched.
func (s *SessionService) Open(ctx context.Context, accountID string) (*models.Session, error) {
	sid, err := common.MakeRandHexString(sessionIDBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := s.now().UTC()
	sess := models.Session{
		ID:        "sess_" + sid,
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		IsActive:  true,
	}

	value, err := json.Marshal(sess.ID)
	if err != nil {
		return nil, err
	}

	var previous string
	planPointer := func(ctx context.Context) (kv.Swap, error) {
		cur, raw, err := s.pointer(ctx)
		if err != nil {
			return kv.Swap{}, err
		}
		previous = cur
		return kv.Swap{Key: KeyCurrentSession, Expected: raw, Value: value}, nil
	}
	planSessions := records.PlanFor(s.sessions, func(all []models.Session) ([]models.Session, error) {
		for i := range all {
			if previous != "" && all[i].ID == previous && all[i].IsActive {
				all[i].IsActive = false
				all[i].DeactivatedAt = &now
			}
		}
		return append(all, sess), nil
	})

	// pointer first: planSessions depends on previous
	if err := records.Commit(ctx, s.store, []records.Planner{planPointer, planSessions}, s.recOpts...); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "session opened", "session_id", sess.ID, "account_id", accountID)
	return &sess, nil
}

// Current resolves the pointer. An expired session still flagged active is
// deactivated on the way out.
func (s *SessionService) Current(ctx context.Context) (*models.Session, error) {
	id, raw, err := s.pointer(ctx)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, common.ErrNoSession
	}
	if id == "" {
		if err := s.clearPointer(ctx, ""); err != nil {
			return nil, err
		}
		return nil, common.ErrNoSession
	}

	sess, err := s.sessions.FindByID(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		if err := s.clearPointer(ctx, id); err != nil {
			return nil, err
		}
		return nil, common.ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if sess.Usable(now) {
		return &sess, nil
	}

	if sess.IsActive {
		_, err := s.sessions.Update(ctx, id, func(ss *models.Session) error {
			if ss.IsActive {
				ss.IsActive = false
				ss.DeactivatedAt = &now
			}
			return nil
		})
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		s.log.Info(ctx, "session expired", "session_id", id)
	}
	if err := s.clearPointer(ctx, id); err != nil {
		return nil, err
	}
	return nil, common.ErrNoSession
}

// Revoke deactivates a session. Revoking an inactive session is a no-op.
func (s *SessionService) Revoke(ctx context.Context, id string) error {
	now := s.now().UTC()
	_, err := s.sessions.Update(ctx, id, func(ss *models.Session) error {
		if ss.IsActive {
			ss.IsActive = false
			ss.DeactivatedAt = &now
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.clearPointer(ctx, id); err != nil {
		return err
	}

	s.log.Info(ctx, "session revoked", "session_id", id)
	return nil
}

// RevokeAccount deactivates every active session owned by accountID and
// returns how many were changed.
func (s *SessionService) RevokeAccount(ctx context.Context, accountID string) (int, error) {
	now := s.now().UTC()
	var revoked []string
	err := s.sessions.Mutate(ctx, func(all []models.Session) ([]models.Session, error) {
		revoked = revoked[:0]
		for i := range all {
			if all[i].AccountID == accountID && all[i].IsActive {
				all[i].IsActive = false
				all[i].DeactivatedAt = &now
				revoked = append(revoked, all[i].ID)
			}
		}
		return all, nil
	})
	if err != nil {
		return 0, err
	}

	cur, _, err := s.pointer(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range revoked {
		if id == cur {
			if err := s.clearPointer(ctx, id); err != nil {
				return 0, err
			}
		}
	}

	if len(revoked) > 0 {
		s.log.Info(ctx, "account sessions revoked", "account_id", accountID, "count", len(revoked))
	}
	return len(revoked), nil
}

func (s *SessionService) List(ctx context.Context) ([]models.Session, error) {
	return s.sessions.List(ctx)
}

func (s *SessionService) Stats(ctx context.Context) (SessionStats, error) {
	all, err := s.sessions.List(ctx)
	if err != nil {
		return SessionStats{}, err
	}
	now := s.now().UTC()
	st := SessionStats{Total: len(all)}
	for _, ss := range all {
		if ss.Usable(now) {
			st.Active++
		}
	}
	return st, nil
}

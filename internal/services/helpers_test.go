package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmitrijs2005/coursestore/internal/catalog"
	"github.com/dmitrijs2005/coursestore/internal/config"
	"github.com/dmitrijs2005/coursestore/internal/logging"
	"github.com/dmitrijs2005/coursestore/internal/models"
	"github.com/dmitrijs2005/coursestore/internal/repositories/kv"
	"github.com/dmitrijs2005/coursestore/internal/repositories/records"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 1000)
}

type env struct {
	store *kv.MemoryStore
	clock *fakeClock
	cfg   *config.Config
	svc   *Services
}

func newEnv(t *testing.T) *env {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PaymentDelay = 0
	cfg.AdminEmail = "admin@gf.com"
	cfg.AdminPassword = "admin123456"

	cat, err := catalog.Load("")
	require.NoError(t, err)

	store := kv.NewMemoryStore()
	clock := newFakeClock()
	svc := New(store, cat, cfg, logging.NewNop(),
		WithClock(clock.Now),
		WithRecordOptions(records.WithBackOff(fastBackOff)))

	return &env{store: store, clock: clock, cfg: cfg, svc: svc}
}

func (e *env) register(t *testing.T, name, email string) *models.PublicAccount {
	t.Helper()
	acc, err := e.svc.Auth.Register(context.Background(), name, email, "secret123")
	require.NoError(t, err)
	return acc
}

func (e *env) loginAdmin(t *testing.T) *models.PublicAccount {
	t.Helper()
	ctx := context.Background()
	_, err := e.svc.Accounts.EnsureAdmin(ctx, e.cfg.AdminName, e.cfg.AdminEmail, e.cfg.AdminPassword)
	require.NoError(t, err)
	acc, err := e.svc.Auth.Login(ctx, e.cfg.AdminEmail, e.cfg.AdminPassword)
	require.NoError(t, err)
	return acc
}

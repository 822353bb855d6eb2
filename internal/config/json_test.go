package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParseJson(t *testing.T) {
	t.Run("no flag leaves config untouched", func(t *testing.T) {
		cfg := defaults()
		parseJson(cfg, []string{"-backend", "memory"})
		assert.Empty(t, cmp.Diff(defaults(), cfg))
	})

	t.Run("partial overlay", func(t *testing.T) {
		p := writeFile(t, `{"storage_backend":"s3","s3_bucket":"shop","payment_delay":"250ms","admin_password":"s3cret!"}`)
		cfg := defaults()
		parseJson(cfg, []string{"-config=" + p})

		want := defaults()
		want.StorageBackend = "s3"
		want.S3Bucket = "shop"
		want.PaymentDelay = 250 * time.Millisecond
		want.AdminPassword = "s3cret!"
		assert.Empty(t, cmp.Diff(want, cfg))
	})

	t.Run("numeric duration", func(t *testing.T) {
		p := writeFile(t, `{"session_ttl": 60000000000}`)
		cfg := defaults()
		parseJson(cfg, []string{"-c", p})
		assert.Equal(t, time.Minute, cfg.SessionTTL)
	})

	t.Run("missing file panics", func(t *testing.T) {
		assert.Panics(t, func() { parseJson(defaults(), []string{"-c", "/nonexistent/config.json"}) })
	})

	t.Run("bad json panics", func(t *testing.T) {
		p := writeFile(t, `{"session_ttl": "forever"}`)
		assert.Panics(t, func() { parseJson(defaults(), []string{"-c", p}) })
	})
}

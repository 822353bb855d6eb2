package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Usable(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		session Session
		want    bool
	}{
		{"active within ttl", Session{IsActive: true, ExpiresAt: now.Add(time.Minute)}, true},
		{"active but expired", Session{IsActive: true, ExpiresAt: now.Add(-time.Minute)}, false},
		{"expires exactly now", Session{IsActive: true, ExpiresAt: now}, false},
		{"deactivated", Session{IsActive: false, ExpiresAt: now.Add(time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.Usable(now))
		})
	}
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(19990), Cents(199.90))
	assert.Equal(t, int64(44980), Cents(199.90)+Cents(249.90))
	assert.InDelta(t, 449.80, FromCents(44980), 1e-9)
}

func TestProfile_IsEnrolled(t *testing.T) {
	p := Profile{EnrolledCourses: []int{1, 4}}
	assert.True(t, p.IsEnrolled(4))
	assert.False(t, p.IsEnrolled(2))
}

func TestRecordIDs(t *testing.T) {
	assert.Equal(t, "u1", Account{ID: "u1"}.RecordID())
	assert.Equal(t, "s1", Session{ID: "s1"}.RecordID())
	assert.Equal(t, "sale_1", Sale{ID: "sale_1"}.RecordID())
	assert.Equal(t, "3", CartItem{CourseID: 3}.RecordID())
}

func TestSession_JSONFieldNames(t *testing.T) {
	b, err := json.Marshal(Session{ID: "s1", AccountID: "u1", IsActive: true})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "u1", m["userId"])
	assert.Equal(t, true, m["isActive"])
	assert.NotContains(t, m, "deactivatedAt")
}

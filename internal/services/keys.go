package services

import (
	"time"

	"github.com/dmitrijs2005/coursestore/internal/repositories/records"
)

// Storage keys. The layout matches what the browser version kept in
// localStorage so existing dumps can be loaded into a file store.
const (
	KeyUsers           = "users"
	KeySessions        = "userSessions"
	KeyCurrentSession  = "currentSession"
	KeyCurrentUser     = "currentUser"
	KeyCart            = "cart"
	KeySales           = "sales"
	KeyPendingCheckout = "pendingCheckout"
)

type options struct {
	now        func() time.Time
	recordOpts []records.Option
}

// Option tunes a service.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRecordOptions is passed through to every records.Collection.
func WithRecordOptions(opts ...records.Option) Option {
	return func(o *options) { o.recordOpts = append(o.recordOpts, opts...) }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Package store provides option types shared by the storage backends.
package store

import "time"

// Opts holds configuration applied via functional options.
type Opts struct {
	DSN string
	TTL time.Duration
}

// Option configures a store backend.
type Option func(*Opts)

// WithDSN sets the database connection string for SQL-backed stores.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithTTL sets the idle retention period for conversation state.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) {
		o.TTL = ttl
	}
}

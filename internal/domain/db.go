package domain

import "context"

// Database defines lifecycle operations for the underlying database.
// Each implementation (SQLite, Postgres) owns its own migration
// files and strategy, so the storage backend is swappable from main.
type Database interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Users() UserRepository
	Close() error
}

package activity

import (
	"context"
	"log/slog"
)

// Open returns a PostgreSQL store when dsn is set, otherwise an in-memory
// store. A database that cannot be reached falls back to memory.
func Open(ctx context.Context, dsn string, logger *slog.Logger) Store {
	if dsn == "" {
		return NewMemoryStore(0)
	}
	db, err := Connect(ctx, dsn)
	if err != nil {
		logger.Warn("activity database unavailable, keeping activity in memory", "error", err)
		return NewMemoryStore(0)
	}
	return db
}

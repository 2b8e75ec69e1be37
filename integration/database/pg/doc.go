// Package pg provides PostgreSQL connection management and the
// Postgres-backed session store.
//
// Connect creates a pgx connection pool with exponential backoff retries and
// a ping verification. Migrate applies the embedded schema migrations with
// goose. Store implements session.Store with an upsert keyed by the opaque
// session key; expiry is enforced lazily by the session manager, rows are only
// removed when a read finds them expired.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, logger); err != nil {
//		return err
//	}
//	store := pg.NewStore(pool)
package pg

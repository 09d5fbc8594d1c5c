// Package catalog persists built DBC databases in SQLite.
//
// Each Save stores an immutable snapshot: one snapshots row plus its nodes,
// messages and signals, written in a single transaction. Snapshots are
// identified by a UUID and grouped by database name, so rebuilding a
// database from a newer journal never rewrites history. Custom properties,
// receivers and value tables are stored as JSON text columns.
//
// Usage:
//
//	repo := catalog.NewSQLiteRepository(db.DB)
//	snap, err := repo.Save(ctx, "powertrain", builder.Build())
//	...
//	latest, err := repo.Latest(ctx, "powertrain")
//	database, err := repo.LoadDatabase(ctx, latest.ID)
package catalog

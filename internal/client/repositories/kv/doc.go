// Package kv provides the durable local key/value store that backs the draft
// slot and the fallback queue.
//
// # Overview
//
// Repository is the contract the rest of the client depends on:
// Get/Set/Delete/Keys over string keys and opaque byte values. Get returns
// (nil, nil) for a missing key. Transactor is implemented by stores that can
// commit several writes together.
//
// SQLiteRepository persists data in the kv table through a dbx.DBTX (either
// *sql.DB or *sql.Tx). SQLiteStore couples it with the owning *sql.DB and
// implements Transactor via dbx.WithTx.
//
// # Errors
//
// Every storage failure is wrapped with common.ErrPersistence so callers can
// tell local storage problems apart from transport ones:
//
//	if errors.Is(err, common.ErrPersistence) { ... }
//
// Typical Usage
//
//	db, _ := localdb.InitDatabase(ctx, "fieldreport.db")
//	store := kv.NewSQLiteStore(db)
//	_ = store.Set(ctx, "draft/current", b)
//	v, _ := store.Get(ctx, "draft/current")
//	_ = store.InTx(ctx, func(ctx context.Context, r kv.Repository) error { ... })
package kv

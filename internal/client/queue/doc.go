// Package queue is the durable fallback list of submissions that could not
// be delivered.
//
// # Layout
//
// The index lives under IndexKey as a JSON array of record ids in enqueue
// order. Each payload (a models.PendingEntry, attachments included) lives
// out of line under ItemPrefix+id, so listing pending work never loads
// large blobs.
//
// # Atomicity
//
// When the backing repository also implements kv.Transactor the two writes
// of Enqueue and Remove commit together. Otherwise Enqueue writes payload
// then index and Remove writes index then payload, so a crash can at worst
// leave an orphaned payload, which Repair deletes. An index id without a
// payload is skipped by the sweeper and dropped by Repair.
//
// # Integrity
//
// Every payload carries a BLAKE2b-256 digest of its record JSON and is
// checked against an embedded JSON schema on Load; failures surface as
// common.ErrCorrupt.
//
// # Capacity
//
// WarnPending logs a warning once the queue reaches that length.
// MaxPending rejects further entries with common.ErrQueueFull. Nothing is
// ever evicted.
package queue

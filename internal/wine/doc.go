// Package wine defines the catalogue's record type.
//
// A Wine is either unpersisted (ID() == UnassignedID) or persisted. Persisted
// wines handed out by the catalogue carry a Syncer: every setter writes the new
// value through to storage before the in-memory value changes, so a failed
// write leaves the record exactly as it was and returns the error.
//
// # Mutation rules
//
//   - Setting a field to its current value is a no-op.
//   - A wine with no Syncer (freshly constructed, not yet ingested) changes in
//     memory only.
//   - A wine with a Syncer issues exactly one single-column update per call.
//
// The Syncer is a non-owning handle: the persistence layer never holds a
// reference back to the records it syncs, so dropping the identity cache is
// enough for records to become unreachable.
package wine

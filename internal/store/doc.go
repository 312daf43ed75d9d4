// Package store provides SQLite-backed storage for the wine catalogue.
//
// The store owns the only connection to the database file and exposes
// row-level operations:
//   - Wines: batch insert with generated-key back-fill, single-column update,
//     full delete, filtered reads compiled by internal/querysql
//   - Geolocations: read-only to the catalogue, written by the seeding path
//   - Reviews: one review per (wine, user), cascading on wine delete
//
// # Invariants
//
// One connection: SetMaxOpenConns(1). The catalogue is a single logical
// writer, and one connection keeps transactions and reads strictly in program
// order.
//
// Transactions are scoped to one InsertWines call. They are committed or rolled
// back before the call returns and never left open across calls.
//
// Reads always go through querysql, so every result set is ordered by id.
//
// # Database Configuration
//
//   - WAL mode (optional, on by default)
//   - synchronous=NORMAL
//   - busy_timeout (default 5000ms)
//   - foreign_keys=ON
package store

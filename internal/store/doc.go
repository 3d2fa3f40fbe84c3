// Package store provides the SQLite backing store that collections read.
//
// The store owns:
//   - the entity tables and inheritance views derived from a model.Registry
//   - a catalog (lazyset_entity_types) recording which models created them
//   - fixture loading for tests, scenarios and the seed command
//
// Every statement issued through the store is counted and reported to
// registered observers. Tests use the counter the way an ORM test suite
// asserts the number of queries a call performs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks (5 seconds by default)
//   - foreign_keys=ON: Enforce referential integrity
//
// Collections never write. Insert and LoadFixtures exist for seeding.
package store

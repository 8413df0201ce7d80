// Package database manages the MySQL connection for the domain store.
//
// It builds the DSN with sane charset/timeout parameters, configures the
// connection pool and verifies the connection with a bounded ping. Schema
// migration is owned by the domain models package, not here.
package database

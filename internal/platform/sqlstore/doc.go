// Package sqlstore implements the store interfaces on top of database/sql
// through sqlx. It supports two drivers: "sqlite" (modernc.org/sqlite, the
// default and the one tests run against) and "pgx" (PostgreSQL through
// pgx's database/sql adapter).
//
// Queries are written with ? placeholders and rebound for the active
// driver. Timestamps are always written in UTC and calendar days as
// YYYY-MM-DD text, so range predicates compare the same way on both
// backends.
package sqlstore

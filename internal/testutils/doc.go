// Package testutils holds fixtures shared by tests that need a real
// database: locating the module root and loading the host application's
// schema into a throwaway SQLite file.
package testutils

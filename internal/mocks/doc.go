// Package mocks provides hand-written test doubles for the store
// interfaces and the alert notifier. Each mock records its calls and lets a
// test override behaviour through a ...Fn field; without one it falls back
// to simple in-memory semantics.
package mocks

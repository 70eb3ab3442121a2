// Package storage defines persistence contracts for accounts, tasks, and
// documents.
//
// These interfaces exist so domain packages depend on owner-scoped queries
// with stable semantics instead of SQLite schema details.
package storage

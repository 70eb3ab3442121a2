// Package sqlite provides SQLite-backed taskdesk persistence.
package sqlite

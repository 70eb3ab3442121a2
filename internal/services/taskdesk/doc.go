// Package taskdesk defines the personal task and document service.
//
// It owns account identity, sessions, authorization, per-owner task lists and
// per-owner document storage under a fixed quota.
//
// Subpackages:
//   - app: server wiring and lifecycle
//   - api/http: JSON transport over the service facade
//   - service: the guarded operations exposed to transports
//   - credentials, session, guard: identity, sessions, and access checks
//   - tasks, documents, admin: owner-scoped resources and administration
//   - storage: persistence interfaces and SQLite implementation
//   - user: user domain model and password hashing
package taskdesk

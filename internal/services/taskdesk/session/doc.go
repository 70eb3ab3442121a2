// Package session issues, resolves, and expires login sessions.
//
// Sessions live only in process memory. A client holds a signed handle whose
// jti names the server-side entry; the entry alone decides validity, so
// logout and idle expiry take effect immediately regardless of the handle.
package session

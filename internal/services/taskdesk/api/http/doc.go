// Package httpapi exposes taskdesk operations as a JSON HTTP API.
//
// Callers authenticate with the handle returned by login, sent either as the
// taskdesk_session cookie or as an Authorization bearer token. Errors are
// written as {"error": {"code": ..., "message": ...}} with the message
// localized from the request's Accept-Language.
package httpapi

// Package user defines the account model used as the ownership anchor.
//
// Every task and document references a user by ID; emails are unique login
// identifiers and never used as ownership keys.
package user

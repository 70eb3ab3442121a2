// Package documents stores owner files under a per-owner quota.
//
// Each owner gets one directory below the upload root. Document bytes are
// written to a temporary file and renamed into place before the record is
// inserted, and the insert re-checks the quota, so the limit holds even when
// uploads race. A failed insert removes the bytes it wrote.
package documents

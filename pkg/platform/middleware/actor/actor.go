// Package actor resolves the acting principal for provenance tracking.
//
// Authentication happens upstream of this service; the gateway forwards the
// verified principal in a header. Manual edits and reverts require an actor so
// override provenance is never anonymous.
package actor

import (
	"net/http"
	"strings"

	"attest/pkg/requestcontext"
)

// Header carries the upstream-verified principal identity.
const Header = "X-Actor"

// SystemActor is recorded as provenance for automated (sync-driven) writes.
const SystemActor = "system:sync"

// Middleware copies the actor header into the request context.
// An absent header leaves the actor empty; handlers that require one
// (manual edits, reverts, mode changes) reject the request themselves.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := strings.TrimSpace(r.Header.Get(Header))
		if len(a) > 256 {
			a = a[:256]
		}
		ctx := requestcontext.WithActor(r.Context(), a)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

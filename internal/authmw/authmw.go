// Package authmw resolves who is calling the API and gates privileged routes.
//
// Sessions are issued upstream; requests arrive with the caller's id in
// X-Actor-Id. Authorities additionally present the shared authority token as
// a bearer credential.
package authmw

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// ActorHeader carries the authenticated caller id set by the upstream gateway.
const ActorHeader = "X-Actor-Id"

// Identity is the caller as seen by handlers.
type Identity struct {
	ActorID    string
	Privileged bool
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by Identify, or the zero Identity.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// Identify returns middleware that attaches the caller's Identity to the
// request context. It never rejects a request; use RequireActor and
// RequireAuthority for that. Token comparison is constant-time. An empty
// authorityToken disables privileged access entirely.
func Identify(authorityToken string) func(http.Handler) http.Handler {
	expected := []byte(authorityToken)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := Identity{ActorID: strings.TrimSpace(r.Header.Get(ActorHeader))}

			auth := r.Header.Get("Authorization")
			if len(expected) > 0 && strings.HasPrefix(auth, "Bearer ") {
				got := []byte(auth[len("Bearer "):])
				id.Privileged = subtle.ConstantTimeCompare(got, expected) == 1
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireActor rejects requests without an actor id.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()).ActorID == "" {
			unauthorized(w, "missing "+ActorHeader+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthority rejects requests that did not present the authority token.
func RequireAuthority(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Privileged {
			unauthorized(w, "authority token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

package authmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// captureIdentity records the identity the inner handler sees.
func captureIdentity(dst *Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*dst = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		token  string
		actor  string
		auth   string
		wantID Identity
	}{
		{"anonymous", "secret", "", "", Identity{}},
		{"actor only", "secret", "u1", "", Identity{ActorID: "u1"}},
		{"actor trimmed", "secret", "  u1 ", "", Identity{ActorID: "u1"}},
		{"authority", "secret", "a1", "Bearer secret", Identity{ActorID: "a1", Privileged: true}},
		{"wrong token", "secret", "a1", "Bearer wrong", Identity{ActorID: "a1"}},
		{"partial match", "secret", "a1", "Bearer sec", Identity{ActorID: "a1"}},
		{"token with suffix", "secret", "a1", "Bearer secret-extra", Identity{ActorID: "a1"}},
		{"lowercase bearer", "secret", "a1", "bearer secret", Identity{ActorID: "a1"}},
		{"basic auth", "secret", "a1", "Basic dXNlcjpwYXNz", Identity{ActorID: "a1"}},
		{"authority disabled", "", "a1", "Bearer ", Identity{ActorID: "a1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got Identity
			h := Identify(tt.token)(captureIdentity(&got))

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.actor != "" {
				req.Header.Set(ActorHeader, tt.actor)
			}
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, Identify must not reject", rec.Code)
			}
			if got != tt.wantID {
				t.Errorf("identity = %+v, want %+v", got, tt.wantID)
			}
		})
	}
}

func TestRequireActor(t *testing.T) {
	t.Parallel()

	var got Identity
	h := Identify("secret")(RequireActor(captureIdentity(&got)))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no actor: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}

	req = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(ActorHeader, "u1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with actor: status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.ActorID != "u1" {
		t.Errorf("ActorID = %q", got.ActorID)
	}
}

func TestRequireAuthority(t *testing.T) {
	t.Parallel()

	var called bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})
	h := Identify("tok")(RequireAuthority(inner))

	req := httptest.NewRequest(http.MethodPut, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized || called {
		t.Errorf("wrong token: status = %d called = %v", rec.Code, called)
	}

	req = httptest.NewRequest(http.MethodPut, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer tok")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if !called {
		t.Error("inner handler was not called")
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestFromContext_Empty(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if got := FromContext(req.Context()); got != (Identity{}) {
		t.Errorf("FromContext = %+v, want zero", got)
	}
}

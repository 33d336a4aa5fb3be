// Package middleware provides HTTP middleware for the catalog API.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

// Context keys for request-scoped values.
type contextKey string

const (
	// RoleKey is the context key for the caller's role.
	RoleKey contextKey = "role"
	// ActorKey is the context key for the caller identity (the API key name).
	ActorKey contextKey = "actor"
)

// Role is an RBAC role at the API boundary.
type Role string

const (
	RoleCustomer       Role = "customer"
	RoleSalesEngineer  Role = "sales_engineer"
	RoleProductManager Role = "product_manager"
	RoleAdmin          Role = "admin"
)

// rank orders roles by privilege.
var rank = map[Role]int{
	RoleCustomer:       0,
	RoleSalesEngineer:  1,
	RoleProductManager: 2,
	RoleAdmin:          3,
}

// AuthConfig maps API keys to roles.
type AuthConfig struct {
	Enabled bool
	APIKeys map[string]string // key -> role
}

// Auth authenticates requests by API key from the X-API-Key header or a
// Bearer token. With auth disabled every request runs as admin.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				ctx := context.WithValue(r.Context(), RoleKey, RoleAdmin)
				ctx = context.WithValue(ctx, ActorKey, "dev")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				if auth := r.Header.Get("Authorization"); auth != "" {
					parts := strings.SplitN(auth, " ", 2)
					if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
						key = parts[1]
					}
				}
			}
			if key == "" {
				http.Error(w, `{"error":"missing API key"}`, http.StatusUnauthorized)
				return
			}
			role, ok := cfg.APIKeys[key]
			if !ok {
				http.Error(w, `{"error":"invalid API key"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), RoleKey, Role(role))
			ctx = context.WithValue(ctx, ActorKey, keyName(key))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers below the minimum role.
func RequireRole(min Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if rank[role] < rank[min] {
				http.Error(w, `{"error":"insufficient role"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RoleFromContext returns the caller's role, defaulting to customer.
func RoleFromContext(ctx context.Context) Role {
	if v, ok := ctx.Value(RoleKey).(Role); ok {
		return v
	}
	return RoleCustomer
}

// ActorFromContext returns the caller identity for audit entries.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ActorKey).(string); ok {
		return v
	}
	return "anonymous"
}

// keyName is the loggable form of an API key: the first 4 characters.
func keyName(key string) string {
	if len(key) <= 4 {
		return key
	}
	return key[:4] + "…"
}

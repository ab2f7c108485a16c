package authn

import (
	"context"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// Role is the access level carried in a bearer token.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleSalesAgent Role = "SALES_AGENT"
	RoleCustomer   Role = "CUSTOMER"
)

// Actor is the authenticated identity performing a request. Token
// issuing and user management live outside this service; we only
// consume the identity.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// IsStaff reports whether the actor may ring up sales.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager || a.Role == RoleSalesAgent
}

type actorContextKey struct{}

// WithActor returns a context carrying the given actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, a)
}

// FromContext extracts the actor placed by the middleware.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorContextKey{}).(Actor)
	return a, ok
}

type claims struct {
	jwt.StandardClaims
	Role string `json:"role"`
}

// Middleware parses the Authorization bearer token and puts the actor
// on the request context. Requests without a valid token get 401.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			c := &claims{}
			token, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			id, err := uuid.Parse(c.Subject)
			if err != nil {
				http.Error(w, `{"error":"invalid token subject"}`, http.StatusUnauthorized)
				return
			}

			actor := Actor{ID: id, Role: Role(strings.ToUpper(c.Role))}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireRoles rejects requests whose actor does not hold one of the
// given roles.
func RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := FromContext(r.Context())
			if !ok {
				http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, `{"error":"insufficient role"}`, http.StatusForbidden)
		})
	}
}

package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/okian/pitwall/internal/domain/model"
)

// Identity headers set by the upstream auth layer.
const (
	HeaderUserID     = "X-User-ID"
	HeaderUserName   = "X-User-Name"
	HeaderAdminToken = "X-Admin-Token"
)

type userKey struct{}

// Auth guards user and admin routes.
type Auth struct {
	adminToken []byte
}

// NewAuth builds the guard. An empty token disables admin routes.
func NewAuth(adminToken string) *Auth {
	return &Auth{adminToken: []byte(adminToken)}
}

// RequireUser rejects requests without X-User-ID and stores the caller in
// the request context.
func (a *Auth) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			writeFailure(w, NewKind("api.auth", ErrUnauthorized))
			return
		}
		u := model.User{ID: id, Name: strings.TrimSpace(r.Header.Get(HeaderUserName))}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, u)))
	}
}

// RequireAdmin rejects requests whose X-Admin-Token does not match.
func (a *Auth) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get(HeaderAdminToken))
		if len(a.adminToken) == 0 || subtle.ConstantTimeCompare(got, a.adminToken) != 1 {
			writeFailure(w, NewKind("api.auth", ErrForbidden))
			return
		}
		next(w, r)
	}
}

// UserFrom returns the caller stored by RequireUser.
func UserFrom(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(userKey{}).(model.User)
	return u, ok
}

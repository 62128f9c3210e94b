// Package auth carries the caller identity verified by the upstream gateway.
// This service does not authenticate; it trusts the X-User-ID header.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// UserHeader is set by the gateway after verifying the caller's token
const UserHeader = "X-User-ID"

// ErrNoUser is returned when a request carries no usable user identity
var ErrNoUser = errors.New("missing or invalid user identity")

type contextKey int

const userIDKey contextKey = iota

// WithUserID stores the user id in ctx
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the user id stored by RequireUser
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// UserFromRequest parses the user id header
func UserFromRequest(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(UserHeader))
	if raw == "" {
		return 0, ErrNoUser
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNoUser
	}
	return id, nil
}

// RequireUser rejects requests without a user identity with 401
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := UserFromRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// HeaderUserID carries the buyer id resolved by the authenticating edge.
const HeaderUserID = "X-User-Id"

type userIDKey struct{}

// RequireUserID rejects requests without a positive numeric X-User-Id and
// stores the id in the request context.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing required header: "+HeaderUserID)
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusUnauthorized, "invalid "+HeaderUserID)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, id)))
	})
}

func userIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey{}).(int64)
	return id, ok
}

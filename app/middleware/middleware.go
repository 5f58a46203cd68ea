package appMiddleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// InitDataHeader carries the WebApp session payload on every API request.
const InitDataHeader = "X-Telegram-Init-Data"

// Authenticate validates the WebApp initData header and adds the user id and
// the session's allowed scope ids to the request context.
func Authenticate(botToken string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(InitDataHeader)
			if raw == "" {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			data, err := ValidateInitData(raw, botToken, InitDataMaxAge, time.Now())
			if err != nil {
				logger.WarnContext(r.Context(), "Init data validation failed", slog.Any("error", err))
				http.Error(w, "Session expired. Close and reopen the app.", http.StatusForbidden)
				return
			}
			if data.User == nil {
				http.Error(w, "Session has no user identity", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, strconv.FormatInt(data.User.ID, 10))
			ctx = context.WithValue(ctx, AllowedScopesKey, data.AllowedScopeIDs())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// ScopeAllowed reports whether the authenticated session may read scopeID.
// A session is limited to the user's own scope and the chat it was opened in.
func ScopeAllowed(ctx context.Context, scopeID string) bool {
	allowed, ok := ctx.Value(AllowedScopesKey).(map[string]struct{})
	if !ok {
		return false
	}
	_, ok = allowed[scopeID]
	return ok
}

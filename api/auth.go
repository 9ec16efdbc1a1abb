package api

import (
	"errors"
	"net/http"
	"strings"

	"ioclens/core"
	"ioclens/metrics"
)

var errNoSession = errors.New("no session token")

// sessionToken reads the token from the Authorization header or the session cookie
func (a *API) sessionToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), nil
	}
	cookie, err := r.Cookie(a.config.Auth.CookieName)
	if err != nil || cookie.Value == "" {
		return "", errNoSession
	}
	return cookie.Value, nil
}

// localUser is the identity every request runs as when auth is disabled
func (a *API) localUser() *core.User {
	return &core.User{ID: a.config.Auth.LocalUserID, Email: "local@ioclens"}
}

// resolveSession returns the user behind the request's session.
// The claims are nil when auth is disabled.
func (a *API) resolveSession(r *http.Request) (*core.User, *Claims, error) {
	if !a.config.Auth.Enabled {
		return a.localUser(), nil, nil
	}

	tokenString, err := a.sessionToken(r)
	if err != nil {
		return nil, nil, err
	}

	claims, err := a.validateSession(tokenString)
	if err != nil {
		return nil, nil, err
	}

	user, err := a.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

// sessionMiddleware rejects requests without a valid session
func (a *API) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, claims, err := a.resolveSession(r)
		if err != nil {
			if core.KindOf(err) == core.KindStorage {
				a.writeServiceError(w, r, err)
				return
			}
			metrics.AuthEvents.WithLabelValues("session", "rejected").Inc()
			LogWithRequestID(r.Context(), a.logger).Infow("Rejected request without valid session",
				"path", r.URL.Path,
				"reason", sanitizeLogMessage(err.Error()))
			a.writeServiceError(w, r, &core.Error{Kind: core.KindUnauthorized, Op: "api.session", Msg: "Authentication required", Err: err})
			return
		}

		ctx := WithUser(r.Context(), user)
		if claims != nil {
			ctx = WithSession(ctx, claims)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalSessionMiddleware attaches the user when a valid session is present
func (a *API) optionalSessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, claims, err := a.resolveSession(r)
		if err != nil {
			if !errors.Is(err, errNoSession) {
				a.logger.Debugw("Ignoring invalid session", "reason", sanitizeLogMessage(err.Error()))
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := WithUser(r.Context(), user)
		if claims != nil {
			ctx = WithSession(ctx, claims)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// setSessionCookie stores the session token in an HttpOnly cookie
func (a *API) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.config.Auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.config.Auth.JWTExpiry.Seconds()),
		HttpOnly: true,
		Secure:   a.config.Auth.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCookie expires a cookie on the client
func (a *API) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.config.Auth.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

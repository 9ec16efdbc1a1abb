package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ioclens/config"
	"ioclens/core"
	"ioclens/metrics"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const oauthStateCookie = "oauth_state"

// Identity is the profile an identity provider vouches for
type Identity struct {
	// Subject is the provider's stable account id
	Subject string
	Email   string
	Name    string
}

// IdentityProvider performs the OAuth2 authorization code handshake
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// GoogleIdentityProvider signs users in with their Google account
type GoogleIdentityProvider struct {
	oauth         *oauth2.Config
	clientOptions []option.ClientOption
}

// NewGoogleIdentityProvider builds a provider for the configured OAuth client
func NewGoogleIdentityProvider(cfg config.GoogleConfig) *GoogleIdentityProvider {
	return newGoogleIdentityProvider(&oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			googleoauth2.OpenIDScope,
			googleoauth2.UserinfoEmailScope,
			googleoauth2.UserinfoProfileScope,
		},
		Endpoint: google.Endpoint,
	})
}

func newGoogleIdentityProvider(oauthConfig *oauth2.Config, opts ...option.ClientOption) *GoogleIdentityProvider {
	return &GoogleIdentityProvider{oauth: oauthConfig, clientOptions: opts}
}

// AuthCodeURL returns the consent page URL carrying state
func (g *GoogleIdentityProvider) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a token and reads the user's profile
func (g *GoogleIdentityProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(g.oauth.TokenSource(ctx, token))}, g.clientOptions...)
	svc, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	if info.Id == "" || info.Email == "" {
		return nil, errors.New("user info is missing id or email")
	}

	return &Identity{Subject: info.Id, Email: info.Email, Name: info.Name}, nil
}

// handleGoogleLogin godoc
//
//	@Summary		Start Google login
//	@Description	Redirects to the Google consent page
//	@Tags			auth
//	@Success		307
//	@Router			/auth/google [get]
func (a *API) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.config.Auth.Enabled || a.identity == nil {
		writeError(w, http.StatusNotFound, "Login is disabled", nil, nil)
		return
	}

	state, err := randomHex(16)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to start login", err, a.logger)
		return
	}

	a.oauthStates.Add(state, time.Now())
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.config.Auth.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, a.identity.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// handleGoogleCallback godoc
//
//	@Summary		Complete Google login
//	@Description	Exchanges the authorization code, creates the user on first login and sets the session cookie
//	@Tags			auth
//	@Param			state	query	string	true	"OAuth state"
//	@Param			code	query	string	true	"Authorization code"
//	@Success		302
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Router			/auth/google/callback [get]
func (a *API) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	const op = "api.googleCallback"

	if !a.config.Auth.Enabled || a.identity == nil {
		writeError(w, http.StatusNotFound, "Login is disabled", nil, nil)
		return
	}

	if err := a.checkOAuthState(r); err != nil {
		metrics.AuthEvents.WithLabelValues("login", "invalid_state").Inc()
		a.writeServiceError(w, r, &core.Error{Kind: core.KindUnauthorized, Op: op, Msg: "Invalid login state", Err: err})
		return
	}
	a.clearCookie(w, oauthStateCookie)

	if providerErr := r.URL.Query().Get("error"); providerErr != "" {
		metrics.AuthEvents.WithLabelValues("login", "denied").Inc()
		a.writeServiceError(w, r, &core.Error{Kind: core.KindUnauthorized, Op: op, Msg: "Login was not approved", Err: errors.New(providerErr)})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		a.writeServiceError(w, r, core.NewValidationError(op, "code is required", "code"))
		return
	}

	identity, err := a.identity.Exchange(r.Context(), code)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("login", "upstream_error").Inc()
		a.writeServiceError(w, r, core.NewUpstreamError(op, "Google sign-in failed", err))
		return
	}

	user, err := a.findOrCreateUser(r.Context(), identity)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("login", "error").Inc()
		a.writeServiceError(w, r, err)
		return
	}

	token, _, err := generateSessionToken(user, a.config)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session", err, a.logger)
		return
	}
	a.setSessionCookie(w, token)

	metrics.AuthEvents.WithLabelValues("login", "success").Inc()
	LogWithRequestID(r.Context(), a.logger).Infow("User logged in", "user_id", user.ID)
	http.Redirect(w, r, "/", http.StatusFound)
}

// checkOAuthState requires the state parameter to match the cookie and a pending login.
// A state is consumed by its first use.
func (a *API) checkOAuthState(r *http.Request) error {
	state := r.URL.Query().Get("state")
	if state == "" {
		return errors.New("missing state parameter")
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value != state {
		return errors.New("state does not match cookie")
	}

	if _, ok := a.oauthStates.Get(state); !ok {
		return errors.New("unknown or expired state")
	}
	a.oauthStates.Remove(state)
	return nil
}

// findOrCreateUser looks the identity up by provider id and creates an account
// on first login. Accounts are never matched by email.
func (a *API) findOrCreateUser(ctx context.Context, identity *Identity) (*core.User, error) {
	user, err := a.users.GetUserByGoogleID(ctx, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !core.IsNotFound(err) {
		return nil, err
	}

	subject := identity.Subject
	newUser := &core.User{Email: identity.Email, GoogleID: &subject}
	if identity.Name != "" {
		name := identity.Name
		newUser.Username = &name
	}
	return a.users.CreateUser(ctx, newUser)
}

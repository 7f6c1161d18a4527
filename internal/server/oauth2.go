// ABOUTME: OAuth2 authorization-code handshake endpoints for federated login
// ABOUTME: Exchanges the code, fetches identity claims, and lands on the success redirect

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	xoauth2 "golang.org/x/oauth2"

	"github.com/shieldsync/shieldsync/internal/auth"
	"github.com/shieldsync/shieldsync/internal/config"
)

const (
	// stateCookieName carries the anti-CSRF state between redirect legs.
	stateCookieName = "shieldsync_oauth2_state"

	// failureRedirect is where every handshake failure lands. The extension
	// only ever sees the error flag, never the underlying cause.
	failureRedirect = "/?error=oauth2_failed"
)

// oauth2Flow implements the provider handshake. The authentication gateway
// bypasses these endpoints entirely; they manage their own context.
type oauth2Flow struct {
	config      *xoauth2.Config
	userInfoURL string
	federated   *auth.FederatedLoginHandler
	sessions    *SessionManager
	logger      *slog.Logger
}

func newOAuth2Flow(cfg config.OAuth2Config, federated *auth.FederatedLoginHandler, sessions *SessionManager) *oauth2Flow {
	return &oauth2Flow{
		config: &xoauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: xoauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      []string{"openid", "email", "profile"},
		},
		userInfoURL: cfg.UserInfoURL,
		federated:   federated,
		sessions:    sessions,
		logger:      slog.Default().With("component", "oauth2"),
	}
}

// handleAuthorize handles GET /oauth2/authorize: it sends the browser to the
// identity provider with a fresh state value.
func (f *oauth2Flow) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	state, err := generateSecureToken(16)
	if err != nil {
		f.logger.Error("failed to generate state", "error", err)
		http.Redirect(w, r, failureRedirect, http.StatusSeeOther)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, f.config.AuthCodeURL(state), http.StatusSeeOther)
}

// handleCallback handles GET /login/oauth2/code: the provider redirect back.
// On success it installs a server-side session AND mints a bearer token so
// the extension may continue with either credential.
func (f *oauth2Flow) handleCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		f.logger.Warn("provider returned error", "error", errParam)
		http.Redirect(w, r, failureRedirect, http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		f.logger.Warn("state mismatch on callback")
		http.Redirect(w, r, failureRedirect, http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, failureRedirect, http.StatusSeeOther)
		return
	}

	claims, err := f.fetchClaims(r.Context(), code)
	if err != nil {
		f.logger.Warn("failed to resolve identity claims", "error", err)
		http.Redirect(w, r, failureRedirect, http.StatusSeeOther)
		return
	}

	principal, token, err := f.federated.CompleteLogin(r.Context(), claims)
	if err != nil {
		f.logger.Warn("federated login failed", "error", err)
		http.Redirect(w, r, failureRedirect, http.StatusSeeOther)
		return
	}

	if err := f.sessions.Create(w, r, principal.Subject); err != nil {
		f.logger.Error("failed to create session", "error", err)
		http.Redirect(w, r, failureRedirect, http.StatusSeeOther)
		return
	}

	name := claims.DisplayName
	if name == "" {
		name = principal.Subject
	}
	params := url.Values{}
	params.Set("oauth2", "success")
	params.Set("email", principal.Subject)
	params.Set("name", name)
	params.Set("token", token)
	http.Redirect(w, r, "/?"+params.Encode(), http.StatusSeeOther)
}

// fetchClaims exchanges the authorization code and reads the provider's
// userinfo endpoint into the claim set federated login needs.
func (f *oauth2Flow) fetchClaims(ctx context.Context, code string) (auth.IdentityClaims, error) {
	providerToken, err := f.config.Exchange(ctx, code)
	if err != nil {
		return auth.IdentityClaims{}, fmt.Errorf("exchanging code: %w", err)
	}

	client := f.config.Client(ctx, providerToken)
	resp, err := client.Get(f.userInfoURL)
	if err != nil {
		return auth.IdentityClaims{}, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return auth.IdentityClaims{}, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return auth.IdentityClaims{}, fmt.Errorf("decoding userinfo: %w", err)
	}

	return auth.IdentityClaims{Email: info.Email, DisplayName: info.Name}, nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	userservice "github.com/esolangs/codeguessing/app/modules/user/application"
	"github.com/esolangs/codeguessing/app/shared/persona"
	"github.com/esolangs/codeguessing/config"
)

const (
	sessionCookie = "session"
	stateCookie   = "oauth_state"
)

// discordEndpoint is the OAuth2 endpoint for Discord, the identity provider
// the player base already lives on.
var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/api/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

const discordMeURL = "https://discord.com/api/users/@me"

// Principal is the authenticated caller as seen by handlers.
type Principal struct {
	ID    int64
	Name  string
	Admin bool
}

type principalKey struct{}

// PrincipalFrom extracts the caller from the request context.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

type sessionClaims struct {
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Auth owns login, sessions and the auth middlewares.
type Auth struct {
	cfg      config.AuthConfig
	oauth    *oauth2.Config
	users    *userservice.Service
	personas persona.Service
	logger   *slog.Logger
}

// NewAuth builds the auth component.
func NewAuth(cfg config.AuthConfig, users *userservice.Service, personas persona.Service, logger *slog.Logger) *Auth {
	return &Auth{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify"},
			Endpoint:     discordEndpoint,
		},
		users:    users,
		personas: personas,
		logger:   logger,
	}
}

func (a *Auth) isAdmin(id int64) bool {
	for _, adminID := range a.cfg.AdminIDs {
		if adminID == id {
			return true
		}
	}
	return false
}

// Login redirects to the identity provider.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback finishes the OAuth dance, checks the player against the allow
// list, mirrors their display name and issues a session token.
func (a *Auth) Callback(w http.ResponseWriter, r *http.Request) {
	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || state.Value != r.URL.Query().Get("state") {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "state mismatch"})
		return
	}

	token, err := a.oauth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		a.logger.Warn("OAuth exchange failed", slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "login failed"})
		return
	}

	id, name, err := a.fetchIdentity(r.Context(), token)
	if err != nil {
		a.logger.Warn("Identity fetch failed", slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "login failed"})
		return
	}

	allowed, err := a.personas.Verify(r.Context(), id)
	if err != nil || !allowed {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "not on the player list"})
		return
	}

	upserted, err := a.users.Upsert(r.Context(), id, name)
	if err != nil || upserted.IsFailure() {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	session, err := a.issueSession(id, name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session,
		Path:     "/",
		MaxAge:   int(a.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout clears the session cookie.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *Auth) fetchIdentity(ctx context.Context, token *oauth2.Token) (int64, string, error) {
	client := a.oauth.Client(ctx, token)
	resp, err := client.Get(discordMeURL)
	if err != nil {
		return 0, "", fmt.Errorf("failed to fetch identity: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("identity endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, "", fmt.Errorf("failed to decode identity: %w", err)
	}
	id, err := strconv.ParseInt(body.ID, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse user id %q: %w", body.ID, err)
	}
	name := body.GlobalName
	if name == "" {
		name = body.Username
	}
	return id, name, nil
}

func (a *Auth) issueSession(id int64, name string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Name:  name,
		Admin: a.isAdmin(id),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.SessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.JWTSecret))
}

func (a *Auth) parseSession(value string) (Principal, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.cfg.JWTSecret), nil
	})
	if err != nil {
		return Principal{}, err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Principal{}, fmt.Errorf("bad subject: %w", err)
	}
	// Admin status is re-derived so config changes beat stale tokens.
	return Principal{ID: id, Name: claims.Name, Admin: a.isAdmin(id)}, nil
}

// Middleware attaches the caller's Principal when a valid session cookie is
// present; requests without one pass through anonymous.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
			if p, err := a.parseSession(cookie.Value); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), principalKey{}, p))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects everyone but the configured admins.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required"})
			return
		}
		if !p.Admin {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "admin only"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"go.uber.org/zap"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/middleware"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/services"
)

const googleProvider = "google"

// ConfigureGoogle registers the Google provider and the cookie store gothic
// keeps the OAuth state in.
func ConfigureGoogle(clientID, clientSecret, callbackURL, sessionSecret string, secure bool) {
	cs := sessions.NewCookieStore([]byte(sessionSecret))
	cs.Options.HttpOnly = true
	cs.Options.Secure = secure
	cs.Options.SameSite = http.SameSiteLaxMode
	gothic.Store = cs

	goth.UseProviders(google.New(clientID, clientSecret, callbackURL, "email", "profile"))
}

type AuthHandler struct {
	auth          *services.AuthService
	tokens        *services.TokenIssuer
	clientURL     string
	secureCookies bool

	beginAuth    func(w http.ResponseWriter, r *http.Request)
	completeAuth func(w http.ResponseWriter, r *http.Request) (goth.User, error)
}

func NewAuthHandler(auth *services.AuthService, tokens *services.TokenIssuer, clientURL string, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		auth:          auth,
		tokens:        tokens,
		clientURL:     clientURL,
		secureCookies: secureCookies,
		beginAuth:     gothic.BeginAuthHandler,
		completeAuth:  gothic.CompleteUserAuth,
	}
}

func (h *AuthHandler) BeginGoogle(w http.ResponseWriter, r *http.Request) {
	h.beginAuth(w, gothic.GetContextWithProvider(r, googleProvider))
}

// GoogleCallback finishes the OAuth exchange, records the login and starts a
// session. Browsers are sent back to the client app.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	identity, err := h.completeAuth(w, gothic.GetContextWithProvider(r, googleProvider))
	if err != nil {
		apperrors.Write(w, r, apperrors.Validation("Authentication failed", err))
		return
	}

	user, err := h.auth.Login(r.Context(), identity)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		apperrors.Write(w, r, apperrors.Internal("Failed to generate token", err))
		return
	}
	h.setSessionCookie(w, token, h.tokens.TTL())
	zap.L().Info("user logged in", zap.String("user_id", user.ID.Hex()), zap.Int("login_count", user.LoginCount))

	if h.clientURL != "" {
		http.Redirect(w, r, h.clientURL, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, models.AuthResponse{Token: token, User: *user})
}

// CurrentUser returns the session principal.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	u, err := principal(r)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := gothic.Logout(w, r); err != nil {
		zap.L().Debug("gothic logout", zap.Error(err))
	}
	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusOK)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.Expires = time.Now().Add(ttl)
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}

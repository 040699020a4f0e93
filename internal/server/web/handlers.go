// Package web exposes the authentication core over HTTP: the login and
// registration form boundary, the logout endpoint, and the middleware
// other routes use to gate access on the session. Form state is rendered
// as JSON; page templating is the front layer's concern.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/avdeev/driveauth/internal/auth"
	"github.com/avdeev/driveauth/internal/directory"
	"github.com/avdeev/driveauth/internal/logging"
	"github.com/avdeev/driveauth/internal/session"
)

// SessionCookie is the name of the signed session cookie.
const SessionCookie = "driveauth_session"

type Handler struct {
	auth        *auth.Service
	sessions    *session.Manager
	secret      []byte
	sessionTTL  time.Duration
	rememberTTL time.Duration
	logger      logging.Logger
}

func NewHandler(a *auth.Service, m *session.Manager, secret []byte, sessionTTL, rememberTTL time.Duration, logger logging.Logger) *Handler {
	return &Handler{
		auth:        a,
		sessions:    m,
		secret:      secret,
		sessionTTL:  sessionTTL,
		rememberTTL: rememberTTL,
		logger:      logger,
	}
}

// Routes wires the auth surface onto a mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth", h.RedirectIfAuth(h.authPage))
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/logout", h.logout)
	mux.HandleFunc("GET /dashboard", h.RequireAuth(h.dashboard))
	mux.HandleFunc("GET /{$}", h.index)
	return mux
}

// formView is the re-rendered form state the UI layer consumes.
type formView struct {
	Error           string `json:"error,omitempty"`
	Success         string `json:"success,omitempty"`
	CaptchaQuestion string `json:"captchaQuestion"`
	LoginAttempts   int    `json:"loginAttempts"`
}

func (h *Handler) authPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ensureSession(w, r)
	if !ok {
		return
	}
	res, err := h.auth.NewForm(r.Context(), sess.ID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.renderForm(w, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ensureSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	in := auth.LoginInput{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Remember: r.PostFormValue("rememberMe") != "",
	}

	res, err := h.auth.Login(r.Context(), sess.ID, in)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	if res.Outcome == auth.OutcomeOK {
		// The remember policy decides how long the browser keeps the
		// cookie; the server-side record was already extended to match.
		if in.Remember {
			h.setSessionCookie(w, sess.ID, h.rememberTTL, true)
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.renderForm(w, res)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ensureSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	in := auth.RegisterInput{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
		CaptchaAnswer:   r.PostFormValue("captcha"),
	}

	res, err := h.auth.Register(r.Context(), sess.ID, in)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.renderForm(w, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if id := h.sessionID(r); id != "" {
		if err := h.auth.Logout(r.Context(), id); err != nil {
			h.internalError(w, r, err)
			return
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	user := h.CurrentUser(r)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	user := h.CurrentUser(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": user != nil,
	})
}

// IsAuthenticated reports whether the request carries a live
// authenticated session. This is the capability check protected routes
// gate on.
func (h *Handler) IsAuthenticated(r *http.Request) bool {
	return h.CurrentUser(r) != nil
}

// CurrentUser resolves the request's session to its identity attributes,
// or nil for anonymous, expired or absent sessions.
func (h *Handler) CurrentUser(r *http.Request) *directory.Identity {
	id := h.sessionID(r)
	if id == "" {
		return nil
	}
	return h.sessions.Current(r.Context(), id)
}

// sessionID extracts and validates the session ID from the cookie.
// Tampered or expired tokens read as "no session".
func (h *Handler) sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	id, err := sessionIDFromToken(c.Value, h.secret)
	if err != nil {
		return ""
	}
	return id
}

// ensureSession resolves the request's session, creating a fresh
// anonymous one (and setting its cookie) when the request carries none.
func (h *Handler) ensureSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if id := h.sessionID(r); id != "" {
		if sess, err := h.sessions.Get(r.Context(), id); err == nil {
			return sess, true
		}
	}
	sess, err := h.sessions.Begin(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return nil, false
	}
	h.setSessionCookie(w, sess.ID, h.sessionTTL, false)
	return sess, true
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sessionID string, validity time.Duration, persistent bool) {
	token, err := generateSessionToken(sessionID, h.secret, validity)
	if err != nil {
		h.logger.Error(context.Background(), "signing session token", "error", err)
		return
	}
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if persistent {
		c.MaxAge = int(validity.Seconds())
	}
	http.SetCookie(w, c)
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (h *Handler) renderForm(w http.ResponseWriter, res *auth.Result) {
	writeJSON(w, http.StatusOK, formView{
		Error:           res.Error,
		Success:         res.Success,
		CaptchaQuestion: res.CaptchaQuestion,
		LoginAttempts:   res.LoginAttempts,
	})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

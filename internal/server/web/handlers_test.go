package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avdeev/driveauth/internal/auth"
	"github.com/avdeev/driveauth/internal/cryptox"
	"github.com/avdeev/driveauth/internal/directory"
	"github.com/avdeev/driveauth/internal/logging"
	"github.com/avdeev/driveauth/internal/session"
)

// fakeDirectory implements directory.Client for handler tests.
type fakeDirectory struct {
	user        *directory.User
	expectedKey string
	createErr   error
}

func (f *fakeDirectory) FetchIdentity(ctx context.Context, username string) (*directory.User, error) {
	if f.user == nil || f.user.Username != username {
		return nil, directory.ErrNotFound
	}
	u := *f.user
	return &u, nil
}

func (f *fakeDirectory) Verify(ctx context.Context, username, key string) (*directory.Identity, error) {
	if f.user == nil || f.user.Username != username || key != f.expectedKey {
		return nil, directory.ErrRejected
	}
	id := f.user.Identity
	return &id, nil
}

func (f *fakeDirectory) CreateAccount(ctx context.Context, username, email, salt, key string) error {
	return f.createErr
}

type fixture struct {
	handler  *Handler
	sessions *session.Manager
	routes   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := cryptox.DeriveKey("correct-password!", "abc123")
	require.NoError(t, err)

	dir := &fakeDirectory{
		user: &directory.User{
			Identity: directory.Identity{ID: "u-1", Username: "alice", Email: "alice@example.com"},
			Salt:     "abc123",
		},
		expectedKey: key,
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, 30*24*time.Hour)
	svc := auth.NewService(dir, sessions, logger)
	h := NewHandler(svc, sessions, []byte("test-secret"), time.Hour, 30*24*time.Hour, logger)

	return &fixture{handler: h, sessions: sessions, routes: h.Routes()}
}

func (f *fixture) get(t *testing.T, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.routes.ServeHTTP(w, req)
	return w
}

func (f *fixture) post(t *testing.T, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.routes.ServeHTTP(w, req)
	return w
}

func decodeForm(t *testing.T, w *httptest.ResponseRecorder) formView {
	t.Helper()
	var v formView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

// sessionIDFromCookies resolves the signed cookie back to the session ID.
func (f *fixture) sessionIDFromCookies(t *testing.T, cookies []*http.Cookie) string {
	t.Helper()
	for _, c := range cookies {
		if c.Name == SessionCookie {
			id, err := sessionIDFromToken(c.Value, []byte("test-secret"))
			require.NoError(t, err)
			return id
		}
	}
	t.Fatal("session cookie not set")
	return ""
}

func TestAuthPage_IssuesSessionAndChallenge(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/auth", nil)
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeForm(t, w)
	require.Contains(t, view.CaptchaQuestion, "What is")
	require.Zero(t, view.LoginAttempts)

	id := f.sessionIDFromCookies(t, w.Result().Cookies())
	sess, err := f.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, sess.CaptchaSet)
}

func TestLogin_RedirectsToDashboard(t *testing.T) {
	f := newFixture(t)

	page := f.get(t, "/auth", nil)
	cookies := page.Result().Cookies()

	w := f.post(t, "/auth/login", url.Values{
		"username": {"alice"},
		"password": {"correct-password!"},
	}, cookies)

	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))

	// the same cookie now resolves to an authenticated session
	dash := f.get(t, "/dashboard", cookies)
	require.Equal(t, http.StatusOK, dash.Code)
	require.Contains(t, dash.Body.String(), "alice@example.com")
}

func TestLogin_FailureRendersFormState(t *testing.T) {
	f := newFixture(t)

	page := f.get(t, "/auth", nil)
	cookies := page.Result().Cookies()

	w := f.post(t, "/auth/login", url.Values{
		"username": {"alice"},
		"password": {"wrong-password"},
	}, cookies)

	require.Equal(t, http.StatusOK, w.Code)
	view := decodeForm(t, w)
	require.Equal(t, "Invalid username or password", view.Error)
	require.Equal(t, 1, view.LoginAttempts)
	require.Contains(t, view.CaptchaQuestion, "What is")
}

func TestLogin_RememberSetsPersistentCookie(t *testing.T) {
	f := newFixture(t)

	page := f.get(t, "/auth", nil)
	cookies := page.Result().Cookies()

	w := f.post(t, "/auth/login", url.Values{
		"username":   {"alice"},
		"password":   {"correct-password!"},
		"rememberMe": {"on"},
	}, cookies)

	require.Equal(t, http.StatusSeeOther, w.Code)

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			found = true
			require.Equal(t, int((30 * 24 * time.Hour).Seconds()), c.MaxAge)
		}
	}
	require.True(t, found, "remember-me login must reissue the cookie")
}

func TestDashboard_RequiresAuth(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/dashboard", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/auth", w.Header().Get("Location"))
}

func TestAuthPage_RedirectsAuthenticatedUsers(t *testing.T) {
	f := newFixture(t)

	page := f.get(t, "/auth", nil)
	cookies := page.Result().Cookies()

	f.post(t, "/auth/login", url.Values{
		"username": {"alice"},
		"password": {"correct-password!"},
	}, cookies)

	w := f.get(t, "/auth", cookies)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestRegister_RendersResult(t *testing.T) {
	f := newFixture(t)

	page := f.get(t, "/auth", nil)
	cookies := page.Result().Cookies()
	id := f.sessionIDFromCookies(t, cookies)

	sess, err := f.sessions.Get(context.Background(), id)
	require.NoError(t, err)

	w := f.post(t, "/auth/register", url.Values{
		"username":        {"bob"},
		"email":           {"bob@example.com"},
		"password":        {"long-enough-password"},
		"confirmPassword": {"long-enough-password"},
		"captcha":         {strconv.Itoa(sess.CaptchaAnswer)},
	}, cookies)

	require.Equal(t, http.StatusOK, w.Code)
	view := decodeForm(t, w)
	require.Empty(t, view.Error)
	require.Contains(t, view.Success, "Account created successfully")
}

func TestRegister_WeakPassword(t *testing.T) {
	f := newFixture(t)

	page := f.get(t, "/auth", nil)
	cookies := page.Result().Cookies()

	w := f.post(t, "/auth/register", url.Values{
		"username":        {"bob"},
		"email":           {"bob@example.com"},
		"password":        {"short!"},
		"confirmPassword": {"short!"},
		"captcha":         {"5"},
	}, cookies)

	require.Equal(t, http.StatusOK, w.Code)
	view := decodeForm(t, w)
	require.Contains(t, view.Error, "too weak")
	require.NotEmpty(t, view.CaptchaQuestion)
}

func TestLogout_ClearsSession(t *testing.T) {
	f := newFixture(t)

	page := f.get(t, "/auth", nil)
	cookies := page.Result().Cookies()

	f.post(t, "/auth/login", url.Values{
		"username": {"alice"},
		"password": {"correct-password!"},
	}, cookies)

	w := f.post(t, "/auth/logout", nil, cookies)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))

	// the old cookie no longer grants access
	dash := f.get(t, "/dashboard", cookies)
	require.Equal(t, http.StatusSeeOther, dash.Code)
	require.Equal(t, "/auth", dash.Header().Get("Location"))

	// and logging out again is harmless
	again := f.post(t, "/auth/logout", nil, cookies)
	require.Equal(t, http.StatusSeeOther, again.Code)
}

func TestIndex_ReportsAuthentication(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestTamperedCookie_ReadsAsAnonymous(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/dashboard", []*http.Cookie{{Name: SessionCookie, Value: "not-a-token"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/auth", w.Header().Get("Location"))
}

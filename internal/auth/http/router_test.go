package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	authhttp "github.com/covenantlabs/azor-auth/internal/auth/http"
	"github.com/covenantlabs/azor-auth/internal/auth/notify"
	"github.com/covenantlabs/azor-auth/internal/auth/service"
	"github.com/covenantlabs/azor-auth/internal/auth/store/drivers/sqlite"
	"github.com/covenantlabs/azor-auth/pkg/cryptox"
	"github.com/covenantlabs/azor-auth/pkg/httpx"
	"github.com/covenantlabs/azor-auth/pkg/jwtx"
)

const (
	testIssuer   = "azor-auth-test"
	testPassword = "correct-horse-battery"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "authhttp-test-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

type captureNotifier struct {
	events []notify.Event
}

func (n *captureNotifier) Publish(_ context.Context, e notify.Event) error {
	n.events = append(n.events, e)
	return nil
}

func (n *captureNotifier) Close() error { return nil }

type testServer struct {
	router   *authhttp.Router
	server   *httptest.Server
	notifier *captureNotifier
	users    *service.UserService
	mfa      *service.MFAService
}

func newTestServer(t *testing.T, requireMFA, allowBootstrap bool) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	secret := make([]byte, jwtx.MinSecretLength)
	for i := range secret {
		secret[i] = 0x42
	}
	codec, err := jwtx.NewCodec(secret, testIssuer)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := &captureNotifier{}
	audit := &service.AuditService{Store: st, Logger: logger}
	mfa := &service.MFAService{Store: st, Audit: audit, Notifier: notifier, Issuer: "Azor"}

	router := authhttp.NewRouter(authhttp.CookieConfig{}, "test", requireMFA, st, logger)
	router.SessionService = &service.SessionService{
		Store:          st,
		Codec:          codec,
		MFA:            mfa,
		Audit:          audit,
		SessionTTL:     8 * time.Hour,
		BootstrapTTL:   15 * time.Minute,
		RequireMFA:     requireMFA,
		AllowBootstrap: allowBootstrap,
	}
	router.MFAService = mfa
	router.UserService = &service.UserService{Store: st, Audit: audit, Notifier: notifier}
	router.PasswordResetService = &service.PasswordResetService{
		Store:    st,
		Audit:    audit,
		Notifier: notifier,
		TTL:      time.Hour,
	}
	router.AuditService = audit

	// Tests exercise flows, not limits; the one rate limit test installs
	// its own limiter.
	router.NewLimiter = func(httpx.RateLimitConfig) httpx.Limiter {
		return httpx.NewLocalLimiter(httpx.RateLimitConfig{
			RequestsPerWindow: 10000,
			Window:            time.Minute,
			Burst:             10000,
		})
	}
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{
		router:   router,
		server:   server,
		notifier: notifier,
		users:    router.UserService,
		mfa:      mfa,
	}
}

func (ts *testServer) createUser(t *testing.T, email string, role domain.Role) domain.User {
	t.Helper()
	user, err := ts.users.Create(context.Background(), "", email, testPassword, role)
	require.NoError(t, err)
	return user
}

// login posts the credential form and returns the raw response.
func (ts *testServer) login(t *testing.T, username, password, mfaCode string) *http.Response {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	if mfaCode != "" {
		form.Set("mfa_code", mfaCode)
	}
	resp, err := http.Post(ts.server.URL+"/v1/auth/token", "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	require.NoError(t, err)
	return resp
}

func (ts *testServer) loginToken(t *testing.T, username, password, mfaCode string) authhttp.TokenResponse {
	t.Helper()
	resp := ts.login(t, username, password, mfaCode)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body authhttp.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// do issues an authenticated JSON request against the test server.
func (ts *testServer) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.server.URL+path, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func currentTOTP(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == authhttp.DefaultCookieName {
			return c
		}
	}
	return nil
}

package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"authgate/cmd/identity"
	"authgate/cmd/internal/auth/session"
	"authgate/cmd/security/password"
)

// memIdentity is an in-memory identity.Store with the same invariants
// as the Postgres one: unique normalized emails, hashed passwords.
type memIdentity struct {
	hasher  password.Config
	nextID  int64
	byEmail map[string]identity.User
	hashes  map[string]string
}

func newMemIdentity() *memIdentity {
	cfg := password.DefaultConfig()
	cfg.Cost = bcrypt.MinCost
	return &memIdentity{
		hasher:  cfg,
		nextID:  1,
		byEmail: make(map[string]identity.User),
		hashes:  make(map[string]string),
	}
}

func (m *memIdentity) Register(_ context.Context, in identity.RegisterInput) (identity.User, error) {
	email := identity.NormalizeEmail(in.Email)
	if _, exists := m.byEmail[email]; exists {
		return identity.User{}, identity.ErrDuplicateEmail
	}
	hash, err := m.hasher.Hash(in.Password)
	if err != nil {
		return identity.User{}, identity.ErrInvalidInput
	}
	u := identity.User{
		ID:        m.nextID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     email,
	}
	m.nextID++
	m.byEmail[email] = u
	m.hashes[email] = hash
	return u, nil
}

func (m *memIdentity) GetAuthByEmail(_ context.Context, email string) (identity.UserAuth, error) {
	email = identity.NormalizeEmail(email)
	u, ok := m.byEmail[email]
	if !ok {
		return identity.UserAuth{}, identity.ErrNotFound
	}
	return identity.UserAuth{ID: u.ID, Email: u.Email, PasswordHash: m.hashes[email]}, nil
}

func (m *memIdentity) GetByID(_ context.Context, id int64) (identity.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return identity.User{}, identity.ErrNotFound
}

func newTestMux(t *testing.T, cookieEnabled bool) *http.ServeMux {
	t.Helper()

	users := newMemIdentity()
	verifier := password.DefaultConfig()
	verifier.Cost = bcrypt.MinCost

	authority, err := session.NewAuthority(users, session.NewMemoryStore(), verifier, session.DefaultConfig())
	if err != nil {
		t.Fatalf("NewAuthority: %v", err)
	}

	cfg := LoadConfigFromEnv()
	cfg.CookieEnabled = cookieEnabled

	h, err := NewHandler(slog.New(slog.DiscardHandler), cfg, verifier.Policy, users, authority, true)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any, mod func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if mod != nil {
		mod(req)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp.Error.Code
}

func adaRegistration() map[string]string {
	return map[string]string{
		"first_name":       "Ada",
		"last_name":        "Lovelace",
		"email":            "ada@example.com",
		"password":         "enchantress",
		"confirm_password": "enchantress",
	}
}

func TestRegisterLoginProtectedLogout(t *testing.T) {
	mux := newTestMux(t, false)

	// Register.
	rec := doJSON(t, mux, http.MethodPost, "/auth/register", adaRegistration(), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d, body %s", rec.Code, rec.Body.String())
	}
	var reg registerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if reg.User.FirstName != "Ada" || reg.User.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", reg.User)
	}

	// Login with the right password.
	rec = doJSON(t, mux, http.MethodPost, "/auth/login", map[string]string{
		"email": "ada@example.com", "password": "enchantress",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", rec.Code, rec.Body.String())
	}
	var login loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if login.Session.Token == "" {
		t.Fatal("login response should carry the token when cookies are off")
	}
	if login.User.LastName != "Lovelace" {
		t.Fatalf("unexpected user: %+v", login.User)
	}

	bearer := func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+login.Session.Token)
	}

	// Protected profile with the session.
	rec = doJSON(t, mux, http.MethodGet, "/me", nil, bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("/me: status %d, body %s", rec.Code, rec.Body.String())
	}
	var me meResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode /me response: %v", err)
	}
	if me.User.FirstName != "Ada" || me.User.LastName != "Lovelace" || me.User.Email != "ada@example.com" {
		t.Fatalf("unexpected profile: %+v", me.User)
	}

	// Logout, then the session stops working.
	rec = doJSON(t, mux, http.MethodPost, "/auth/logout", nil, bearer)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, mux, http.MethodGet, "/me", nil, bearer)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("/me after logout: status %d, want 401", rec.Code)
	}
	if code := errorCode(t, rec); code != "session_not_active" {
		t.Fatalf("/me after logout: code %q, want session_not_active", code)
	}

	// Logout again is still a 204.
	rec = doJSON(t, mux, http.MethodPost, "/auth/logout", nil, bearer)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("second logout: status %d", rec.Code)
	}
}

func TestRegisterValidationOrder(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(map[string]string)
		wantCode string
	}{
		{
			name:     "missing first name",
			mutate:   func(m map[string]string) { m["first_name"] = "  " },
			wantCode: "fields_missing",
		},
		{
			name:     "missing confirm",
			mutate:   func(m map[string]string) { m["confirm_password"] = "" },
			wantCode: "fields_missing",
		},
		{
			name: "short password",
			mutate: func(m map[string]string) {
				m["password"] = "abc12"
				m["confirm_password"] = "abc12"
			},
			wantCode: "password_too_short",
		},
		{
			name: "short password outranks mismatch",
			mutate: func(m map[string]string) {
				m["password"] = "abc12"
				m["confirm_password"] = "different"
			},
			wantCode: "password_too_short",
		},
		{
			name:     "confirm mismatch",
			mutate:   func(m map[string]string) { m["confirm_password"] = "different1" },
			wantCode: "password_mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(t, false)

			body := adaRegistration()
			tt.mutate(body)

			rec := doJSON(t, mux, http.MethodPost, "/auth/register", body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400; body %s", rec.Code, rec.Body.String())
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Fatalf("code %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	mux := newTestMux(t, false)

	if rec := doJSON(t, mux, http.MethodPost, "/auth/register", adaRegistration(), nil); rec.Code != http.StatusCreated {
		t.Fatalf("first register: status %d", rec.Code)
	}

	// Same address with different case still collides.
	body := adaRegistration()
	body["email"] = "ADA@Example.COM"
	rec := doJSON(t, mux, http.MethodPost, "/auth/register", body, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status %d, want 409; body %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "duplicate_email" {
		t.Fatalf("code %q, want duplicate_email", code)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	mux := newTestMux(t, false)

	if rec := doJSON(t, mux, http.MethodPost, "/auth/register", adaRegistration(), nil); rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d", rec.Code)
	}

	cases := []map[string]string{
		{"email": "ada@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": "enchantress"},
	}
	for _, body := range cases {
		rec := doJSON(t, mux, http.MethodPost, "/auth/login", body, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("login %v: status %d, want 401", body["email"], rec.Code)
		}
		if code := errorCode(t, rec); code != "invalid_credentials" {
			t.Fatalf("login %v: code %q, want invalid_credentials", body["email"], code)
		}
	}

	rec := doJSON(t, mux, http.MethodPost, "/auth/login", map[string]string{"email": "", "password": ""}, nil)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "fields_missing" {
		t.Fatalf("empty login: status %d code %q", rec.Code, errorCode(t, rec))
	}
}

func TestCookieTransport(t *testing.T) {
	mux := newTestMux(t, true)

	if rec := doJSON(t, mux, http.MethodPost, "/auth/register", adaRegistration(), nil); rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d", rec.Code)
	}

	rec := doJSON(t, mux, http.MethodPost, "/auth/login", map[string]string{
		"email": "ada@example.com", "password": "enchantress",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d", rec.Code)
	}

	var login loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if login.Session.Token != "" {
		t.Fatal("token must be blanked from the body when the cookie carries it")
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "authgate_session" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("login should set the session cookie")
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}

	withCookie := func(r *http.Request) { r.AddCookie(cookie) }

	rec = doJSON(t, mux, http.MethodGet, "/me", nil, withCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("/me via cookie: status %d, body %s", rec.Code, rec.Body.String())
	}

	// Logout clears the cookie.
	rec = doJSON(t, mux, http.MethodPost, "/auth/logout", nil, withCookie)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d", rec.Code)
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "authgate_session" && c.Value == "" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("logout should expire the session cookie")
	}
}

func TestProtectedRouteWithoutSession(t *testing.T) {
	mux := newTestMux(t, false)

	rec := doJSON(t, mux, http.MethodGet, "/me", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-real-token")
	})
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "session_not_active" {
		t.Fatalf("bogus token: status %d code %q", rec.Code, errorCode(t, rec))
	}
}

func TestStorageDisabledAnswers503(t *testing.T) {
	cfg := LoadConfigFromEnv()
	h, err := NewHandler(slog.New(slog.DiscardHandler), cfg, password.DefaultConfig().Policy, nil, nil, false)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)

	for _, path := range []string{"/auth/register", "/auth/login", "/auth/logout"} {
		rec := doJSON(t, mux, http.MethodPost, path, map[string]string{}, nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: status %d, want 503", path, rec.Code)
		}
		if code := errorCode(t, rec); code != "storage_unavailable" {
			t.Fatalf("%s: code %q, want storage_unavailable", path, code)
		}
	}

	rec := doJSON(t, mux, http.MethodGet, "/me", nil, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("/me: status %d, want 503", rec.Code)
	}
}

func TestRejectsUnknownJSONFields(t *testing.T) {
	mux := newTestMux(t, false)

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"first_name":"Ada","surprise":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_json" {
		t.Fatalf("status %d code %q, want 400 invalid_json", rec.Code, errorCode(t, rec))
	}
}

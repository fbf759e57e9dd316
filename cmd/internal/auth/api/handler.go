package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"

	"authgate/cmd/identity"
	"authgate/cmd/internal/auth/session"
	"authgate/cmd/security/password"
)

// Handler wires the HTTP auth endpoints to the identity store and the
// session authority.
type Handler struct {
	log *slog.Logger
	cfg Config

	dbEnabled bool
	users     identity.Store
	authority *session.Authority
	policy    password.Policy

	authResults *prometheus.CounterVec
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithAuthMetrics wires a counter with (operation, result) labels that
// the handlers bump on every auth decision.
func WithAuthMetrics(vec *prometheus.CounterVec) HandlerOption {
	return func(h *Handler) {
		if h == nil || vec == nil {
			return
		}
		h.authResults = vec
	}
}

// NewHandler constructs an auth Handler. When dbEnabled is false the
// endpoints answer 503 rather than failing at startup.
func NewHandler(log *slog.Logger, cfg Config, policy password.Policy, users identity.Store, authority *session.Authority, dbEnabled bool, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:       log,
		cfg:       cfg,
		dbEnabled: dbEnabled,
		users:     users,
		authority: authority,
		policy:    policy,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}

	if !dbEnabled {
		return h, nil
	}
	if users == nil {
		return nil, errors.New("auth: nil identity store")
	}
	if authority == nil {
		return nil, errors.New("auth: nil session authority")
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.Handle("/me", h.RequireSession(http.HandlerFunc(h.handleMe)))
}

func (h *Handler) observe(operation, result string) {
	if h.authResults != nil {
		h.authResults.WithLabelValues(operation, result).Inc()
	}
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage not configured")
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	email := identity.NormalizeEmail(req.Email)

	// Presence first, then password length, then the confirm check.
	// Each failure names exactly one problem.
	if firstName == "" || lastName == "" || email == "" || req.Password == "" || req.ConfirmPassword == "" {
		h.observe("register", "fields_missing")
		writeError(w, http.StatusBadRequest, "fields_missing", "all fields are required")
		return
	}
	if utf8.RuneCountInString(req.Password) < h.policy.MinLength {
		h.observe("register", "password_too_short")
		writeError(w, http.StatusBadRequest, "password_too_short", "password is too short")
		return
	}
	if req.Password != req.ConfirmPassword {
		h.observe("register", "password_mismatch")
		writeError(w, http.StatusBadRequest, "password_mismatch", "passwords do not match")
		return
	}

	user, err := h.users.Register(r.Context(), identity.RegisterInput{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  req.Password,
	})
	if err != nil {
		switch {
		case identity.IsDuplicateEmail(err):
			h.observe("register", "duplicate_email")
			writeError(w, http.StatusConflict, "duplicate_email", "email is already registered")
		case identity.IsInvalidInput(err):
			h.observe("register", "invalid_request")
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid registration data")
		case identity.IsUnavailable(err):
			h.log.Error("auth.register.store.fail", "err", err)
			h.observe("register", "unavailable")
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "please retry later")
		default:
			h.log.Error("auth.register.fail", "err", err)
			h.observe("register", "error")
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.observe("register", "ok")
	writeJSON(w, http.StatusCreated, registerResponse{User: toUserResponse(user)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage not configured")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := identity.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		h.observe("login", "fields_missing")
		writeError(w, http.StatusBadRequest, "fields_missing", "email and password are required")
		return
	}

	ctx := r.Context()

	userID, err := h.authority.Authenticate(ctx, email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidCredentials):
			h.observe("login", "invalid_credentials")
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		case errors.Is(err, session.ErrUnavailable):
			h.log.Error("auth.login.authenticate.fail", "err", err)
			h.observe("login", "unavailable")
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "please retry later")
		default:
			h.log.Error("auth.login.fail", "err", err)
			h.observe("login", "error")
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	started, err := h.authority.Start(ctx, userID)
	if err != nil {
		h.log.Error("auth.login.start_session.fail", "err", err)
		h.observe("login", "error")
		if errors.Is(err, session.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "please retry later")
		} else {
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		h.log.Error("auth.login.load_user.fail", "err", err)
		h.observe("login", "error")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	respSession := sessionResponse{
		SessionID: started.SessionID,
		Token:     started.Token,
		ExpiresAt: started.ExpiresAt,
	}
	if h.cfg.CookieEnabled {
		h.setSessionCookie(w, started.Token, started.ExpiresAt)
		respSession.Token = ""
	}

	h.observe("login", "ok")
	writeJSON(w, http.StatusOK, loginResponse{
		User:    toUserResponse(user),
		Session: respSession,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage not configured")
		return
	}

	// Logout is idempotent: unknown, already-ended and absent tokens
	// all produce the same 204.
	if tok := h.sessionTokenFromRequest(r); tok != "" {
		if err := h.authority.End(r.Context(), tok); err != nil {
			if errors.Is(err, session.ErrUnavailable) {
				h.log.Error("auth.logout.fail", "err", err)
				h.observe("logout", "unavailable")
				writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "please retry later")
				return
			}
			h.log.Error("auth.logout.fail", "err", err)
		}
	}

	h.clearSessionCookie(w)
	h.observe("logout", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID, ok := UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "session_not_active", "authentication required")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		switch {
		case identity.IsNotFound(err):
			// The account vanished under an otherwise valid session.
			writeError(w, http.StatusUnauthorized, "session_not_active", "session not active")
		case identity.IsUnavailable(err):
			h.log.Error("auth.me.load_user.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "please retry later")
		default:
			h.log.Error("auth.me.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: toUserResponse(user)})
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

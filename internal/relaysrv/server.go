package relaysrv

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"veilchat/internal/auth"
	"veilchat/internal/directory"
	"veilchat/internal/domain"
	"veilchat/internal/keybundle"
	"veilchat/internal/message"
	"veilchat/internal/registry"
)

// Server owns the HTTP surface of the relay. Construct with New, mount
// Handler, or run ListenAndServe for the full lifecycle.
type Server struct {
	cfg       Config
	log       *zap.Logger
	verifier  *auth.Verifier
	directory *directory.Service
	bundles   *keybundle.Service
	messages  *message.Service
	conns     *registry.Registry
	limiter   *keyLimiter
	metrics   *metrics
	router    chi.Router
}

func New(
	cfg Config,
	log *zap.Logger,
	verifier *auth.Verifier,
	dir *directory.Service,
	bundles *keybundle.Service,
	messages *message.Service,
	conns *registry.Registry,
) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		verifier:  verifier,
		directory: dir,
		bundles:   bundles,
		messages:  messages,
		conns:     conns,
		limiter:   newKeyLimiter(cfg.RateRPS, cfg.RateBurst),
		metrics:   newMetrics(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimitByAddr)
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/contacts", s.handleListContacts)
			r.Post("/contacts", s.handleAddContact)
			r.Post("/keys", s.handlePublishKeys)
			r.Post("/keys/exchange", s.handleExchangeKeys)
			r.Get("/messages/{contactID}", s.handleHistory)
		})

		// Auth happens inside the handler, before the upgrade.
		r.Get("/ws", s.handleWS)
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then drains with
// a short grace period.
func (s *Server) ListenAndServe(ctx context.Context) error {
	// No Read/WriteTimeout on the server itself: websocket connections are
	// long-lived. The header timeout still bounds slow handshakes, and the
	// websocket pumps manage their own deadlines.
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type contextKey string

const principalKey contextKey = "veilchat.principal"

// principalFrom extracts the authenticated identity placed by requireAuth.
func principalFrom(ctx context.Context) (domain.PrincipalIdentity, bool) {
	p, ok := ctx.Value(principalKey).(domain.PrincipalIdentity)
	return p, ok
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.verifier.Verify(bearerToken(r))
		if err != nil {
			s.metrics.authFailures.Inc()
			s.writeError(w, r, err)
			return
		}
		if !s.limiter.allow(principal.ID, time.Now()) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rateLimitByAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(r.RemoteAddr, time.Now()) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// bearerToken pulls the token from the Authorization header, or from the
// token query parameter as a websocket-handshake fallback.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// writeError maps the error taxonomy onto HTTP statuses. Infrastructure
// detail never reaches the client; it goes to the log instead.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrIntegrity):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.log.Error("internal error",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pinwheelhq/atrium/pkg/audit"
	"github.com/pinwheelhq/atrium/pkg/httputil"
	"github.com/pinwheelhq/atrium/pkg/middleware"
	"github.com/pinwheelhq/atrium/pkg/observability"
	"github.com/pinwheelhq/atrium/pkg/policy"
)

// maxRequestBody caps request bodies; every payload here is small JSON
const maxRequestBody = 1 << 20

// AuditRecorder records audit events off the request path
type AuditRecorder interface {
	LogAsync(event *audit.Event)
}

// Server wires the HTTP surface: routing, middleware and handler groups
type Server struct {
	router  *mux.Router
	logger  *observability.Logger
	metrics *observability.Metrics

	accountHandlers      *AccountHandlers
	projectHandlers      *ProjectHandlers
	subscriptionHandlers *SubscriptionHandlers
	auditHandlers        *AuditHandlers

	authMW      *middleware.AuthMiddleware
	rateLimitMW *middleware.RateLimitMiddleware
}

// NewServer creates the API server. The rate limit middleware is optional;
// pass nil when rate limiting is disabled.
func NewServer(
	accountsSvc AccountService,
	projectsSvc ProjectService,
	subscriptionsSvc SubscriptionService,
	authz *policy.Policy,
	auditLog AuditLog,
	authMW *middleware.AuthMiddleware,
	rateLimitMW *middleware.RateLimitMiddleware,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		logger:      logger,
		metrics:     metrics,
		authMW:      authMW,
		rateLimitMW: rateLimitMW,
	}

	s.accountHandlers = NewAccountHandlers(accountsSvc, authz, auditLog, metrics)
	s.projectHandlers = NewProjectHandlers(projectsSvc, authz, auditLog, metrics)
	s.subscriptionHandlers = NewSubscriptionHandlers(subscriptionsSvc, authz, auditLog, metrics)
	s.auditHandlers = NewAuditHandlers(auditLog, authz, metrics)

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	apiV1 := s.router.PathPrefix("/api/v1").Subrouter()

	// Public routes: signup and login are the only unauthenticated operations
	public := apiV1.NewRoute().Subrouter()
	if s.rateLimitMW != nil {
		public.Use(s.rateLimitMW.Handler)
	}
	public.HandleFunc("/signup", s.accountHandlers.Signup).Methods("POST")
	public.HandleFunc("/login", s.accountHandlers.Login).Methods("POST")

	// Authenticated routes: the rate limiter runs after auth so the window
	// is keyed on the caller's organization
	authed := apiV1.NewRoute().Subrouter()
	authed.Use(s.authMW.Handler)
	if s.rateLimitMW != nil {
		authed.Use(s.rateLimitMW.Handler)
	}

	s.accountHandlers.RegisterRoutes(authed)
	s.projectHandlers.RegisterRoutes(authed)
	s.subscriptionHandlers.RegisterRoutes(authed)
	s.auditHandlers.RegisterRoutes(authed)
}

// Handler returns the fully assembled HTTP handler with the outer
// middleware chain applied.
func (s *Server) Handler() http.Handler {
	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		observability.HTTPMetricsMiddleware(s.metrics),
		httputil.CORSMiddleware([]string{"*"}),
		httputil.MaxBytesMiddleware(maxRequestBody),
	)
	return chain(s.router)
}

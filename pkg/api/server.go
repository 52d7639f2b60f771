package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/warden/pkg/httputil"
	"github.com/platinummonkey/warden/pkg/middleware"
	"github.com/platinummonkey/warden/pkg/observability"
)

// Server exposes access resolution over HTTP. Every org-scoped route runs
// behind the access middleware; handlers only ask questions of the resolved
// evaluator.
type Server struct {
	router   *mux.Router
	entities EntityLookup
	mw       *middleware.AccessMiddleware
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewServer creates the API server and wires its routes. metrics may be nil.
func NewServer(entities EntityLookup, mw *middleware.AccessMiddleware, logger *observability.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		entities: entities,
		mw:       mw,
		logger:   logger,
		metrics:  metrics,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(httputil.RecoveryMiddleware(s.logger))

	s.router.HandleFunc("/healthz", s.health).Methods("GET")

	org := s.router.PathPrefix("/api/v1/organizations/{orgSlug}").Subrouter()
	org.Use(s.mw.Handler)
	org.Handle("/access", s.instrument("/access",
		http.HandlerFunc(s.getAccessSummary))).Methods("GET")
	org.Handle("/teams/{teamID}/access", s.instrument("/teams/access",
		http.HandlerFunc(s.getTeamAccess))).Methods("GET")
	org.Handle("/projects/{projectID}/access", s.instrument("/projects/access",
		http.HandlerFunc(s.getProjectAccess))).Methods("GET")
}

func (s *Server) instrument(path string, next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return s.metrics.InstrumentHandler(path, next)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

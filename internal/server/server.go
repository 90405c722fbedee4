// Package server exposes the Memoroo HTTP API.
//
// Every /api/v1 route except registration sits behind bearer-token
// authentication; the resolved
// owner id scopes all storage access, so handlers never read an owner from
// the request body. Domain errors become HTTP status codes in exactly one
// place (respond.go); handlers propagate errors instead of picking statuses.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/memoroo/memoroo/internal/auth"
	"github.com/memoroo/memoroo/internal/chat"
	"github.com/memoroo/memoroo/internal/extract"
	"github.com/memoroo/memoroo/internal/health"
	"github.com/memoroo/memoroo/internal/lifeos"
	"github.com/memoroo/memoroo/internal/observe"
	"github.com/memoroo/memoroo/internal/retrieval"
	"github.com/memoroo/memoroo/internal/units"
)

// Deps bundles the services the server routes to. Auth, Health, and every
// service except Extractor are required; a nil Extractor disables attachment
// uploads. A nil Metrics falls back to the process-wide default instruments.
type Deps struct {
	Auth          *auth.Authenticator
	Conversations *chat.Conversations
	Orchestrator  *chat.Orchestrator
	Units         *units.Service
	Retriever     *retrieval.Service
	Extractor     *extract.Service
	Life          *lifeos.Service
	Health        *health.Handler
	Metrics       *observe.Metrics
}

// Server is the Memoroo HTTP API server.
type Server struct {
	deps   Deps
	router chi.Router
}

// New creates a [Server] and builds its route table.
func New(deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	s := &Server{deps: deps}
	s.routes()
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(observe.Middleware(s.deps.Metrics))

	// Operational endpoints stay outside auth so probes and scrapers do not
	// need a user token.
	r.Get("/healthz", s.deps.Health.Healthz)
	r.Get("/readyz", s.deps.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Registration is the one API route outside auth: it is how a client
		// obtains a token in the first place.
		r.Post("/auth/register", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(s.deps.Auth.Middleware)
			s.apiRoutes(r)
		})
	})

	s.router = r
}

// apiRoutes mounts the authenticated API surface onto r.
func (s *Server) apiRoutes(r chi.Router) {
	r.Route("/conversations", func(r chi.Router) {
		r.Post("/", s.handleCreateConversation)
		r.Get("/", s.handleListConversations)
		r.Get("/{conversationID}", s.handleGetConversation)
		r.Delete("/{conversationID}", s.handleDeleteConversation)
		r.Get("/{conversationID}/messages", s.handleListMessages)
		r.Post("/{conversationID}/chat", s.handleChatTurn)
	})
	r.Delete("/messages/{messageID}", s.handleDeleteMessage)

	r.Route("/units", func(r chi.Router) {
		r.Post("/", s.handleCreateUnit)
		r.Get("/", s.handleListUnits)
		r.Post("/reindex", s.handleReindex)
		r.Get("/{unitID}", s.handleGetUnit)
		r.Put("/{unitID}", s.handleUpdateUnit)
		r.Delete("/{unitID}", s.handleDeleteUnit)
		r.Get("/{unitID}/edges", s.handleListEdges)
		r.Get("/{unitID}/neighbors", s.handleNeighbors)
	})
	r.Get("/search", s.handleSearch)

	r.Post("/edges", s.handleAddEdge)
	r.Delete("/edges", s.handleDeleteEdge)

	r.Post("/attachments", s.handleUploadAttachment)

	r.Route("/life", func(r chi.Router) {
		r.Post("/moods", s.handleAddMoodLog)
		r.Get("/moods", s.handleListMoodLogs)
		r.Delete("/moods/{moodID}", s.handleDeleteMoodLog)
		r.Post("/timeline", s.handleAddTimelineEvent)
		r.Get("/timeline", s.handleListTimelineEvents)
		r.Delete("/timeline/{eventID}", s.handleDeleteTimelineEvent)
		r.Post("/habits", s.handleCreateHabit)
		r.Get("/habits", s.handleListHabits)
		r.Get("/habits/{habitID}", s.handleGetHabit)
		r.Delete("/habits/{habitID}", s.handleDeleteHabit)
		r.Post("/habits/{habitID}/checkin", s.handleHabitCheckIn)
	})
}

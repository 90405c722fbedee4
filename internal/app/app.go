// Package app wires all Memoroo subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects storage,
// providers, services, and the HTTP server; Run serves until the context is
// cancelled; Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/memoroo/memoroo/internal/auth"
	"github.com/memoroo/memoroo/internal/chat"
	"github.com/memoroo/memoroo/internal/config"
	"github.com/memoroo/memoroo/internal/extract"
	"github.com/memoroo/memoroo/internal/health"
	"github.com/memoroo/memoroo/internal/lifeos"
	"github.com/memoroo/memoroo/internal/mood"
	"github.com/memoroo/memoroo/internal/observe"
	"github.com/memoroo/memoroo/internal/resilience"
	"github.com/memoroo/memoroo/internal/retrieval"
	"github.com/memoroo/memoroo/internal/server"
	"github.com/memoroo/memoroo/internal/units"
	"github.com/memoroo/memoroo/pkg/memory"
	memmock "github.com/memoroo/memoroo/pkg/memory/mock"
	"github.com/memoroo/memoroo/pkg/memory/postgres"
	"github.com/memoroo/memoroo/pkg/provider/embeddings"
	"github.com/memoroo/memoroo/pkg/provider/llm"
	"github.com/memoroo/memoroo/pkg/provider/ocr"
	"github.com/memoroo/memoroo/pkg/provider/stt"
)

// defaultEmbeddingDimensions matches OpenAI text-embedding-3-small, the most
// common embeddings configuration.
const defaultEmbeddingDimensions = 1536

// Providers holds one interface value per provider slot. LLM and Embeddings
// are required; STT and OCR may be nil, which disables the matching
// attachment kind. Populated by main via the config registry.
type Providers struct {
	LLM        llm.Provider
	Embeddings embeddings.Provider
	STT        stt.Provider
	OCR        ocr.Provider
}

// Store is the combined storage contract the services are wired onto. Both
// the postgres store and the in-memory mock satisfy it.
type Store interface {
	memory.UnitStore
	memory.VectorIndex
	memory.ConversationStore
	memory.GraphStore
	memory.LifeStore
	memory.UserStore
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	store   Store
	pinger  health.Pinger
	metrics *observe.Metrics

	llmGroup *resilience.LLMFallback
	embGroup *resilience.EmbeddingsFallback

	conversations *chat.Conversations
	orchestrator  *chat.Orchestrator
	unitSvc       *units.Service
	retriever     *retrieval.Service
	extractor     *extract.Service
	life          *lifeos.Service

	handler    http.Handler
	httpServer *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for [New]. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a storage backend instead of connecting to Postgres.
func WithStore(s Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a metrics set instead of the process-wide default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.LLM == nil {
		return nil, fmt.Errorf("app: an llm provider is required")
	}
	if providers.Embeddings == nil {
		return nil, fmt.Errorf("app: an embeddings provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	a.initServices()
	a.initHTTP()

	return a, nil
}

// initStore connects to Postgres, or falls back to the in-memory store when
// no DSN is configured. An injected store skips both.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dsn := a.cfg.Memory.PostgresDSN
	if dsn == "" {
		slog.Warn("no postgres_dsn configured; memories will not survive a restart")
		a.store = memmock.New()
		return nil
	}

	dims := a.cfg.Memory.EmbeddingDimensions
	if dims == 0 {
		dims = defaultEmbeddingDimensions
	}
	store, err := postgres.NewStore(ctx, dsn, dims)
	if err != nil {
		return err
	}
	a.store = store
	a.pinger = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// initServices builds the service graph on top of the store. Model providers
// are wrapped in circuit-breaking fallback chains so a flapping backend trips
// open instead of stalling every turn.
func (a *App) initServices() {
	generator := resilience.NewLLMFallback(a.providers.LLM, providerName(a.cfg.Providers.LLM), resilience.FallbackConfig{})
	embedder := resilience.NewEmbeddingsFallback(a.providers.Embeddings, providerName(a.cfg.Providers.Embeddings), resilience.FallbackConfig{})
	a.llmGroup = generator
	a.embGroup = embedder

	var sttProvider stt.Provider
	if a.providers.STT != nil {
		sttProvider = resilience.NewSTTFallback(a.providers.STT, providerName(a.cfg.Providers.STT), resilience.FallbackConfig{})
	}

	a.retriever = retrieval.NewService(embedder, a.store, a.store, retrieval.Options{
		TopK:     a.cfg.Retrieval.TopK,
		MinScore: a.cfg.Retrieval.MinScore,
	}, a.metrics)
	a.unitSvc = units.NewService(a.store, a.store, a.store, embedder, a.metrics)
	a.conversations = chat.NewConversations(a.store)

	classifier := mood.NewClassifier(generator, mood.WithMetrics(a.metrics))
	a.orchestrator = chat.NewOrchestrator(a.store, a.store, a.retriever, generator, classifier, chat.Options{
		GenerationTimeout:  a.cfg.Chat.GenerationTimeout,
		MaxHistoryMessages: a.cfg.Chat.MaxHistoryMessages,
		SystemPrompt:       a.cfg.Chat.SystemPrompt,
	}, a.metrics)

	a.extractor = extract.NewService(a.providers.OCR, sttProvider, a.store, a.metrics)
	a.life = lifeos.NewService(a.store)
}

// initHTTP assembles the HTTP surface.
func (a *App) initHTTP() {
	healthHandler := health.New(
		health.Database(a.pinger),
		health.Named("providers", func(ctx context.Context) error {
			if !a.llmGroup.Healthy() {
				return fmt.Errorf("all llm backends tripped open")
			}
			if !a.embGroup.Healthy() {
				return fmt.Errorf("all embeddings backends tripped open")
			}
			return nil
		}),
	)

	a.handler = server.New(server.Deps{
		Auth:          auth.NewAuthenticator(a.store),
		Conversations: a.conversations,
		Orchestrator:  a.orchestrator,
		Units:         a.unitSvc,
		Retriever:     a.retriever,
		Extractor:     a.extractor,
		Life:          a.life,
		Health:        healthHandler,
		Metrics:       a.metrics,
	})

	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Handler returns the assembled HTTP handler. Intended for tests that serve
// the API without binding a port.
func (a *App) Handler() http.Handler { return a.handler }

// Retriever returns the retrieval service, for wiring the MCP server.
func (a *App) Retriever() *retrieval.Service { return a.retriever }

// Units returns the unit service, for wiring the MCP server.
func (a *App) Units() *units.Service { return a.unitSvc }

// Run serves HTTP until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpServer.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("http server listening", "addr", a.httpServer.Addr, "tls", a.cfg.Server.TLS != nil)

	select {
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the HTTP server, then tears down subsystems in order. It
// respects the context deadline: when ctx expires, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.httpServer.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// providerName labels a provider slot for circuit-breaker logs.
func providerName(entry config.ProviderEntry) string {
	if entry.Name == "" {
		return "primary"
	}
	return entry.Name
}

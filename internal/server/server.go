package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doganyilmaz/profile-assistant/config"
	"github.com/doganyilmaz/profile-assistant/internal/agent"
	"github.com/doganyilmaz/profile-assistant/internal/fetch"
	"github.com/doganyilmaz/profile-assistant/internal/orchestrator"
	"github.com/doganyilmaz/profile-assistant/internal/rag"
	"github.com/doganyilmaz/profile-assistant/internal/store"
	"github.com/doganyilmaz/profile-assistant/provider"
	"github.com/doganyilmaz/profile-assistant/repository"
	"github.com/doganyilmaz/profile-assistant/repository/redis_repository"
	"github.com/doganyilmaz/profile-assistant/tools/embedding"
)

// Run wires every dependency and serves the HTTP API until the process
// is stopped.
func Run(configPath, addr string) error {
	cfg := config.LoadConfig(configPath)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	dsn, err := cfg.Databases.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	llm, err := provider.NewProvider(provider.OpenAI, cfg.Providers)
	if err != nil {
		return err
	}
	embedder := embedding.NewEmbedding(llm)

	ragLogger := log.New(log.Writer(), "[RAG] ", log.LstdFlags)
	chunking := rag.ChunkingConfig{ChunkSize: cfg.RAG.ChunkSize, Overlap: cfg.RAG.ChunkOverlap}
	ingestion, err := rag.NewIngestionPipeline(st, embedder, chunking, ragLogger)
	if err != nil {
		return err
	}
	ingestion.SetRetryPolicy(cfg.RAG.EmbedRetries, cfg.RAG.EmbedBackoff)
	retrieval, err := rag.NewRetrievalPipeline(st, embedder, ragLogger)
	if err != nil {
		return err
	}
	retrieval.SetMinScore(cfg.RAG.MinScore)

	gate := orchestrator.NewGuardrailGate(log.New(log.Writer(), "[GUARD] ", log.LstdFlags))
	responders := orchestrator.Responders{
		Profile:   agent.NewProfileAgent(llm),
		GitHub:    agent.NewGitHubAgent(llm),
		CV:        agent.NewCVAgent(cfg.CV.DownloadURL),
		Guardrail: agent.NewOutOfScopeAgent(gate),
	}
	orch, err := orchestrator.New(orchestrator.Config{
		Timeout:          cfg.General.RequestTimeout,
		TopK:             cfg.RAG.TopK,
		MaxContextLength: cfg.RAG.MaxContextLength,
	}, responders, retrieval, log.New(log.Writer(), "[ORCH] ", log.LstdFlags))
	if err != nil {
		return err
	}

	conversations, convErr := repository.NewConversationRepository(ctx, repository.RepoTypeRedis, cfg.Databases.Redis)
	if convErr != nil {
		baseLogger.Printf("redis unavailable, conversation history disabled: %v", convErr)
	}
	rdbClient, rdbErr := redis_repository.Conn(ctx, cfg.Databases.Redis.Host, cfg.Databases.Redis.Port, cfg.Databases.Redis.Password, cfg.Databases.Redis.DB, cfg.Databases.Redis.Timeout)
	if rdbErr != nil {
		baseLogger.Printf("redis unavailable, scheduled reingestion runs without locks: %v", rdbErr)
	}

	httpClient := fetch.NewHTTPClient(cfg.General.RequestTimeout, 2, 0)
	ingestor := &Ingestor{
		Store:      st,
		Pipeline:   ingestion,
		GitHub:     fetch.NewGitHubClient(httpClient, cfg.Ingestion.GitHubToken),
		GitHubUser: cfg.Ingestion.GitHubUser,
		Logger:     log.New(log.Writer(), "[INGEST] ", log.LstdFlags),
	}

	api := e.Group("/api")
	ch := &ChatHandler{Service: orch, Conversations: conversations, Logger: baseLogger}
	ch.Register(api.Group("/chat"))
	ih := &IngestHandler{Ingestor: ingestor}
	ih.Register(api.Group("/profiles"))

	sched := &Scheduler{
		Ingestor: ingestor,
		Rdb:      rdbClient,
		Schedule: cfg.Ingestion.Schedule,
		Stop:     make(chan struct{}),
	}
	sched.Start()

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":8080"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"callqa/internal/adapter"
	"callqa/internal/graphiti"
	"callqa/internal/health"
	"callqa/internal/metrics"
	"callqa/internal/qa"
	"callqa/pkg/config"
	"callqa/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Options{
		Environment: cfg.Env,
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting call Q&A web server...")
	cfg.LogSummary(log)

	ctx := context.Background()

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	llm := adapter.NewLLMAdapter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ModelID)
	graph := graphiti.NewClient(driver, graphiti.NewLLMExtractor(llm))

	if err := graph.BuildIndicesAndConstraints(ctx); err != nil {
		log.Fatal("Failed to build graph indices", zap.Error(err))
	}

	store, err := metrics.Open(cfg.MetricsDBPath)
	if err != nil {
		log.Fatal("Failed to open metrics store", zap.Error(err))
	}

	service := qa.NewService(graph, llm, metrics.NewMonitor(store))
	analytics := metrics.NewAnalytics(store)
	checker := health.NewChecker(graph, store)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(service, analytics, checker, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := graph.Close(ctx); err != nil {
		log.Error("Failed to close graph connection", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		log.Error("Failed to close metrics store", zap.Error(err))
	}

	log.Info("Server exited")
}

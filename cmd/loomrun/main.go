// Command loomrun loads a graph definition and executes it, printing
// the final data pool as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/go-loom/infrastructure/llm"
	"github.com/ahrav/go-loom/infrastructure/middleware"
	"github.com/ahrav/go-loom/infrastructure/store"
	"github.com/ahrav/go-loom/internal/application"
	"github.com/ahrav/go-loom/internal/ports"
)

func main() {
	var (
		graphPath   = flag.String("graph", "", "Path to the graph definition YAML")
		timeout     = flag.Duration("timeout", 0, "Overall run timeout (0 means no limit)")
		concurrent  = flag.Bool("concurrent-producers", false, "Run root producer subtrees concurrently")
		storeDSN    = flag.String("store", "", "SQLite DSN for the message store (empty uses in-memory)")
		provider    = flag.String("llm-provider", "", "LLM provider: openai or anthropic (empty disables chat nodes)")
		model       = flag.String("llm-model", "", "Model override for the LLM provider")
		rps         = flag.Float64("llm-rps", 0, "LLM requests per second (0 disables rate limiting)")
		llmTimeout  = flag.Duration("llm-timeout", 30*time.Second, "Per-request LLM timeout (0 disables)")
		llmRetries  = flag.Int("llm-retries", 2, "LLM retries after a failed request (0 disables)")
		metricsAddr = flag.String("metrics-addr", "", "Address for the Prometheus /metrics endpoint (empty disables)")
	)
	flag.Parse()

	if *graphPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	messageStore, err := buildStore(ctx, *storeDSN)
	if err != nil {
		log.Fatalf("Failed to open message store: %v", err)
	}
	defer messageStore.Close()

	var llmClient ports.LLMClient
	if *provider != "" {
		client, err := llm.NewClient(llm.ClientConfig{
			Provider:          *provider,
			APIKey:            os.Getenv("LLM_API_KEY"),
			Model:             *model,
			Timeout:           *llmTimeout,
			RequestsPerSecond: *rps,
			Burst:             1,
			MaxRetries:        *llmRetries,
		})
		if err != nil {
			log.Fatalf("Failed to build LLM client: %v", err)
		}
		llmClient = client
	}

	metrics := middleware.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	registry := application.NewDefaultNodeRegistry(application.RegistryDeps{
		LLMClient:    llmClient,
		MessageStore: messageStore,
	})
	loader, err := application.NewGraphLoader(registry)
	if err != nil {
		log.Fatalf("Failed to build graph loader: %v", err)
	}

	graph, err := loader.LoadFromFile(ctx, *graphPath)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}

	opts := []application.ExecutorOption{application.WithMetrics(metrics)}
	if *concurrent {
		opts = append(opts, application.WithConcurrentRoots())
	}
	executor := application.NewExecutor(graph, opts...)

	start := time.Now()
	pool, err := executor.Run(ctx)
	if err != nil {
		log.Fatalf("Run failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
	}

	out, err := json.MarshalIndent(pool.Snapshot(), "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode results: %v", err)
	}
	fmt.Printf("Run completed in %s\n%s\n", time.Since(start).Round(time.Millisecond), out)
}

// buildStore opens the SQLite store when a DSN is given, falling back
// to the in-memory store for ephemeral runs.
func buildStore(ctx context.Context, dsn string) (ports.MessageStore, error) {
	if dsn == "" {
		return store.NewMemoryStore(), nil
	}
	s, err := store.NewSQLiteStore(dsn)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("Metrics endpoint failed: %v", err)
	}
}

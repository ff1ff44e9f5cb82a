package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tripmate-ai/internal/adapter/gateway"
	"tripmate-ai/internal/adapter/llm"
	"tripmate-ai/internal/adapter/maps"
	"tripmate-ai/internal/adapter/store"
	"tripmate-ai/internal/adapter/tool"
	"tripmate-ai/internal/infra/config"
	"tripmate-ai/internal/infra/logger"
	"tripmate-ai/internal/infra/tracer"
	"tripmate-ai/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Config
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	// 3. LLM provider behind the circuit breaker
	anthropic := llm.NewAnthropicProvider(cfg.LLM, log)
	chatLLM := llm.NewCircuitBreakerProvider(anthropic, cfg.LLM.Breaker, log)

	// 4. Map provider, resolver and routes
	mapClient := maps.NewClient(cfg.Maps, log)
	var provider maps.Provider
	switch cfg.Maps.Provider {
	case "amap":
		provider = maps.NewAmapProvider(cfg.Maps, mapClient, log)
	case "tencent":
		provider = maps.NewTencentProvider(cfg.Maps, mapClient, log)
	default:
		return fmt.Errorf("unknown maps provider: %s", cfg.Maps.Provider)
	}
	resolver := maps.NewResolver(provider, log)
	routes := maps.NewRouteFetcher(provider, log)

	// 5. Tools
	registry := tool.NewRegistry(log)
	if err := registry.Register(tool.NewNavigationTool(resolver, routes, cfg.Chat.DefaultCity, log)); err != nil {
		return fmt.Errorf("tools: %w", err)
	}
	if err := registry.Register(tool.NewPlacesTool(provider, log)); err != nil {
		return fmt.Errorf("tools: %w", err)
	}

	// 6. Place enrichment (optional second model pass)
	var enricher *usecase.Enricher
	if cfg.Chat.EnrichPlaces {
		enricher = usecase.NewEnricher(chatLLM, log)
	}

	// 7. Orchestrator
	orch := usecase.NewOrchestrator(usecase.Deps{
		LLM:          chatLLM,
		Tools:        registry,
		Enricher:     enricher,
		Logger:       log,
		DefaultCity:  cfg.Chat.DefaultCity,
		SystemPrompt: cfg.Chat.SystemPrompt,
		MaxTokens:    cfg.LLM.MaxTokens,
	})

	// 8. Persistence (optional)
	var st *store.Store
	if cfg.Store.Enabled {
		st, err = store.New(cfg.Store.Path, log)
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}
		defer st.Close()
	}

	// 9. Map widget script loader (optional)
	var loader *maps.Loader
	if cfg.Maps.WidgetScript != "" {
		loader = maps.NewLoader(widgetScriptLoader(cfg.Maps.WidgetScript))
	}

	// 10. Gateway
	handler := gateway.NewHandler(gateway.HandlerDeps{
		Orchestrator: orch,
		Resolver:     resolver,
		Routes:       routes,
		Provider:     provider,
		Store:        st,
		Loader:       loader,
		WidgetKey:    cfg.Maps.WidgetKey,
		Logger:       log,
	})
	srv := gateway.NewServer(handler, cfg.Server, log)

	// 11. Graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("tripmate starting",
		"addr", cfg.Server.Addr,
		"llm", cfg.LLM.Model,
		"maps", cfg.Maps.Provider,
		"store", cfg.Store.Enabled,
	)
	return srv.Start(ctx)
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("TRIPMATE_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

// widgetScriptLoader fetches the browser map widget bundle from url.
func widgetScriptLoader(url string) maps.LoadFunc {
	client := &http.Client{Timeout: 15 * time.Second}
	return func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch widget script: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetch widget script: status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return "", fmt.Errorf("read widget script: %w", err)
		}
		return string(body), nil
	}
}

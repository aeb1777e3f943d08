package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docatlas/docatlas/internal/config"
	"github.com/docatlas/docatlas/internal/engine"
	"github.com/docatlas/docatlas/internal/intelligence"
	"github.com/docatlas/docatlas/internal/llm"
	"github.com/docatlas/docatlas/internal/server"
	"github.com/docatlas/docatlas/internal/storage"
	"github.com/docatlas/docatlas/internal/storage/postgres"
	"github.com/docatlas/docatlas/internal/storage/sqlite"
	"github.com/docatlas/docatlas/web/handlers"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional, env vars apply either way)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadConfigFromFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	maps, contents, closer, err := openStores(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closer()

	generator, err := llm.NewTextGenerator(llmProviderConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	analyst := intelligence.NewAnalyzer(generator)

	manager, err := engine.NewMapManager(maps, analyst)
	if err != nil {
		log.Fatalf("Failed to initialize map manager: %v", err)
	}
	retriever, err := engine.NewRetriever(maps, contents, analyst)
	if err != nil {
		log.Fatalf("Failed to initialize retriever: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, hub, err := server.Start(ctx, cfg, manager, retriever, contents)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("DocAtlas API running at http://%s (provider: %s)", addr, generator.GetModel())

	// Broadcast map changes to WebSocket clients.
	manager.SetOnMapUpdated(func(workspace, event, documentID string) {
		hub.Broadcast(handlers.MapEvent{
			Type:       event,
			Workspace:  workspace,
			DocumentID: documentID,
		})
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStores opens the configured storage backend. SQLite serves both the
// map store and content store from a single file database; Postgres does
// the same from one pool.
func openStores(cfg *config.Config) (storage.MapStore, storage.ContentStore, func(), error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		store, err := postgres.NewStore(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, func() { store.Close() }, nil
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, nil, nil, err
		}
		store, err := sqlite.NewStore(cfg.Storage.DataPath + "/docatlas.db")
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, func() { store.Close() }, nil
	}
}

func llmProviderConfig(cfg *config.Config) llm.ProviderConfig {
	switch cfg.LLM.Provider {
	case "openai":
		return llm.ProviderConfig{Provider: "openai", APIKey: cfg.LLM.OpenAIAPIKey, Model: cfg.LLM.OpenAIModel}
	case "anthropic":
		return llm.ProviderConfig{Provider: "anthropic", APIKey: cfg.LLM.AnthropicKey, Model: cfg.LLM.AnthropicModel}
	default:
		return llm.ProviderConfig{Provider: "ollama", BaseURL: cfg.LLM.OllamaURL, Model: cfg.LLM.OllamaModel}
	}
}

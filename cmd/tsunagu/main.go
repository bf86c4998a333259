// Package main is the Tsunagu CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/assembler"
	"github.com/hyperjump/tsunagu/internal/chat"
	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/indexer"
	"github.com/hyperjump/tsunagu/internal/keyword"
	"github.com/hyperjump/tsunagu/internal/llm"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/prompts"
	"github.com/hyperjump/tsunagu/internal/retriever"
	"github.com/hyperjump/tsunagu/internal/server"
	"github.com/hyperjump/tsunagu/internal/storage"
	"github.com/hyperjump/tsunagu/internal/vector"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tsunagu/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence so running from the project dir picks
// up the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "chat":
		runChat()
	case "sessions":
		runSessions()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("tsunagu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds the wired service graph for the server process.
type Components struct {
	Store        storage.Store
	Embedder     embedding.Embedder
	VectorIndex  vector.Index
	MessageIndex keyword.MessageIndex
	Templates    *prompts.Store
	LLM          *llm.HTTPClient
	Chat         *chat.Service
}

// Close releases everything in reverse dependency order.
func (c *Components) Close() {
	if c.Templates != nil {
		c.Templates.Close()
	}
	if c.MessageIndex != nil {
		_ = c.MessageIndex.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var embedder embedding.Embedder
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("ONNX embedder unavailable, using mock embeddings", zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = onnxEmbedder
	}

	vectorIndex, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}

	messageIndex, err := keyword.NewBleveIndex(cfg.Storage.MessageIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize message index: %w", err)
	}

	promptOpts := []prompts.Option{}
	if debug {
		promptOpts = append(promptOpts, prompts.WithLogger(logger))
	}
	templates, err := prompts.NewStore(cfg.Prompts.Path, promptOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	client := llm.NewHTTPClient(cfg.LLM)

	syncOpts := []indexer.SynchronizerOption{}
	asmOpts := []assembler.Option{assembler.WithTopK(cfg.Retrieval.TopK)}
	chatOpts := []chat.Option{
		chat.WithMessageIndex(messageIndex),
		chat.WithSystemPrompt(cfg.LLM.SystemPrompt),
		chat.WithHistoryLimit(cfg.Retrieval.HistoryLimit),
		chat.WithGraphDepth(cfg.Retrieval.GraphDepthOrDefault()),
		chat.WithMaxContextNodes(cfg.Retrieval.MaxContextNodes),
	}
	if debug {
		syncOpts = append(syncOpts, indexer.WithLogger(logger))
		asmOpts = append(asmOpts, assembler.WithLogger(logger))
		chatOpts = append(chatOpts, chat.WithLogger(logger))
	}

	chatService := chat.NewService(
		indexer.NewSynchronizer(embedder, vectorIndex, syncOpts...),
		assembler.NewAssembler(retriever.NewRetriever(embedder, vectorIndex), asmOpts...),
		store,
		client,
		templates,
		chatOpts...,
	)

	return &Components{
		Store:        store,
		Embedder:     embedder,
		VectorIndex:  vectorIndex,
		MessageIndex: messageIndex,
		Templates:    templates,
		LLM:          client,
		Chat:         chatService,
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Prompts.HotReload && cfg.Prompts.Path != "" {
		if err := components.Templates.Watch(watchCtx); err != nil {
			logger.Warn("prompt hot reload disabled", zap.String("path", cfg.Prompts.Path), zap.Error(err))
		}
	}

	srv := server.NewServer(components.Chat, components.VectorIndex, cfg, logger).
		WithConnectionTest(components.LLM.TestConnection)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorIndexPath != "" {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8090", "server URL")
	projectID := fs.String("project", "", "project id (required)")
	sessionID := fs.String("session", "", "existing session id (empty = new session)")
	mode := fs.String("mode", "auto", "context mode: auto, manual, or hybrid")
	_ = fs.Parse(os.Args[2:])

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if *projectID == "" || query == "" {
		fmt.Println("Usage: tsunagu chat --project <id> [flags] <query>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	req := chat.Request{
		ProjectID:   *projectID,
		Query:       query,
		SessionID:   *sessionID,
		ContextMode: models.ContextMode(*mode),
	}
	var resp chat.Response
	if err := postJSON(*serverURL+"/api/v1/chat", req, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(resp.Response)
	if len(resp.Citations) > 0 {
		fmt.Println("\nCitations:")
		for _, c := range resp.Citations {
			fmt.Printf("  %s: %s\n", c.NodeID, c.Preview)
		}
	}
	fmt.Printf("\nSession: %s (context nodes: %d, mode: %s)\n",
		resp.SessionID, resp.Insights.TotalContextNodes, resp.Insights.ContextMode)
}

func runSessions() {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8090", "server URL")
	projectID := fs.String("project", "", "project id (required)")
	_ = fs.Parse(os.Args[2:])

	if *projectID == "" {
		fmt.Println("Usage: tsunagu sessions --project <id>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	var sessions []models.ChatSession
	if err := getJSON(fmt.Sprintf("%s/api/v1/projects/%s/sessions", *serverURL, *projectID), &sessions); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list sessions: %v\n", err)
		os.Exit(1)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s  (updated %s)\n", s.ID, s.Title, s.UpdatedAt.Format(time.RFC3339))
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8090", "server URL")
	_ = fs.Parse(os.Args[2:])

	var status map[string]any
	if err := getJSON(*serverURL+"/status", &status); err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func postJSON(url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(url string, out any) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printUsage() {
	fmt.Println(`tsunagu - Graph-guided RAG chat for canvas projects

Usage:
  tsunagu server [flags]                 Start the HTTP server
  tsunagu chat [flags] <query>           Send a chat message via a running server
  tsunagu sessions --project <id>        List chat sessions for a project
  tsunagu status [flags]                 Show server/index status
  tsunagu version                        Show version
  tsunagu help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/tsunagu/config.yaml)
  --debug            Enable debug logging

Chat Flags:
  --server string    Server URL (default: http://localhost:8090)
  --project string   Project id (required)
  --session string   Existing session id (empty = new session)
  --mode string      Context mode: auto, manual, or hybrid (default: auto)`)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/archonhq/archon/internal/analyzer"
	"github.com/archonhq/archon/internal/api"
	"github.com/archonhq/archon/internal/catalog"
	"github.com/archonhq/archon/internal/config"
	"github.com/archonhq/archon/internal/feedback"
	"github.com/archonhq/archon/internal/generator"
	"github.com/archonhq/archon/internal/implement"
	"github.com/archonhq/archon/internal/ingest"
	"github.com/archonhq/archon/internal/learning"
	"github.com/archonhq/archon/internal/llm"
	"github.com/archonhq/archon/internal/scoring"
	"github.com/archonhq/archon/internal/storage"
	"github.com/archonhq/archon/internal/workflow"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the archon server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running archon server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show archon system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "archon.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "archon version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure API token exists in the platform secret store.
	apiToken, err := config.APIToken(cfg)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("archon is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("archon is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	// Feedback store, learning engine and adaptive scorer share the keyword
	// classifier.
	feedbackStore := feedback.NewStore(cfg.Learning.DataFile)
	classifier := learning.KeywordClassifier{}
	learner := learning.NewEngine(classifier)
	scorer := scoring.New(feedbackStore, classifier)

	// LLM is optional: if disabled or unreachable, analysis and generation
	// fall back to keyword heuristics.
	var analyzerChat analyzer.Chatter
	var generatorChat generator.Chatter
	if cfg.LLM.Enabled {
		llmClient := llm.New(cfg.LLM.BaseURL)
		if llmClient.IsRunning(ctx) {
			analyzerChat = llmClient
			generatorChat = llmClient
			slog.Info("LLM available", "base_url", cfg.LLM.BaseURL, "model", cfg.LLM.Model)
		} else {
			slog.Warn("LLM not reachable, falling back to keyword heuristics", "base_url", cfg.LLM.BaseURL)
		}
	} else {
		slog.Info("LLM disabled, using keyword heuristics")
	}

	// Assemble the recommendation pipeline.
	engine := workflow.NewEngine(workflow.Options{
		Analyzer:  analyzer.New(analyzerChat, cfg.LLM.Model, store),
		Generator: generator.New(generatorChat, cfg.LLM.Model),
		Enricher: catalog.NewEnricher(
			catalog.NewAWSAdapter(cfg.Catalog.AWSRegion),
			catalog.NewAzureAdapter(cfg.Catalog.AzureLocation),
		),
		Implementer: implement.New(),
		Scorer:      scorer,
		Store:       feedbackStore,
		Learner:     learner,
		Archive:     store,
	})

	// Build HTTP handler and server.
	handler := api.NewHandler(api.Deps{
		Engine:     engine,
		Docs:       store,
		Token:      apiToken,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Version:    version,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Start the document extraction worker.
	worker := ingest.NewWorker(store, 500*time.Millisecond)
	go worker.Run(ctx)

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Engine:  engine,
		Docs:    store,
		Version: version,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "archon listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("archon is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop archon (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to archon (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	serverRunning := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			serverRunning = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Check the LLM backend.
	if !cfg.LLM.Enabled {
		printStatus("LLM", "disabled (keyword heuristics)")
	} else if llm.New(cfg.LLM.BaseURL).IsRunning(ctx) {
		printStatus("LLM", "running at %s", cfg.LLM.BaseURL)
	} else {
		printStatus("LLM", "not running (keyword heuristics)")
	}
	printStatus("Model", "%s", cfg.LLM.Model)

	// Show session and feedback counts if the server is running.
	if serverRunning {
		if apiToken, tokenErr := config.APIToken(cfg); tokenErr == nil {
			if sessResp, err := apiGet(client, serverURL+"/sessions", apiToken); err == nil {
				var sessions []json.RawMessage
				if json.NewDecoder(sessResp.Body).Decode(&sessions) == nil {
					printStatus("Sessions", "%d", len(sessions))
				}
				sessResp.Body.Close()
			}
			if learnResp, err := apiGet(client, serverURL+"/learning", apiToken); err == nil {
				var summary struct {
					TotalFeedbackEntries int `json:"total_feedback_entries"`
				}
				if json.NewDecoder(learnResp.Body).Decode(&summary) == nil {
					printStatus("Feedback entries", "%d", summary.TotalFeedbackEntries)
				}
				learnResp.Body.Close()
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}

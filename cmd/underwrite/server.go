package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
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

	"github.com/kalambet/underwrite/internal/api"
	"github.com/kalambet/underwrite/internal/cache"
	"github.com/kalambet/underwrite/internal/config"
	"github.com/kalambet/underwrite/internal/contract"
	"github.com/kalambet/underwrite/internal/extract"
	"github.com/kalambet/underwrite/internal/prompt"
	"github.com/kalambet/underwrite/internal/provider"
	"github.com/kalambet/underwrite/internal/service"
	"github.com/kalambet/underwrite/internal/storage"
	"github.com/kalambet/underwrite/internal/validate"
)

// Upper bound for one whole validation run, AI calls included.
const validationTimeout = 2 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the underwrite server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running underwrite server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show underwrite system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "underwrite.pid")
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
	fmt.Fprintf(os.Stderr, "underwrite version %s\n", version)

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

	token := cfg.Server.Token
	if token == "" {
		token = randomToken()
		printWarning("no API token configured; generated ephemeral token %s", token)
	}

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("underwrite is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("underwrite is already running on port %d", cfg.Server.Port)
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
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the provider fallback chain.
	gateway, err := buildGateway(ctx, cfg)
	if err != nil {
		return err
	}

	// Assemble the validation pipeline.
	registry := prompt.NewDefaultRegistry()
	ref, err := validate.LoadRefData(cfg.Reference.Path)
	if err != nil {
		return err
	}

	if cfg.CRM.BaseURL == "" {
		return fmt.Errorf("missing required config: crm.base_url (UNDERWRITE_CRM_BASE_URL)")
	}
	contacts := service.NewHTTPContactSource(cfg.CRM.BaseURL, cfg.CRM.APIKey)

	validator := service.NewValidator(
		extract.NewPipeline(),
		contract.NewExtractor(gateway, registry),
		validate.NewEngine(validate.DefaultChecks(ref, gateway, registry), validationTimeout),
		cache.New(duration(cfg.Cache.TTL, 15*time.Minute)),
		contacts,
		store,
	)

	handler := api.NewHandler(api.Deps{
		Runner:    validator,
		Templates: registry,
		Providers: gateway,
		Token:     token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Runner: validator,
		Ref:    ref,
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
		fmt.Fprintf(os.Stderr, "underwrite listening on %s\n", addr)
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

// buildGateway constructs the provider chain in configured order, skipping
// providers without an API key.
func buildGateway(ctx context.Context, cfg config.Config) (*provider.Gateway, error) {
	var providers []provider.Provider
	for _, name := range cfg.Providers.Chain() {
		switch name {
		case "gemini":
			if cfg.Providers.GeminiAPIKey == "" {
				slog.Warn("skipping provider without API key", "provider", name)
				continue
			}
			p, err := provider.NewGeminiProvider(ctx, cfg.Providers.GeminiAPIKey, cfg.Providers.GeminiModel)
			if err != nil {
				return nil, fmt.Errorf("configuring gemini: %w", err)
			}
			providers = append(providers, p)
		case "openrouter":
			if cfg.Providers.OpenRouterAPIKey == "" {
				slog.Warn("skipping provider without API key", "provider", name)
				continue
			}
			providers = append(providers, provider.NewOpenRouterProvider(cfg.Providers.OpenRouterAPIKey, cfg.Providers.OpenRouterModel))
		default:
			return nil, fmt.Errorf("unknown provider %q in providers.order", name)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no usable providers in chain %q", cfg.Providers.Order)
	}

	return provider.NewGateway(providers,
		provider.WithRetryPolicy(provider.RetryPolicy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: duration(cfg.Retry.InitialBackoff, 500*time.Millisecond),
			MaxBackoff:     duration(cfg.Retry.MaxBackoff, 30*time.Second),
		}),
		provider.WithBreakerConfig(provider.BreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Window:           duration(cfg.Breaker.Window, time.Minute),
			Cooldown:         duration(cfg.Breaker.Cooldown, 30*time.Second),
		}),
	), nil
}

func duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in config, using default", "value", value, "default", fallback)
		return fallback
	}
	return d
}

func randomToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
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
		printError("underwrite is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop underwrite (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to underwrite (PID %d)", pid)
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
	httpClient := &http.Client{Timeout: 2 * time.Second}

	resp, err := httpClient.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Providers", "%s", cfg.Providers.Order)

	// Show circuit states if the server is up and a token is available.
	if running && cfg.Server.Token != "" {
		client := &apiClient{baseURL: serverURL, token: cfg.Server.Token, httpClient: httpClient}
		if statusResp, err := client.get(ctx, "/status"); err == nil {
			var payload struct {
				Providers []struct {
					Provider string `json:"provider"`
					State    string `json:"state"`
				} `json:"providers"`
			}
			if json.NewDecoder(statusResp.Body).Decode(&payload) == nil {
				for _, p := range payload.Providers {
					printStatus("Circuit "+p.Provider, "%s", p.State)
				}
			}
			statusResp.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	if cfg.Reference.Path != "" {
		printStatus("Reference data", "%s", cfg.Reference.Path)
	}
	return nil
}

// Command gaple-server starts the gaple domino game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Configuration comes from the environment (optionally via a .env file) with
// flags taking precedence. Optional extras: a Postgres-backed leaderboard
// (DATABASE_URL) and an ngrok tunnel for external access during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/gaplehq/gaple-server/api"
	"github.com/gaplehq/gaple-server/game/config"
	"github.com/gaplehq/gaple-server/game/service"
	"github.com/gaplehq/gaple-server/game/session"
	"github.com/gaplehq/gaple-server/stats"
	"github.com/gaplehq/gaple-server/transport/mcp"
	"github.com/gaplehq/gaple-server/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Gaple Domino Server"
)

// ServerConfig is populated from the environment before flags are applied.
type ServerConfig struct {
	Host        string `envconfig:"HOST" default:"localhost"`
	Port        int    `envconfig:"PORT" default:"8080"`
	VariantsDir string `envconfig:"VARIANTS_DIR" default:"variants"`
	SessionsDir string `envconfig:"SESSIONS_DIR" default:"sessions"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

var (
	port         = flag.Int("port", 0, "HTTP server port (overrides PORT)")
	host         = flag.String("host", "", "HTTP server host (overrides HOST)")
	variantsDir  = flag.String("variants-dir", "", "Directory containing rule variants (overrides VARIANTS_DIR)")
	sessionsDir  = flag.String("sessions-dir", "", "Directory for persisted sessions (overrides SESSIONS_DIR)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090         # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp          # Run MCP stdio server\n", os.Args[0])
	}
}

// loadConfig merges .env, environment variables, and flags, in increasing
// order of precedence.
func loadConfig() (*ServerConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg ServerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *variantsDir != "" {
		cfg.VariantsDir = *variantsDir
	}
	if *sessionsDir != "" {
		cfg.SessionsDir = *sessionsDir
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	return &cfg, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	logger.Info().
		Str("version", Version).
		Str("mode", mode).
		Msg("starting gaple server")

	gameService, recorder, sessionManager, persistence, err := initializeServices(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer recorder.Close()

	startBackgroundRoutines(sessionManager, persistence, logger)

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(cfg, gameService, logger)

	case "server", "http":
		runHTTPServer(cfg, gameService, sessionManager, logger)

	default:
		logger.Fatal().Str("mode", mode).Msg("unknown mode, use 'server' (default) or 'stdio-mcp'")
	}
}

// initializeServices wires variant/session managers, stats recording, and
// the game service.
func initializeServices(cfg *ServerConfig, logger zerolog.Logger) (service.GameService, stats.Recorder, *session.Manager, session.SessionPersistence, error) {
	variantManager, err := config.NewManager(cfg.VariantsDir)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("creating variant manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(cfg.SessionsDir, variantManager)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("creating session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence, logger)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		logger.Warn().Err(err).Msg("failed to load persisted sessions")
	} else if n := sessionManager.Count(); n > 0 {
		logger.Info().Int("sessions", n).Msg("restored persisted sessions")
	}

	var recorder stats.Recorder = stats.NoopRecorder{}
	if cfg.DatabaseURL != "" {
		pg, err := stats.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connecting to stats database: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("preparing stats schema: %w", err)
		}
		recorder = pg
		logger.Info().Msg("postgres leaderboard enabled")
	} else {
		logger.Info().Msg("no DATABASE_URL set, leaderboard disabled")
	}

	gameService := service.NewGameService(sessionManager, variantManager, recorder, logger)
	return gameService, recorder, sessionManager, persistence, nil
}

// startBackgroundRoutines launches the periodic session cleanup and the
// filesystem sync that prunes in-memory sessions whose files were deleted
// out of band.
func startBackgroundRoutines(manager *session.Manager, persistence session.SessionPersistence, logger zerolog.Logger) {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if removed := manager.CleanupExpiredSessions(24 * time.Hour); removed > 0 {
				logger.Info().Int("removed", removed).Msg("cleaned up expired sessions")
			}
		}
	}()

	if persistence == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			pruned := 0
			for _, sess := range manager.List() {
				if !persistence.Exists(sess.ID) {
					if err := manager.DeleteFromMemory(sess.ID); err == nil {
						pruned++
					}
				}
			}
			if pruned > 0 {
				logger.Info().Int("pruned", pruned).Msg("pruned sessions whose files were deleted")
			}
		}
	}()
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an
// /mcp proxy endpoint. If ngrok is enabled (via flag or environment), it also
// provisions a public tunnel.
func runHTTPServer(cfg *ServerConfig, gameService service.GameService, sessionManager *session.Manager, logger zerolog.Logger) {
	hub := websocket.NewHub(logger)
	go hub.Run()

	apiServer := api.NewServer(gameService, hub, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	baseURL := fmt.Sprintf("http://%s", addr)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHTTPHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info().
			Str("addr", addr).
			Str("api", baseURL+"/api").
			Str("ws", fmt.Sprintf("ws://%s/ws?session=<table_id>", addr)).
			Str("mcp", baseURL+"/mcp").
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	ngrokShouldRun := *ngrokEnabled
	if !ngrokShouldRun {
		if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
			ngrokShouldRun = true
		}
	}

	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, mainRouter, logger)
		}()
	}

	sig := <-stop
	logger.Info().Str("signal", sig.String()).Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	if err := sessionManager.SaveAllSessions(); err != nil {
		logger.Warn().Err(err).Msg("failed to save sessions on shutdown")
	}

	wg.Wait()
	logger.Info().Msg("server stopped")
}

// mcpHTTPHandler exposes the MCP server over a plain HTTP POST endpoint.
func mcpHTTPHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runNgrokTunnel provisions a public ngrok endpoint and serves the router
// through it until the context is cancelled.
func runNgrokTunnel(ctx context.Context, handler http.Handler, logger zerolog.Logger) {
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}
	if authToken == "" {
		logger.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info().Str("domain", domain).Msg("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to start ngrok tunnel")
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	logger.Info().Str("url", tun.URL()).Msg("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		logger.Warn().Err(err).Msg("ngrok server error")
	}
	logger.Info().Msg("ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It tries to reuse
// an external API at the configured address; if unavailable, it starts a
// minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(cfg *ServerConfig, gameService service.GameService, logger zerolog.Logger) {
	var baseURL string

	externalURL := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	logger.Info().Str("url", externalURL).Msg("checking for external API server")

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logger.Info().Str("url", externalURL).Msg("external API server found, using it for MCP")
		baseURL = externalURL
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to get available port")
		}

		internalAddr := listener.Addr().String()
		logger.Info().Str("addr", internalAddr).Msg("starting internal HTTP server for MCP stdio")

		hub := websocket.NewHub(logger)
		go hub.Run()

		apiServer := api.NewServer(gameService, hub, logger)
		httpServer := &http.Server{Handler: apiServer}

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Warn().Err(err).Msg("internal HTTP server error")
			}
		}()

		// Give the listener a beat to start accepting.
		time.Sleep(100 * time.Millisecond)

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info().Str("base_url", baseURL).Msg("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		logger.Fatal().Err(err).Msg("MCP stdio server error")
	}
}

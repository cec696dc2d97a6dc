// Command ecocity starts the EcoCity simulation server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config directory, session storage, the optional
// simulation clock, debug logging, version output, and optional ngrok
// tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/ecocity/api"
	"github.com/wricardo/ecocity/game/config"
	"github.com/wricardo/ecocity/game/service"
	"github.com/wricardo/ecocity/game/session"
	"github.com/wricardo/ecocity/transport/mcp"
	"github.com/wricardo/ecocity/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "EcoCity Server"
)

// Session retention
const (
	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", getConfigDirDefault(), "Directory containing city configurations")
	sessionsDir  = flag.String("sessions-dir", "sessions", "Directory for session files (file store)")
	store        = flag.String("store", "file", "Session store: file or sqlite")
	dbPath       = flag.String("db", "ecocity.db", "SQLite database path (sqlite store)")
	clock        = flag.Duration("clock", 0, "Advance every session on this interval (0 disables the simulation clock)")
	clockDays    = flag.Float64("clock-days", 1, "Days advanced per clock tick")
	rateLimit    = flag.Float64("rate-limit", api.DefaultRateLimit, "Mutating requests per second per client (0 disables)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// getConfigDirDefault returns the default configuration directory.
// It first honors the CONFIG_DIR environment variable, then falls back to "configs".
func getConfigDirDefault() string {
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		return configDir
	}
	return "configs"
}

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
		fmt.Fprintf(os.Stderr, "  %s                          # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -store sqlite -db city.db # Keep sessions in SQLite\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -clock 10s -clock-days 1  # Advance every city one day every 10 seconds\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp                # Run MCP stdio server\n", os.Args[0])
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	log.Printf("Starting %s v%s (mode: %s, store: %s)", AppName, Version, mode, *store)

	cityService, err := initializeServices()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(cityService)
		return

	case "server", "http":
		runHTTPServer(cityService)

	default:
		log.Fatalf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
}

// newAPIServer builds the REST API with the configured rate limit
func newAPIServer(cityService service.CityService, hub *websocket.Hub) *api.Server {
	apiServer := api.NewServer(cityService, hub)
	if *rateLimit <= 0 {
		apiServer.SetRateLimiter(nil)
	} else {
		apiServer.SetRateLimiter(api.NewRateLimiter(*rateLimit, int(*rateLimit*2)+1))
	}
	return apiServer
}

// mcpHandler serves single JSON-RPC MCP messages over HTTP POST
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
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

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(cityService service.CityService) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	apiServer := newAPIServer(cityService, hub)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if *clock > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			simulationClock(ctx, cityService, hub, *clock, *clockDays)
		}()
	}

	if limiter := apiServer.RateLimiter(); limiter != nil {
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					limiter.Prune(10 * time.Minute)
				}
			}
		}()
	}

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
			runNgrokTunnel(ctx, mainRouter)
		}()
	}

	sig := <-stop
	log.Printf("Received signal: %v. Shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, handler http.Handler) {
	// Flag first, then both env var spellings
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}

	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	// Closing the tunnel unblocks http.Serve
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// simulationClock advances every live session by days on each tick and
// pushes the new state to WebSocket subscribers
func simulationClock(ctx context.Context, cityService service.CityService, hub *websocket.Hub, interval time.Duration, days float64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Simulation clock: %.2f days every %s", days, interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			advanceAll(ctx, cityService, hub, days)
		}
	}
}

// advanceAll advances each session once and returns how many advanced
func advanceAll(ctx context.Context, cityService service.CityService, hub *websocket.Hub, days float64) int {
	sessions, err := cityService.ListSessions(ctx)
	if err != nil {
		log.Printf("Warning: clock could not list sessions: %v", err)
		return 0
	}

	advanced := 0
	for _, info := range sessions {
		result, err := cityService.Advance(ctx, info.ID, days)
		if err != nil {
			log.Printf("Warning: clock failed to advance session %s: %v", info.ID, err)
			continue
		}
		advanced++
		if hub == nil || result.City == nil {
			continue
		}
		hub.BroadcastToSession(info.ID, result.City)
		for _, c := range result.Fired {
			hub.BroadcastEvent(info.ID, websocket.EventCity, service.CityEvent{
				Type:      "consequence",
				Message:   c.Message,
				Timestamp: time.Now(),
			})
		}
	}
	return advanced
}

// openPersistence returns the session store selected by -store
func openPersistence(configManager *config.Manager) (session.SessionPersistence, error) {
	switch *store {
	case "file", "":
		return session.NewFilePersistence(*sessionsDir, configManager)
	case "sqlite":
		return session.NewSQLitePersistence(*dbPath, configManager)
	}
	return nil, fmt.Errorf("unknown session store %q (use file or sqlite)", *store)
}

// initializeServices wires session/config managers and the city service.
// It also starts background routines to prune stale sessions.
func initializeServices() (service.CityService, error) {
	configManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := openPersistence(configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)

	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}

	cityService := service.NewCityService(sessionManager, configManager)

	go sessionCleanupRoutine(sessionManager, persistence)
	go storeSyncRoutine(sessionManager, persistence)

	return cityService, nil
}

// pruner is implemented by stores that can drop old rows in bulk
type pruner interface {
	PruneBefore(cutoff time.Time) (int64, error)
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window.
func sessionCleanupRoutine(manager *session.Manager, persistence session.SessionPersistence) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		if removed := manager.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
			log.Printf("Cleaned up %d expired sessions", removed)
		}
		if p, ok := persistence.(pruner); ok {
			if n, err := p.PruneBefore(time.Now().Add(-sessionMaxAge)); err != nil {
				log.Printf("Warning: Failed to prune stored sessions: %v", err)
			} else if n > 0 {
				log.Printf("Pruned %d stored sessions", n)
			}
		}
	}
}

// storeSyncRoutine periodically syncs in-memory sessions with the store.
// It removes sessions from memory when they were deleted from storage.
func storeSyncRoutine(manager *session.Manager, persistence session.SessionPersistence) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for range ticker.C {
		if pruned := syncWithStore(manager, persistence); pruned > 0 {
			log.Printf("Store sync: pruned %d orphaned sessions from memory", pruned)
		}
	}
}

func syncWithStore(manager *session.Manager, persistence session.SessionPersistence) int {
	if persistence == nil {
		return 0
	}

	pruned := 0
	for _, sess := range manager.List() {
		if !persistence.Exists(sess.ID) {
			if err := manager.DeleteFromMemory(sess.ID); err == nil {
				pruned++
				log.Printf("Pruned session %s from memory (deleted from store)", sess.ID)
			}
		}
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:8080; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(cityService service.CityService) {
	var baseURL string

	externalURL := "http://localhost:8080"
	log.Printf("Checking for external API server at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", externalURL)
		baseURL = externalURL
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatalf("Failed to get available port: %v", err)
		}

		internalAddr := fmt.Sprintf("127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port)
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		hub := websocket.NewHub()
		go hub.Run(context.Background())

		apiServer := api.NewServer(cityService, hub)
		// The agent is the only client
		apiServer.SetRateLimiter(nil)

		httpServer := &http.Server{Handler: apiServer}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)

	if baseURL == externalURL {
		log.Println("MCP stdio server ready (using external HTTP server)")
	} else {
		log.Println("MCP stdio server ready (using internal HTTP server)")
	}

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.Fatalf("MCP stdio server error: %v", err)
	}
}

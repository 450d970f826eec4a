/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the workforce dashboard server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Build the authenticator and bootstrap the first admin
  4. Create API handler and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: staffing.db)
           Use ":memory:" for an in-memory database

ENVIRONMENT:
  JWT_SECRET       Required. HMAC key for session tokens.
  ADMIN_PIN        Admin-area PIN (unset PIN rejects admin-pin checks)
  ADMIN_EMAIL      Optional bootstrap admin account
  ADMIN_PASSWORD   Optional bootstrap admin account
  A .env file in the working directory is loaded when present.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  JWT_SECRET=change-me ./server -db="./data/staffing.db"

  # Run with in-memory database on another port
  JWT_SECRET=change-me ./server -db=":memory:" -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/harborview/staffing-engine/api"
	"github.com/harborview/staffing-engine/auth"
	"github.com/harborview/staffing-engine/store/sqlite"
)

func main() {
	// .env is optional; flags and real env win
	_ = godotenv.Load()

	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "staffing.db", "SQLite database path")
	flag.Parse()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Authentication
	authenticator, err := auth.New(store, auth.Config{
		JWTSecret: jwtSecret,
		AdminPin:  os.Getenv("ADMIN_PIN"),
	})
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}
	if err := authenticator.EnsureAdmin(context.Background(),
		os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		log.Fatalf("Failed to bootstrap admin: %v", err)
	}

	// Router
	handler := api.NewHandler(store, authenticator)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

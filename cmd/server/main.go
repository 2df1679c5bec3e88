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

	"codeprep.io/assistant/internal/api"
	"codeprep.io/assistant/internal/assistant"
	"codeprep.io/assistant/internal/config"
	"codeprep.io/assistant/internal/llm"
	"codeprep.io/assistant/internal/store"
	"codeprep.io/assistant/internal/tutor"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Command line flag for problem catalog ingestion
	ingestFlag := flag.String("ingest", "", "Ingest the problem catalog from the given JSON file and exit")
	flag.Parse()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Handle catalog ingestion if the flag is set
	if *ingestFlag != "" {
		log.Println("Starting problem catalog ingestion...")
		numIngested, err := dbStore.IngestProblemsFromFile(*ingestFlag)
		if err != nil {
			log.Fatalf("Problem ingestion failed: %v", err)
		}
		log.Printf("Ingestion complete. %d problems in the catalog. Exiting.", numIngested)
		os.Exit(0)
	}

	// Select the completer once: Gemini with a key, deterministic stub without
	completer, err := llm.New(config.AppConfig.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Failed to initialize completion client: %v", err)
	}
	defer completer.Close()

	// Session registry with idle eviction
	registry := assistant.NewRegistry(config.AppConfig.SessionIdleTTL, config.AppConfig.HistoryLimit)
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go registry.RunCleanup(cleanupCtx)

	// Initialize services
	assistantService := assistant.NewService(dbStore, completer, registry)
	tutorService := tutor.NewTutor(dbStore, completer)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(dbStore, assistantService, tutorService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second, // Adjusted for potentially slower LLM handshakes
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received
	log.Println("Shutting down server...")

	// Give active connections time to finish before forcing exit.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

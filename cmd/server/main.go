package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schoolrecords/internal/attendance"
	"schoolrecords/internal/gateway"
	"schoolrecords/internal/grades"
	"schoolrecords/internal/reports"
	"schoolrecords/internal/semester"
	"schoolrecords/internal/shared"
)

func main() {
	log.Println("INFO: Starting Records Server...")

	// 1. Load Configuration
	shared.LoadEnv("")
	cfg, err := shared.LoadAppConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if err := shared.ValidateAppConfig(cfg); err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}

	// 2. Connect to MongoDB
	client, db, err := shared.ConnectMongoDB(&cfg.MongoDB)
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := shared.DisconnectMongoDB(client); err != nil {
			log.Printf("WARN: Error disconnecting from MongoDB: %v", err)
		}
	}()

	indexCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := shared.EnsureIndexes(indexCtx, db); err != nil {
		cancel()
		log.Fatalf("FATAL: Failed to ensure indexes: %v", err)
	}
	cancel()

	// 3. Build Services
	services := &gateway.Services{
		Grades:     grades.NewService(db),
		Semesters:  semester.NewService(client, db),
		Attendance: attendance.NewService(db),
		Reports:    reports.NewService(db),
	}

	// 4. Setup Routes and Middleware
	router := gateway.SetupRoutes(cfg, services)

	// 5. Configure Server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 6. Start Server in a Goroutine
	go func() {
		log.Printf("INFO: Records server listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server error: %v", err)
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: Shutting down Records Server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server shutdown error: %v", err)
	}

	log.Println("INFO: Records Server stopped.")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense_tracker/internal/api"
	"expense_tracker/internal/app/service"
	"expense_tracker/internal/common/security"
	"expense_tracker/internal/domain/repository"
	"expense_tracker/internal/platform/cache"
	"expense_tracker/internal/platform/config"
	"expense_tracker/internal/platform/database"
)

func main() {
	// 1. Load Configuration
	config.Load()
	log.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	log.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()

	// 4. Initialize Redis
	cache.Connect()
	defer cache.Close()

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	expenseRepo := repository.NewPgExpenseRepository(database.DB)
	tokenRepo := repository.NewRedisTokenRepository(cache.RDB)

	// 6. Initialize Services
	authService := service.NewAuthService(userRepo, tokenRepo)
	expenseService := service.NewExpenseService(expenseRepo)

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(authService, expenseService, tokenRepo)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped gracefully.")
}

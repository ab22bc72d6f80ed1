package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/username/declarab3/src/config"
	"github.com/username/declarab3/src/database"
	"github.com/username/declarab3/src/handlers"
	"github.com/username/declarab3/src/logger"
	"github.com/username/declarab3/src/services"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("DeclaraB3 backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	sessionStore := services.NewSQLiteSessionStore(database.DB)
	eventInfoService := services.NewStaticEventInfoService()
	tickerInfoService := services.NewTickerInfoService(config.Cfg.TickerAPIBaseURL, config.Cfg.TickerAPITimeout)
	processingService := services.NewProcessingService(sessionStore, eventInfoService, tickerInfoService)
	declarationService := services.NewDeclarationService(sessionStore)

	sessionHandler := handlers.NewSessionHandler(sessionStore)
	uploadHandler := handlers.NewUploadHandler(sessionStore)
	processHandler := handlers.NewProcessHandler(processingService, declarationService, sessionStore)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "DeclaraB3 Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(handlers.AuthMiddleware)

		r.Post("/sessions", sessionHandler.HandleCreateSession)
		r.Get("/sessions", sessionHandler.HandleListSessions)
		r.Get("/sessions/{id}", sessionHandler.HandleGetSession)
		r.Delete("/sessions/{id}", sessionHandler.HandleDeleteSession)

		r.Post("/sessions/{id}/upload", uploadHandler.HandleUpload)
		r.Post("/sessions/{id}/process", processHandler.HandleProcess)
		r.Get("/sessions/{id}/results", processHandler.HandleGetResults)
		r.Get("/sessions/{id}/declaration", processHandler.HandleGetDeclaration)

		r.Post("/validate", processHandler.HandleValidate)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server listening", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil {
		stdlog.Fatalf("server failed: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/MIDHUNGRAJ/curiostack/internal/auth"
	"github.com/MIDHUNGRAJ/curiostack/internal/classifier"
	"github.com/MIDHUNGRAJ/curiostack/internal/config"
	"github.com/MIDHUNGRAJ/curiostack/internal/db"
	"github.com/MIDHUNGRAJ/curiostack/internal/handlers"
	"github.com/MIDHUNGRAJ/curiostack/internal/metrics"
	appmiddleware "github.com/MIDHUNGRAJ/curiostack/internal/middleware"
)

func main() {
	cfg := config.Load()

	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	ctx := context.Background()
	store, err := db.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("db connect failed", "error", err)
	}
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		logger.Fatalw("db init failed", "error", err)
	}

	authenticator := auth.New(cfg.JWTSecret, cfg.AdminUsername, cfg.AdminPassword)
	ingestor := classifier.NewIngestor(logger)

	blogHandler := handlers.NewBlogHandler(store, logger)
	adminHandler := handlers.NewAdminHandler(store, authenticator, logger)
	ingestHandler := handlers.NewIngestHandler(store, ingestor, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	r.Get("/health", handlers.Health)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		// 5 login attempts per minute per IP
		loginLimiter := appmiddleware.NewRateLimiter(5, time.Minute)
		// 30 requests per minute per IP on the public read surface
		publicLimiter := appmiddleware.NewRateLimiter(30, time.Minute)

		r.Route("/blog", func(r chi.Router) {
			r.Use(publicLimiter.Limit)
			r.Get("/", blogHandler.List)
			r.Get("/search", blogHandler.Search)
			r.Get("/categories", blogHandler.Categories)
			r.Get("/tags", blogHandler.Tags)
			r.Get("/featured", blogHandler.Featured)
			r.Get("/stats", blogHandler.Stats)
			r.Get("/{id}", blogHandler.Get)
		})

		r.Route("/ai-posts", func(r chi.Router) {
			r.Use(publicLimiter.Limit)
			r.Post("/", ingestHandler.Create)
			r.Get("/", ingestHandler.List)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(loginLimiter.Limit).Post("/login", adminHandler.Login)
			r.Delete("/login", adminHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(authenticator.RequireAuth)
				r.Get("/posts", adminHandler.ListPosts)
				r.Post("/posts", adminHandler.CreatePost)
				r.Put("/posts/{id}", adminHandler.UpdatePost)
				r.Delete("/posts/{id}", adminHandler.DeletePost)
				r.Get("/stats", adminHandler.Stats)
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infow("listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("shutdown error", "error", err)
	}
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/ttiimmothy/expense-splitter/config"
	"github.com/ttiimmothy/expense-splitter/database"
	"github.com/ttiimmothy/expense-splitter/handlers"
	"github.com/ttiimmothy/expense-splitter/metrics"
	authmiddleware "github.com/ttiimmothy/expense-splitter/middleware"
	"github.com/ttiimmothy/expense-splitter/notify"
	"github.com/ttiimmothy/expense-splitter/repository"
	"github.com/ttiimmothy/expense-splitter/services"
)

func main() {
	logger, _ := zap.NewProduction()
	if os.Getenv("ENV") == "development" {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to apply schema", zap.Error(err))
		}
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)
	currencyRepo := repository.NewCurrencyRepository(db)

	hub := notify.NewHub(cfg.AllowedOrigins)
	var notifier notify.Notifier = hub
	if cfg.NATSURL != "" {
		nc, err := notify.NewNATSNotifier(notify.NATSConfig{
			URL:            cfg.NATSURL,
			Name:           "expense-splitter",
			SubjectPrefix:  cfg.NATSSubjectPrefix,
			ReconnectWait:  cfg.NATSReconnectWait,
			MaxReconnects:  -1,
			ConnectTimeout: 5 * time.Second,
		})
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()

		// Every instance hears every event through the relay, so local
		// websocket clients are fed from NATS alone.
		if _, err := nc.Relay(hub); err != nil {
			logger.Fatal("Failed to subscribe to events", zap.Error(err))
		}
		notifier = nc
	}

	balanceService := services.NewBalanceService(groupRepo, userRepo, expenseRepo, settlementRepo, currencyRepo, db)
	settlementService := services.NewSettlementService(balanceService, groupRepo, userRepo, settlementRepo, currencyRepo, notifier)
	expenseService := services.NewExpenseService(expenseRepo, groupRepo, currencyRepo, db, notifier)
	groupService := services.NewGroupService(groupRepo, userRepo, currencyRepo, balanceService, db, notifier, cfg.DefaultCurrency)
	userService := services.NewUserService(userRepo)

	explanationService, err := services.NewExplanationService(ctx, cfg.GeminiAPIKey, balanceService)
	if err != nil {
		logger.Fatal("Failed to create explanation service", zap.Error(err))
	}

	authMiddleware := authmiddleware.NewAuthMiddleware(cfg.JWTSecret)

	h := handlers.NewHandlers(
		groupService,
		expenseService,
		settlementService,
		balanceService,
		userService,
		explanationService,
		hub,
	)
	currencyHandlers := handlers.NewCurrencyHandlers(currencyRepo)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmiddleware.ZapLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(authmiddleware.SecurityHeaders)
	r.Use(authmiddleware.MaxBodySize(cfg.MaxBodySize))
	if cfg.Env == "production" {
		r.Use(authmiddleware.StrictTransportSecurity)
	}

	corsOptions := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	r.Use(cors.Handler(corsOptions))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(httprate.LimitByIP(services.GeneralRateLimit, 1*time.Minute))

		// No request timeout here: event streams are long-lived.
		h.RegisterRoutes(r)
		currencyHandlers.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

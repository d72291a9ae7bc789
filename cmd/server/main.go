package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/supermarket/internal/config"
	"github.com/Skotchmaster/supermarket/internal/es"
	"github.com/Skotchmaster/supermarket/internal/hash"
	"github.com/Skotchmaster/supermarket/internal/httpserver"
	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/mykafka"
	"github.com/Skotchmaster/supermarket/internal/repo"
	"github.com/Skotchmaster/supermarket/internal/service"
	"github.com/Skotchmaster/supermarket/internal/service/search"
	"github.com/Skotchmaster/supermarket/internal/session"
	pkgdb "github.com/Skotchmaster/supermarket/pkg/db"
	"github.com/Skotchmaster/supermarket/pkg/logging"
	loggingmw "github.com/Skotchmaster/supermarket/pkg/middleware/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL, pkgdb.DefaultPool())
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	r := repo.New(db)
	if err := ensureAdmin(r, cfg, logger); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	sessions, closeSessions := openSessions(cfg, logger)
	defer closeSessions()

	var events mykafka.Publisher = mykafka.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		prod := mykafka.NewProducer(cfg.KafkaBrokers, cfg.ServiceName, 256, logger)
		prod.Start()
		defer prod.Close()
		events = prod
	} else {
		logger.Info("kafka disabled, events are dropped")
	}

	var index search.Index
	if cfg.ES.Enabled() {
		client, err := es.NewClient(cfg.ES, logger)
		if err != nil {
			logger.Warn("search index unavailable, falling back to database search", "error", err)
		} else {
			index = search.NewESIndex(client, cfg.ES.Index)
		}
	}

	store := service.NewCartStore(r, sessions)
	cartSvc := &service.CartService{Repo: r, Store: store, Events: events}
	checkoutSvc := &service.CheckoutService{Repo: r, Carts: store, Events: events, DeliveryFee: cfg.DeliveryFee}
	catalogSvc := &service.CatalogService{Repo: r, Index: index, Events: events}
	socialSvc := &service.SocialService{Repo: r}
	authSvc := &service.AuthService{
		Repo:          r,
		Carts:         store,
		Events:        events,
		AccessSecret:  []byte(cfg.JWTAccessSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}

	renderer, err := httpserver.NewRenderer()
	if err != nil {
		log.Fatalf("templates: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		Cart:            &httpserver.CartHTTP{Cart: cartSvc},
		Checkout:        &httpserver.CheckoutHTTP{Checkout: checkoutSvc, Cart: cartSvc},
		Auth:            &httpserver.AuthHTTP{Auth: authSvc, SecureCookies: cfg.CookieSecure},
		Catalog:         &httpserver.CatalogHTTP{Catalog: catalogSvc, Social: socialSvc},
		Social:          &httpserver.SocialHTTP{Social: socialSvc},
		Orders:          &httpserver.OrderHTTP{Orders: &service.OrderService{Repo: r, TaxRate: cfg.TaxRate}},
		Admin:           &httpserver.AdminHTTP{Admin: &service.AdminService{Repo: r, Carts: store}, Catalog: catalogSvc},
		Renderer:        renderer,
		DB:              db,
		JWTSecret:       []byte(cfg.JWTAccessSecret),
		Refresher:       authSvc,
		SecureCookies:   cfg.CookieSecure,
		LoginRatePerMin: cfg.LoginRatePerMin,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("stopped")
}

// openSessions uses Redis when configured and an in-process store otherwise.
func openSessions(cfg *config.Config, logger *slog.Logger) (session.Store, func()) {
	if cfg.Redis.URL == "" {
		logger.Info("redis disabled, session carts are kept in memory")
		return session.NewMemoryStore(cfg.SessionTTL), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return session.NewRedisStore(rdb, cfg.SessionTTL), func() { _ = rdb.Close() }
}

func ensureAdmin(r *repo.GormRepo, cfg *config.Config, logger *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	pw, err := hash.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	created, err := r.EnsureAdmin(ctx, &models.User{
		Username:     "admin",
		Email:        cfg.AdminEmail,
		PasswordHash: pw,
	})
	if err != nil {
		return err
	}
	if created {
		logger.Info("admin account created", "email", cfg.AdminEmail)
	}
	return nil
}

// User service: OTP sign-in, access tokens, and the user directory.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickchat/internal/config"
	"github.com/quickchat/internal/handler"
	"github.com/quickchat/internal/logger"
	"github.com/quickchat/internal/middleware"
	"github.com/quickchat/internal/repository"
	"github.com/quickchat/internal/service"
	"github.com/quickchat/internal/startup"
	"github.com/quickchat/internal/storage"
	"github.com/quickchat/internal/storage/memory"
)

func main() {
	logger.SetPrefix("user")
	dev := flag.Bool("dev", false, "use in-memory OTP store instead of Redis")
	flag.Parse()

	logger.Info("starting user service")
	cfg := config.Load("config/user.yaml")
	if cfg.SMTP.Username == "" || cfg.SMTP.Password == "" {
		logger.Info("SMTP is not configured (SMTP_USERNAME/SMTP_PASSWORD); sign-in codes will not be delivered")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "user: ")
	defer pool.Close()
	startup.RunMigrations(pool)

	userRepo := repository.NewUserRepository(pool)

	var store storage.OTPStore
	if *dev {
		logger.Info("user -dev: in-memory OTP store (codes are lost on restart)")
		store = memory.New()
	} else {
		redisClient := startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second, "user: ")
		defer redisClient.Close()
		store = redisClient
	}

	queue := startup.ConnectNATSWithRetry(cfg.NATS.URL, "quickchat-user", 60*time.Second, "user: ")
	defer queue.Close()

	authSvc := service.NewOTPAuthService(userRepo, store, queue, []byte(cfg.JWT.Secret), cfg.JWT.TokenTTL)
	userH := handler.NewUserHandler(authSvc, userRepo)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog)
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/api/auth/request-code", userH.RequestCode)
	r.Post("/api/auth/verify-code", userH.VerifyCode)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth([]byte(cfg.JWT.Secret)))
		r.Use(middleware.RateLimitAPI)
		r.Get("/api/users/me", userH.Me)
		r.Patch("/api/users/me", userH.UpdateMe)
		r.Get("/api/users", userH.List)
	})

	// Profile resolution for the chat service; not exposed through the gateway.
	r.Get("/internal/users/{userID}", userH.GetPublic)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := cfg.ServerAddr
	if addr == "" {
		addr = ":8081"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	var srvWg sync.WaitGroup
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("user server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("user server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down user server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("user server shutdown: %v", err)
	}
	srvWg.Wait()
	logger.Info("user server stopped")
}

// Gateway: the single public entry point. Routes auth and directory calls to
// the user service, chat and WebSocket traffic to the chat service.
package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quickchat/internal/config"
	"github.com/quickchat/internal/logger"
	"github.com/quickchat/internal/middleware"
)

func newProxy(rawURL string) *httputil.ReverseProxy {
	target, err := url.Parse(rawURL)
	if err != nil {
		logger.Errorf("gateway: parse upstream url %q: %v", rawURL, err)
		os.Exit(1)
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Errorf("gateway: upstream %s %s: %v", r.Method, r.URL.Path, err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}
	return proxy
}

func main() {
	logger.SetPrefix("gateway")
	logger.Info("starting gateway")
	cfg := config.Load("config/gateway.yaml")

	userProxy := newProxy(cfg.UserServiceURL)
	chatProxy := newProxy(cfg.ChatServiceURL)

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

	r.Handle("/api/auth/*", userProxy)
	r.Handle("/api/users", userProxy)
	r.Handle("/api/users/*", userProxy)
	r.Handle("/api/chats", chatProxy)
	r.Handle("/api/chats/*", chatProxy)
	// ReverseProxy passes the WebSocket upgrade through.
	r.Handle("/ws", chatProxy)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := cfg.ServerAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout stays 0: it would cut long-lived proxied WebSockets.
		IdleTimeout: cfg.IdleTimeout,
	}
	var srvWg sync.WaitGroup
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("gateway listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("gateway: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down gateway...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("gateway shutdown: %v", err)
	}
	srvWg.Wait()
	logger.Info("gateway stopped")
}

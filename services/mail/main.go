// Mail service: consumes queued email jobs and delivers them over SMTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/quickchat/internal/config"
	"github.com/quickchat/internal/logger"
	"github.com/quickchat/internal/mailer"
	"github.com/quickchat/internal/mq"
	"github.com/quickchat/internal/startup"
)

func main() {
	logger.SetPrefix("mail")
	logger.Info("starting mail service")
	cfg := config.Load("config/mail.yaml")
	if cfg.SMTP.Username == "" || cfg.SMTP.Password == "" {
		logger.Info("SMTP is not configured (SMTP_USERNAME/SMTP_PASSWORD); jobs will fail until it is")
	}

	sender := mailer.NewSender(&cfg.SMTP)
	queue := startup.ConnectNATSWithRetry(cfg.NATS.URL, "quickchat-mail", 60*time.Second, "mail: ")
	defer queue.Close()

	err := queue.SubscribeEmailJobs(func(job mq.EmailJob) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := sender.Send(ctx, job.To, job.Subject, job.Body); err != nil {
			logger.Errorf("send to %s: %v", job.To, err)
			return
		}
		logger.Infof("sent %q to %s", job.Subject, job.To)
	})
	if err != nil {
		logger.Errorf("subscribe: %v", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = ":8083"
	}
	srv := &http.Server{Addr: addr, Handler: mux, ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second}
	var srvWg sync.WaitGroup
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("mail server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("mail server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down mail server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("mail server shutdown: %v", err)
	}
	srvWg.Wait()
	logger.Info("mail server stopped")
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"keybox/internal/server"
)

func main() {
	logger := log.New(os.Stdout, "[keyboxd] ", log.LstdFlags)

	cfg := server.Config{
		Addr:          os.Getenv("KEYBOX_ADDR"),
		MongoURI:      os.Getenv("MONGO_URL"),
		MongoDB:       os.Getenv("DB_NAME"),
		IdentityURL:   os.Getenv("IDENTITY_URL"),
		EncryptionKey: os.Getenv("KEYBOX_ENC_KEY"),
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitOrigins(v)
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			logger.Fatalf("invalid SESSION_TTL %q: %v", v, err)
		}
		cfg.SessionTTL = ttl
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := server.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if httpSrv.Addr == "" {
		httpSrv.Addr = ":8080"
	}

	go func() {
		logger.Printf("listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	if err := s.Close(shutdownCtx); err != nil {
		logger.Printf("close store: %v", err)
	}
}

func splitOrigins(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qolzam/telar/apps/recaptcha/internal/pkg/log"
	platformconfig "github.com/qolzam/telar/apps/recaptcha/internal/platform/config"
	"github.com/qolzam/telar/apps/recaptcha/internal/server"
)

func main() {
	cfg, err := platformconfig.LoadFromEnv()
	if err != nil {
		log.Error("Failed to load platform config: %v", err)
		os.Exit(1)
	}
	log.SetDebug(cfg.Server.Debug)
	if cfg.Server.Debug {
		log.DebugStruct(cfg.Redacted())
	}

	srv, err := server.New(cfg, server.Options{})
	if err != nil {
		log.Error("Failed to build server: %v", err)
		os.Exit(1)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Shutdown: %v", err)
		}
	}()

	if err := srv.Listen(); err != nil {
		log.Error("Server stopped: %v", err)
		os.Exit(1)
	}
}

// The raproxy binary serves the remote-attestation proxy: an HTTP
// endpoint exposing report verification to non-Go parties.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teeverse/attestation/internal/common/config"
	"github.com/teeverse/attestation/internal/common/logger"
	"github.com/teeverse/attestation/internal/proxy"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	log := logger.New("raproxy")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	server, err := proxy.New(cfg, nil, nil)
	if err != nil {
		log.WithError(err).Fatal("failed to build proxy")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Fatal("proxy exited")
		}
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Error("shutdown failed")
		}
	}
}

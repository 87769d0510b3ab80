// Command rfq-server runs the standalone RFQ price-discovery service
// (spec.md §4.9, §6): market makers connect here to receive quote
// solicitations and submit offers, kept separate from the swap coordinator
// so a burst of RFQ traffic can never delay swap settlement.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/otcnet/coordinator"
	"github.com/otcnet/coordinator/config"
	"github.com/otcnet/coordinator/otcauth"
	"github.com/otcnet/coordinator/rfqapi"
)

const httpShutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[rfq-server] %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	if err := coordinator.SetupLoggers(cfg.LogFile, cfg.LogLevel); err != nil {
		return fmt.Errorf("setup loggers: %w", err)
	}
	defer coordinator.CloseLogRotator()

	whitelist, err := otcauth.LoadWhitelist(cfg.WhitelistedMMFile)
	if err != nil {
		return fmt.Errorf("load mm whitelist: %w", err)
	}

	srv := rfqapi.New(whitelist)

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Handler(),
	}

	go func() {
		coordinator.RFQLog.Infof("listening on %s", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			coordinator.RFQLog.Errorf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownGrace)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

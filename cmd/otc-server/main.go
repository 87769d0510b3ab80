// Command otc-server is the swap coordinator daemon: it wires together
// persistence, chain adapters, the MM registry, the swap manager, the
// monitoring loop, and the HTTP/WS surface, mirroring degeri-dcrlnd's
// cmd/dcrlnd/main.go top-level wiring (config load, logger setup, signal
// handling, component construction in dependency order).
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/otcnet/coordinator"
	"github.com/otcnet/coordinator/api"
	"github.com/otcnet/coordinator/chainadapter"
	"github.com/otcnet/coordinator/chainadapter/bitcoin"
	"github.com/otcnet/coordinator/chainadapter/ethereum"
	"github.com/otcnet/coordinator/config"
	"github.com/otcnet/coordinator/evmbroadcast"
	"github.com/otcnet/coordinator/mmregistry"
	"github.com/otcnet/coordinator/otcauth"
	"github.com/otcnet/coordinator/otcdb"
	"github.com/otcnet/coordinator/swapmanager"
	"github.com/otcnet/coordinator/swapmonitor"
)

// httpShutdownGrace bounds how long in-flight HTTP requests get to finish
// after a shutdown signal before the listener is forced closed.
const httpShutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[otc-server] %v\n", err)
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

	masterKey, err := hex.DecodeString(cfg.OTCMasterKey)
	if err != nil {
		return fmt.Errorf("decode otc master key: %w", err)
	}

	db, err := otcdb.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	whitelist, err := otcauth.LoadWhitelist(cfg.WhitelistedMMFile)
	if err != nil {
		return fmt.Errorf("load mm whitelist: %w", err)
	}

	btcRPC, err := bitcoin.NewRPCClient(cfg.BitcoinRPCHost, cfg.BitcoinRPCUser, cfg.BitcoinRPCPass)
	if err != nil {
		return fmt.Errorf("dial bitcoin rpc: %w", err)
	}
	defer btcRPC.Shutdown()

	btcAdapter := bitcoin.New(btcRPC, bitcoin.NewEsploraClient(cfg.EsploraURL), &chaincfg.MainNetParams)

	if sup, err := chainadapter.NewSupervisor(
		cfg.BitcoinRPCHost,
		func(net.Conn) { coordinator.ChainLog.Infof("bitcoin rpc connection established") },
		func() { coordinator.ChainLog.Warnf("bitcoin rpc connection lost, retrying") },
	); err != nil {
		coordinator.ChainLog.Warnf("bitcoin rpc reconnect supervisor disabled: %v", err)
	} else {
		go sup.Run(ctx)
	}

	ethRPC, err := ethereum.DialNodeRPC(ctx, cfg.EthereumRPCURL)
	if err != nil {
		return fmt.Errorf("dial ethereum rpc: %w", err)
	}
	ethAdapter := ethereum.New(ethRPC, ethereum.NewHTTPIndexer(cfg.EthereumIndexerURL))

	chains := chainadapter.NewRegistry(btcAdapter, ethAdapter)

	broadcaster := evmbroadcast.New(ethRPC, coordinator.BroadcastLog)
	go broadcaster.Run(ctx)

	mmHubRegistry := mmregistry.NewRegistry()

	mgr := swapmanager.New(db.Quotes, db.Swaps, mmHubRegistry, masterKey, &chaincfg.MainNetParams)

	monitor := swapmonitor.New(db.Swaps, chains, mmHubRegistry, whitelist, masterKey, &chaincfg.MainNetParams, coordinator.MonitorLog)
	go monitor.Run(ctx)

	hub := api.NewMMHub(mmHubRegistry)
	srv := api.New(mgr, whitelist, hub)

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Handler(),
	}

	go func() {
		coordinator.HTTPLog.Infof("listening on %s", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			coordinator.HTTPLog.Errorf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpShutdownGrace)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

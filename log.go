// Package coordinator wires together the swap coordinator's subsystem
// loggers, mirroring degeri-dcrlnd's log.go: a placeholder logger per
// subsystem that SetupLoggers swaps for the real rotating-file-backed
// logger once the root writer is ready.
package coordinator

import (
	"github.com/decred/slog"

	"github.com/otcnet/coordinator/build"
)

// replaceableLogger lets package-level logger vars be declared before the
// root rotating writer exists, and then repointed at the real logger once
// SetupLoggers runs.
type replaceableLogger struct {
	slog.Logger
	subsystem string
}

var (
	rootLogWriter = build.NewRotatingLogWriter()

	coordinatorLoggers []*replaceableLogger

	addLogger = func(subsystem string) *replaceableLogger {
		l := &replaceableLogger{Logger: slog.Disabled, subsystem: subsystem}
		coordinatorLoggers = append(coordinatorLoggers, l)
		return l
	}

	// SwapLog covers swapfsm and swapmanager.
	SwapLog = addLogger("SWAP")
	// MonitorLog covers swapmonitor.
	MonitorLog = addLogger("MNTR")
	// MMRegistryLog covers mmregistry.
	MMRegistryLog = addLogger("MMRG")
	// RFQLog covers rfqagg.
	RFQLog = addLogger("RFQA")
	// DBLog covers otcdb.
	DBLog = addLogger("CHDB")
	// BroadcastLog covers evmbroadcast.
	BroadcastLog = addLogger("EVMB")
	// ChainLog covers chainadapter and its bitcoin/ethereum subpackages.
	ChainLog = addLogger("CHAD")
	// WalletLog covers walletkey.
	WalletLog = addLogger("WLTD")
	// AuthLog covers otcauth.
	AuthLog = addLogger("AUTH")
	// HTTPLog covers the api/rfqapi HTTP and WebSocket surface.
	HTTPLog = addLogger("HTTP")
)

// SetupLoggers opens logFile, points every subsystem logger declared above
// at it, and applies levelStr (a decred/slog level name) to all of them.
func SetupLoggers(logFile, levelStr string) error {
	if err := rootLogWriter.InitLogRotator(logFile, 3); err != nil {
		return err
	}
	for _, l := range coordinatorLoggers {
		l.Logger = rootLogWriter.SubLogger(l.subsystem)
	}
	return rootLogWriter.SetLogLevels(levelStr)
}

// CloseLogRotator releases the underlying log file. Call on shutdown.
func CloseLogRotator() error {
	return rootLogWriter.Close()
}

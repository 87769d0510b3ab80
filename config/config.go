// Package config defines the coordinator's startup configuration,
// populated from environment variables and flags via jessevdk/go-flags,
// the same library degeri-dcrlnd's config.go uses.
package config

import (
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Config holds every tunable the coordinator daemon needs at startup
// (spec.md §4.4, §4.1, §4.2, §4.10's environment-driven settings).
type Config struct {
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"Postgres connection string" required:"true"`

	OTCMasterKey string `long:"otc-master-key" env:"OTC_MASTER_KEY" description:"hex-encoded root key-derivation secret" required:"true"`

	WhitelistedMMFile string `long:"whitelisted-mm-file" env:"WHITELISTED_MM_FILE" description:"path to the MM API-key whitelist JSON file" required:"true"`

	MMApiKeyID string `long:"mm-api-key-id" env:"MM_API_KEY_ID" description:"this process's own MM API key ID, if it also acts as an MM client"`
	MMApiKey   string `long:"mm-api-key" env:"MM_API_KEY" description:"this process's own MM API key secret"`

	BitcoinRPCHost string `long:"bitcoin-rpc-host" env:"BITCOIN_RPC_HOST" description:"Bitcoin Core RPC endpoint" default:"localhost:8332"`
	BitcoinRPCUser string `long:"bitcoin-rpc-user" env:"BITCOIN_RPC_USER"`
	BitcoinRPCPass string `long:"bitcoin-rpc-pass" env:"BITCOIN_RPC_PASS"`
	EsploraURL     string `long:"esplora-url" env:"ESPLORA_URL" description:"Esplora-compatible indexer base URL" default:"https://blockstream.info/api"`

	EthereumRPCURL    string `long:"ethereum-rpc-url" env:"ETHEREUM_RPC_URL" description:"Ethereum JSON-RPC endpoint"`
	EthereumIndexerURL string `long:"ethereum-indexer-url" env:"ETHEREUM_INDEXER_URL" description:"token-transfer indexer base URL"`
	EthereumConfirmations uint64 `long:"ethereum-confirmations" env:"ETHEREUM_CONFIRMATIONS" description:"parsed but not read; the EVM adapter uses a fixed minimum of 4 confirmations" default:"4"`

	QuoteTimeoutMilliseconds uint64 `long:"quote-timeout-ms" env:"QUOTE_TIMEOUT_MILLISECONDS" description:"parsed but not read; the RFQ aggregator uses a fixed 500ms collection window" default:"500"`

	LogLevel string `long:"log-level" env:"LOG_LEVEL" default:"info"`
	LogFile  string `long:"log-file" env:"LOG_FILE" default:"otc-coordinator.log"`

	BindHost string `long:"bind-host" env:"BIND_HOST" default:"0.0.0.0"`
	BindPort uint16 `long:"bind-port" env:"BIND_PORT" default:"8080"`
}

// Load parses args (typically os.Args[1:]) into a Config, falling back to
// environment variables per each field's env tag.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

// Addr renders the bind host/port as a net.Listen-style address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindHost, c.BindPort)
}

package config

// Config is the root configuration structure.
type Config struct {
	Oracle  OracleConfig  `yaml:"oracle"`
	Market  MarketConfig  `yaml:"market"`
	Lending LendingConfig `yaml:"lending"`
	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// OracleConfig configures the price oracle.
type OracleConfig struct {
	Symbol        string         `yaml:"symbol"`
	MinSources    int            `yaml:"min_sources"`
	Sources       []string       `yaml:"sources"`
	InitialPrices []InitialPrice `yaml:"initial_prices"`
}

// InitialPrice seeds one (source, symbol) price record at bootstrap.
type InitialPrice struct {
	Source string `yaml:"source"`
	Symbol string `yaml:"symbol"`
	Price  string `yaml:"price"`
}

// MarketConfig configures the marketplace.
type MarketConfig struct {
	// InitialFunds is the native-currency balance the marketplace starts
	// with, so that sells can settle before any buys came in.
	InitialFunds string `yaml:"initial_funds"`
}

// LendingConfig configures the lending pool and its external reserve.
type LendingConfig struct {
	CollateralFactor int64         `yaml:"collateral_factor"`
	TokenSymbol      string        `yaml:"token_symbol"`
	PoolTokens       string        `yaml:"pool_tokens"`
	Reserve          ReserveConfig `yaml:"reserve"`
}

// ReserveConfig seeds the external reserve's two balances.
type ReserveConfig struct {
	ReferenceBalance string `yaml:"reference_balance"`
	AssetBalance     string `yaml:"asset_balance"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WSConfig configures WebSocket event streaming.
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

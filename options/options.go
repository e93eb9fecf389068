// Package options provides a way to manage global options settings.
package options

import "time"

// Options is a struct that holds the global options settings.
type Options struct {
	Server                  Server                  `mapstructure:"server"`
	Solc                    Solc                    `mapstructure:"solc"`
	Vyper                   Vyper                   `mapstructure:"vyper"`
	Database                Database                `mapstructure:"database"`
	Chains                  map[string]Chain        `mapstructure:"chains"`
	DecentralizedStorages   DecentralizedStorages   `mapstructure:"decentralized_storages"`
	MonitorFactories        bool                    `mapstructure:"monitor_factories"`
	SourcifyServerURLs      []string                `mapstructure:"sourcify_server_urls"`
	SourcifyRequestOptions  SourcifyRequestOptions  `mapstructure:"sourcify_request_options"`
	SimilarityVerification  SimilarityVerification  `mapstructure:"similarity_verification"`
	Worker                  Worker                  `mapstructure:"worker"`
	Etherscan               Etherscan               `mapstructure:"etherscan"`
}

// Server is a struct that holds the HTTP/CLI shell settings (§6 server.*).
// The shell itself is out of scope; these values are passed through to it.
type Server struct {
	Port          int   `mapstructure:"port"`
	MaxFileSize   int64 `mapstructure:"max_file_size"`
	EnableProfile bool  `mapstructure:"enable_profile"`
}

// Solc holds the Solidity compiler invoker settings (§4.A).
type Solc struct {
	SolcBinRepo string `mapstructure:"solc_bin_repo"`
	SolcJsRepo  string `mapstructure:"solc_js_repo"`
}

// Vyper holds the Vyper compiler invoker settings (§4.A).
type Vyper struct {
	VyperRepo string `mapstructure:"vyper_repo"`
}

// Database holds the Postgres, ClickHouse and Badger connection settings.
type Database struct {
	Postgres   Postgres   `mapstructure:"postgres"`
	Clickhouse ClickHouse `mapstructure:"clickhouse"`
	Badger     Badger     `mapstructure:"badger"`
	Redis      Redis      `mapstructure:"redis"`
}

// Postgres holds the settings for the content-addressed relational store (§3).
type Postgres struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Schema          string        `mapstructure:"schema"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ClickHouse is a struct that holds the settings for a ClickHouse database.
// It backs the signature_stats table (§4.I).
type ClickHouse struct {
	DebugEnabled     bool          `mapstructure:"debug_enabled"`
	Hosts            []string      `mapstructure:"hosts"`
	Database         string        `mapstructure:"database"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	MaxExecutionTime int           `mapstructure:"max_execution_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime_m"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
}

// Badger holds settings for the local ephemeral job-payload cache (§3, §4.E).
type Badger struct {
	Path string `mapstructure:"path"`
}

// Redis is a struct that holds the settings for a Redis database, used by the
// Chain Monitor as its seen-address set (§4.H). Per-endpoint RPC health and
// the vyper version listing are not stored in Redis.
type Redis struct {
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff_ms"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff_ms"`
}

// Chain holds the per-chain configuration enumerated in §6.
type Chain struct {
	Name                string     `mapstructure:"name"`
	RPC                 []Endpoint `mapstructure:"rpc"`
	Supported           bool       `mapstructure:"supported"`
	TraceSupportedRPCs  []int      `mapstructure:"trace_supported_rpcs"`
	ConfluxscanAPI      string     `mapstructure:"confluxscan_api"`
	BlockInterval       time.Duration `mapstructure:"block_interval"`
	BlockIntervalFactor float64       `mapstructure:"block_interval_factor"`
	BlockIntervalLower  time.Duration `mapstructure:"block_interval_lower"`
	BlockIntervalUpper  time.Duration `mapstructure:"block_interval_upper"`
}

// Endpoint describes one RPC endpoint of the three shapes in §6:
// a plain URL, an ApiKey templated URL, or a FetchRequest with headers.
type Endpoint struct {
	Type             string   `mapstructure:"type"` // "", "ApiKey", "FetchRequest"
	URL              string   `mapstructure:"url"`
	APIKeyEnvName    string   `mapstructure:"api_key_env_name"`
	SubDomainEnvName string   `mapstructure:"sub_domain_env_name"`
	Headers          []Header `mapstructure:"headers"`
	TraceSupport     string   `mapstructure:"trace_support"` // "", "parity", "geth"
}

// Header is a single HTTP header for a FetchRequest endpoint.
type Header struct {
	Name  string `mapstructure:"name"`
	Value string `mapstructure:"value"`
}

// DecentralizedStorages holds the IPFS gateway settings used by the Chain
// Monitor (§4.H) to fetch metadata by CID.
type DecentralizedStorages struct {
	IPFS IPFS `mapstructure:"ipfs"`
}

// IPFS holds the gateway fan-out settings.
type IPFS struct {
	Enabled   bool              `mapstructure:"enabled"`
	Gateways  []string          `mapstructure:"gateways"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	Retries   int               `mapstructure:"retries"`
	Headers   map[string]string `mapstructure:"headers"`
	FanOut    int               `mapstructure:"fan_out"`
	RateLimit int               `mapstructure:"rate_limit"`
}

// SourcifyRequestOptions holds retry settings for submitting verifications
// discovered by the Chain Monitor to one or more Sourcify servers.
type SourcifyRequestOptions struct {
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// SimilarityVerification holds the client-side trigger-contract settings (§4.H, §9).
type SimilarityVerification struct {
	RequestDelay time.Duration `mapstructure:"request_delay"`
}

// Worker holds the bounded verification worker pool settings (§4.F, §5).
type Worker struct {
	PoolSize      int           `mapstructure:"pool_size"`
	QueueSize     int           `mapstructure:"queue_size"`
	JobTimeout    time.Duration `mapstructure:"job_timeout"`
	CompilerCache string        `mapstructure:"compiler_cache"`
}

// Etherscan holds the Etherscan v2-style importer settings (§4.G).
type Etherscan struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	RateLimitS int           `mapstructure:"rate_limit_s"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

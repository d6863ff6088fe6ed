package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/spf13/pflag"
)

// EnvConfig names the environment variable consulted when no --config flag
// is given.
const EnvConfig = "BINSYNC_CLIENT_CONFIG"

// Config holds runtime settings for the binsync CLI.
//
// Fields:
//   - ServerURL: base URL of the HTTP sync endpoint.
//   - GRPCAddr: host:port of the gRPC health endpoint used for online checks.
//   - DatabaseDSN / KeyPrefix: local cache database and its key namespace.
//   - AccessToken: bearer token sent with every sync request.
//   - Parallelism: concurrent uploads during a full sync.
//   - OnlineCheckInterval: how often watch probes the server.
//   - EncryptCache: seal cached blobs with a passphrase.
type Config struct {
	ServerURL           string
	GRPCAddr            string
	DatabaseDSN         string
	KeyPrefix           string
	AccessToken         string
	Parallelism         int
	OnlineCheckInterval time.Duration
	EncryptCache        bool
	LogFile             string
	Debug               bool
	ConfigFile          string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.GRPCAddr = "127.0.0.1:50051"
	c.DatabaseDSN = "binsync.db"
	c.KeyPrefix = "binsync:"
	c.Parallelism = 4
	c.OnlineCheckInterval = 3 * time.Second
}

// Load overlays the JSON file, if any, onto c without touching fields whose
// flags were set explicitly in fs, then validates the result.
func Load(c *Config, fs *pflag.FlagSet) error {
	if err := parseJson(c, fs); err != nil {
		return err
	}
	return c.validate()
}

func (c *Config) validate() error {
	switch {
	case c.ServerURL == "":
		return fmt.Errorf("%w: server url is required", common.ErrConfig)
	case c.DatabaseDSN == "":
		return fmt.Errorf("%w: database dsn is required", common.ErrConfig)
	case c.Parallelism <= 0:
		return fmt.Errorf("%w: parallelism must be positive", common.ErrConfig)
	case c.OnlineCheckInterval <= 0:
		return fmt.Errorf("%w: online check interval must be positive", common.ErrConfig)
	}
	return nil
}

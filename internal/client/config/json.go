package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/dmitrijs2005/binsync/internal/timex"
	"github.com/spf13/pflag"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer fields
// distinguish an absent value from a zero one.
type JsonConfig struct {
	ServerURL           string          `json:"server_url"`
	GRPCAddr            string          `json:"grpc_addr"`
	DatabaseDSN         string          `json:"database_dsn"`
	KeyPrefix           *string         `json:"key_prefix"`
	AccessToken         string          `json:"access_token"`
	Parallelism         int             `json:"parallelism"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	EncryptCache        *bool           `json:"encrypt_cache"`
	LogFile             string          `json:"log_file"`
	Debug               *bool           `json:"debug"`
}

// parseJson reads the file named by c.ConfigFile or EnvConfig and copies its
// values into c, skipping fields whose flag was changed in fs.
func parseJson(c *Config, fs *pflag.FlagSet) error {
	path := c.ConfigFile
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrConfig, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrConfig, path, err)
	}

	changed := func(name string) bool {
		return fs != nil && fs.Changed(name)
	}

	if jc.ServerURL != "" && !changed(flagServer) {
		c.ServerURL = jc.ServerURL
	}
	if jc.GRPCAddr != "" && !changed(flagGRPC) {
		c.GRPCAddr = jc.GRPCAddr
	}
	if jc.DatabaseDSN != "" && !changed(flagDB) {
		c.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.KeyPrefix != nil && !changed(flagPrefix) {
		c.KeyPrefix = *jc.KeyPrefix
	}
	if jc.AccessToken != "" && !changed(flagToken) {
		c.AccessToken = jc.AccessToken
	}
	if jc.Parallelism != 0 && !changed(flagParallel) {
		c.Parallelism = jc.Parallelism
	}
	if jc.OnlineCheckInterval != nil && !changed(flagInterval) {
		c.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.EncryptCache != nil && !changed(flagEncrypt) {
		c.EncryptCache = *jc.EncryptCache
	}
	if jc.LogFile != "" && !changed(flagLogFile) {
		c.LogFile = jc.LogFile
	}
	if jc.Debug != nil && !changed(flagDebug) {
		c.Debug = *jc.Debug
	}
	return nil
}

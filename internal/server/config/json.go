package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/binsync/internal/flagx"
	"github.com/dmitrijs2005/binsync/internal/server/blobstore"
	"github.com/dmitrijs2005/binsync/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Absent
// fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP       string              `json:"endpoint_addr_http"`
	EndpointAddrGRPC       string              `json:"endpoint_addr_grpc"`
	DatabaseDSN            string              `json:"database_dsn"`
	SecretKey              string              `json:"secret_key"`
	TokenValidityDuration  timex.Duration      `json:"token_validity_duration"`
	PathStorage            string              `json:"pathStorage"`
	PathPattern            string              `json:"pathPattern"`
	AppName                string              `json:"appName"`
	EmailAlert             string              `json:"emailAlert"`
	EmailAddressFrom       string              `json:"emailAddressFrom"`
	EmailAddressTo         string              `json:"emailAddressTo"`
	MaxConcurrentTransfers int64               `json:"max_concurrent_transfers"`
	BlobBackend            string              `json:"blob_backend"`
	S3                     *blobstore.S3Config `json:"s3"`
	LogFile                string              `json:"log_file"`
	Debug                  bool                `json:"debug"`
}

// parseJson loads configuration values from the JSON file named by -c,
// -config or BINSYNC_CONFIG. Without a file nothing changes. An unreadable
// or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	setString(&config.PathStorage, c.PathStorage)
	setString(&config.PathPattern, c.PathPattern)
	setString(&config.AppName, c.AppName)
	setString(&config.EmailAlert, c.EmailAlert)
	setString(&config.EmailAddressFrom, c.EmailAddressFrom)
	setString(&config.EmailAddressTo, c.EmailAddressTo)
	if c.MaxConcurrentTransfers != 0 {
		config.MaxConcurrentTransfers = c.MaxConcurrentTransfers
	}
	setString(&config.BlobBackend, c.BlobBackend)
	if c.S3 != nil {
		setString(&config.S3.Region, c.S3.Region)
		setString(&config.S3.User, c.S3.User)
		setString(&config.S3.Password, c.S3.Password)
		setString(&config.S3.Bucket, c.S3.Bucket)
		setString(&config.S3.Endpoint, c.S3.Endpoint)
	}
	setString(&config.LogFile, c.LogFile)
	config.Debug = config.Debug || c.Debug
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

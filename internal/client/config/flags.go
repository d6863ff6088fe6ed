package config

import "github.com/spf13/pflag"

const (
	flagConfig   = "config"
	flagServer   = "server"
	flagGRPC     = "grpc"
	flagDB       = "db"
	flagPrefix   = "prefix"
	flagToken    = "token"
	flagParallel = "parallel"
	flagInterval = "interval"
	flagEncrypt  = "encrypt"
	flagLogFile  = "log-file"
	flagDebug    = "debug"
)

// BindFlags registers the client flags on fs, writing into c. The current
// values of c become the flag defaults, so call LoadDefaults first.
func BindFlags(fs *pflag.FlagSet, c *Config) {
	fs.StringVarP(&c.ConfigFile, flagConfig, "c", c.ConfigFile, "path to JSON config file")
	fs.StringVarP(&c.ServerURL, flagServer, "a", c.ServerURL, "base URL of the sync server")
	fs.StringVarP(&c.GRPCAddr, flagGRPC, "g", c.GRPCAddr, "address of the gRPC health endpoint")
	fs.StringVarP(&c.DatabaseDSN, flagDB, "d", c.DatabaseDSN, "local cache database")
	fs.StringVarP(&c.KeyPrefix, flagPrefix, "p", c.KeyPrefix, "key prefix of the local cache")
	fs.StringVarP(&c.AccessToken, flagToken, "t", c.AccessToken, "bearer token for the sync server")
	fs.IntVarP(&c.Parallelism, flagParallel, "w", c.Parallelism, "concurrent uploads during sync")
	fs.DurationVarP(&c.OnlineCheckInterval, flagInterval, "i", c.OnlineCheckInterval, "online check interval")
	fs.BoolVarP(&c.EncryptCache, flagEncrypt, "e", c.EncryptCache, "seal cached blobs with a passphrase")
	fs.StringVarP(&c.LogFile, flagLogFile, "l", c.LogFile, "log file (stderr when empty)")
	fs.BoolVarP(&c.Debug, flagDebug, "v", c.Debug, "debug logging")
}

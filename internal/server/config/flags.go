package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/binsync/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   bearer token HMAC secret
//	-p string   storage root (pathStorage)
//	-t string   storage path pattern (pathPattern)
//	-n string   application name used in alerts
//	-m string   email alert mode: none|immediate|hourly|daily
//	-f string   alert from-address
//	-r string   alert to-address
//	-w int      max concurrent transfers
//	-b string   blob backend: fs|s3
//	-l string   log file (rotated)
//	-v          debug logging
//	-issue-token string   print a bearer token for the subject and exit
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-g", "-d", "-s", "-p", "-t", "-n", "-m", "-f", "-r", "-w", "-b", "-l", "-v", "-issue-token",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "bearer token secret key")
	fs.StringVar(&config.PathStorage, "p", config.PathStorage, "storage root")
	fs.StringVar(&config.PathPattern, "t", config.PathPattern, "storage path pattern")
	fs.StringVar(&config.AppName, "n", config.AppName, "application name")
	fs.StringVar(&config.EmailAlert, "m", config.EmailAlert, "email alert mode")
	fs.StringVar(&config.EmailAddressFrom, "f", config.EmailAddressFrom, "alert from address")
	fs.StringVar(&config.EmailAddressTo, "r", config.EmailAddressTo, "alert to address")
	fs.Int64Var(&config.MaxConcurrentTransfers, "w", config.MaxConcurrentTransfers, "max concurrent transfers")
	fs.StringVar(&config.BlobBackend, "b", config.BlobBackend, "blob backend (fs or s3)")
	fs.StringVar(&config.LogFile, "l", config.LogFile, "log file")
	fs.BoolVar(&config.Debug, "v", config.Debug, "debug logging")
	fs.StringVar(&config.IssueToken, "issue-token", config.IssueToken, "print a token for this subject and exit")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

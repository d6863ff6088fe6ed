// Package config loads runtime configuration for the binsync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file named by --config/-c or BINSYNC_CLIENT_CONFIG.
//  3. Command-line flags bound with BindFlags; a flag given explicitly always
//     wins over the JSON file.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "grpc_addr": "127.0.0.1:50051",
//	  "database_dsn": "binsync.db",
//	  "key_prefix": "binsync:",
//	  "access_token": "...",
//	  "parallelism": 4,
//	  "online_check_interval": "3s",
//	  "encrypt_cache": false
//	}
package config

// Package cli implements the binsync command-line client on cobra.
//
// Commands work against the local binary cache and reach the server only for
// sync, pull and watch:
//
//	binsync add <file>             cache a file as a new binary record
//	binsync update <uid> <file>    replace the cached content of a record
//	binsync info <uid>             show a cached record and its local checksum
//	binsync list                   list cached records, pending ones marked
//	binsync open <uid>             write the cached blob to a directory
//	binsync evict <uid>            drop a record from the cache
//	binsync sync [uid]             upload pending records
//	binsync pull <uid>             download the canonical content of a record
//	binsync watch                  sync whenever the server becomes reachable
package cli

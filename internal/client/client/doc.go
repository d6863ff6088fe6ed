// Package client contains the client-side transport and bootstrap helpers
// for binsync.
//
// # Overview
//
// The package provides:
//  1. A transport contract (see the Client interface) to talk to the sync
//     server: Ping, Sync, GetRecord and Download.
//  2. HTTPClient, which posts multipart sync intents to the HTTP boundary and
//     maps response codes to sentinel errors.
//  3. GRPCClient, a thin wrapper over the standard gRPC health service used to
//     decide whether the server is reachable.
//  4. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// ErrUnavailable marks transport failures that are worth retrying later.
// ErrUnauthorized and the common sentinels (ErrValidation, ErrIntegrity,
// ErrNotFound) are returned for the matching server answers.
package client

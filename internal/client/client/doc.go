// Package client contains the transport layer of the stegkeeper client.
//
// # Overview
//
// The package provides:
//  1. The Client interface describing the remote steganography service:
//     capacity check, encode/decode for image, audio and video, key-pair
//     generation and a status probe.
//  2. HTTPClient, a multipart/form-data implementation that attaches an
//     optional bearer token and maps HTTP statuses to sentinel errors.
//  3. Database bootstrap helpers (InitDatabase, InitAuditDatabase,
//     RunMigrations, RunPostgresMigrations) applying embedded goose
//     migrations to the local SQLite file or a PostgreSQL audit sink.
//
// # Endpoints
//
// OperationPath maps (media kind, direction) to one of six paths:
// /encode, /decode, /encode_audio, /decode_audio, /encode_video and
// /decode_video. The auxiliary endpoints are /check_capacity (POST, "file"),
// /generate_keys (GET, ZIP archive) and /status (GET).
//
// # Error Handling
//
// Match errors with errors.Is:
//
//   - ErrUnavailable: no response (connection refused, timeout, ...)
//   - ErrUnauthorized: 401, the key/file combination failed integrity checks
//   - ErrDestroyed: 410, the service declared the file irrecoverable
//   - ErrRejected: any other non-2xx status
//   - ErrMalformedResponse: a 2xx answer that could not be understood
//
// Non-2xx answers are *StatusError values carrying the service's message.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. Every call honours its context.
package client

// Package server runs the NTM control API.
//
// The server owns the HTTP lifecycle: it binds master-port on the configured
// listen host, serves until its context is cancelled and then shuts down
// gracefully within api.shutdown_timeout.
//
// # Routes
//
// Authenticated with the shared secret (token query parameter, X-NTM-Token
// header or bearer Authorization header):
//
//   - GET /clients, PUT /client, DELETE /client/{id}
//   - GET /client/{id}/config
//   - PUT /client/{id}/proxy, DELETE /client/{id}/proxy/{name}
//   - GET /status
//
// Open:
//
//   - GET /health, GET /ready, GET /version
//   - GET /metrics (path configurable, only when metrics are enabled)
//
// # Middleware Chain
//
// Requests pass through recovery, request ID, logging and metrics middleware
// from pkg/server/middleware, outermost first.
//
// # Usage
//
//	srv := server.NewServer(cfg, reg,
//	    server.WithLogger(logger),
//	    server.WithStats(sup),
//	    server.WithMetrics(collector),
//	)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
package server

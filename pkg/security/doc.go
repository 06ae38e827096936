/*
Package security holds the authentication used by the NTM control API.

Every node shares one secret, server-token. The control API accepts it in
the token query parameter, the X-NTM-Token header or an Authorization
bearer header, and compares it in constant time:

	validator := auth.NewTokenValidator(cfg.ServerToken)
	mw := auth.NewTokenMiddleware(validator, auth.DefaultSources())
	mux.Handle("GET /clients", mw.Handle(listClients))

Requests without a valid token get 403 with {"error": "invalid token"}.

There is no transport security: the API is plain HTTP and the secret is
visible on the wire. Run it on a trusted network or behind a TLS proxy.
*/
package security

/*
Package auth provides shared-secret authentication for the NTM control API.

Every control API request must carry the server token. The middleware looks
for it in the configured sources, in order:

	sources := []auth.TokenSource{
		{Type: "query", Name: "token"},
		{Type: "header", Name: "X-NTM-Token"},
		{Type: "header", Name: "Authorization", Scheme: "Bearer"},
	}

	mw := auth.NewTokenMiddleware(auth.NewTokenValidator(cfg.ServerToken), sources)
	mux.Handle("GET /clients", mw.Handle(listHandler))

A request without a matching token is rejected with 403 Forbidden and the
JSON body {"error": "invalid token"}. Tokens are compared in constant time.

DefaultSources returns the source list above.
*/
package auth

// Package logging builds the structured logger shared by every NTM component.
//
// The logger wraps log/slog with a JSON or text handler. When redaction is
// enabled, string attribute values are scrubbed of the shared secret and of
// token query parameters before they reach the handler:
//
//	logger, err := logging.New(logging.Config{
//	    Level:   "info",
//	    Format:  "json",
//	    Secrets: []string{cfg.ServerToken},
//	})
//	logger.Info("fetching", "url", "http://host:8000/client/a/config?token=s3cret")
//	// url=http://host:8000/client/a/config?token=***
//
// Components derive their logger with a component attribute:
//
//	log := logger.With("component", "supervisor")
package logging

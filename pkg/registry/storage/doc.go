// Package storage provides file-backed implementations of registry.Store.
//
// Two backends are available:
//
//   - JSONFileStore writes the whole registry as one JSON document. Every
//     client and proxy object carries a "__type__" discriminator so files
//     produced by older deployments load unchanged.
//   - SQLiteStore keeps the registry in a single SQLite database using the
//     pure-Go modernc.org/sqlite driver.
//
// Both backends replace the full client list on every Save and preserve the
// order of clients and of proxies within each client.
//
// Use Open to construct the backend selected in configuration:
//
//	store, err := storage.Open(cfg.Registry)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package storage

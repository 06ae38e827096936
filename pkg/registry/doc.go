// Package registry is the authoritative store of clients and their proxies
// on an NTM server.
//
// A Registry holds an ordered list of clients, each owning an ordered list
// of proxies. Every mutation is written through to a Store before it becomes
// visible: mutations run under a single exclusive lock that covers the
// read-modify-write and the subsequent Save, while reads share a read lock.
// If Save fails the in-memory state is left exactly as it was before the
// mutation and a *PersistError is returned.
//
//	store := storage.NewJSONFileStore("proxy_config.json")
//	reg, err := registry.New(ctx, store, logger)
//	if err != nil {
//	    return err
//	}
//	if err := reg.CreateClient(ctx, "office"); err != nil {
//	    return err
//	}
//	err = reg.AddProxy(ctx, "office", registry.Proxy{
//	    Name: "ssh", Type: "tcp", LocalIP: "127.0.0.1", LocalPort: 22, RemotePort: 2222,
//	})
//
// Validation failures are reported with sentinel errors (ErrClientExists,
// ErrClientNotFound, ErrProxyExists, ErrProxyNotFound, ErrInvalidClient,
// ErrInvalidProxy) so callers can map them with errors.Is.
package registry

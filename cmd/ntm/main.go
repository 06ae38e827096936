// NTM supervises an frp tunnel process and keeps its configuration in sync.
//
// A server node runs frps together with a control API holding the registry
// of clients and their proxies. A client node runs frpc and periodically
// pulls its proxy list from the server.
//
// Usage:
//
//	# Run with the configuration in ./ntm.yaml
//	ntm run
//
//	# Run with a custom configuration file
//	ntm run --config /etc/ntm/ntm.yaml
//
//	# Check a configuration file
//	ntm validate --config /etc/ntm/ntm.yaml
//
//	# Manage the registry of a running server
//	ntm client add office
//	ntm proxy add office --name ssh --type tcp --local-port 22 --remote-port 6000
//
//	# Render a client's proxies from the registry file
//	ntm render office
package main

func main() {
	Execute()
}

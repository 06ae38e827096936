package registry

import (
	"fmt"
	"slices"
)

// Proxy is a single local-to-remote port mapping owned by a Client.
type Proxy struct {
	// Name is unique among the proxies of one client.
	Name string `json:"name"`

	// Type is the frp proxy type (tcp, udp, http, ...).
	Type string `json:"type"`

	// LocalIP is the address of the local service.
	LocalIP string `json:"localIP"`

	// LocalPort is the port of the local service.
	LocalPort int `json:"localPort"`

	// RemotePort is the port exposed on the server.
	RemotePort int `json:"remotePort"`

	// Flags are extra frp directives rendered verbatim, one per line.
	Flags []string `json:"flags"`
}

// Client is a named owner of an ordered set of proxies.
type Client struct {
	ID      string  `json:"id"`
	Proxies []Proxy `json:"proxies"`
}

// Validate checks the proxy fields. Flags are opaque and not inspected.
func (p Proxy) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProxy)
	case p.Type == "":
		return fmt.Errorf("%w: type is required", ErrInvalidProxy)
	case p.LocalIP == "":
		return fmt.Errorf("%w: localIP is required", ErrInvalidProxy)
	case !validPort(p.LocalPort):
		return fmt.Errorf("%w: localPort %d out of range", ErrInvalidProxy, p.LocalPort)
	case !validPort(p.RemotePort):
		return fmt.Errorf("%w: remotePort %d out of range", ErrInvalidProxy, p.RemotePort)
	}
	return nil
}

// Clone returns a deep copy of the proxy.
func (p Proxy) Clone() Proxy {
	p.Flags = slices.Clone(p.Flags)
	if p.Flags == nil {
		p.Flags = []string{}
	}
	return p
}

// Clone returns a deep copy of the client.
func (c Client) Clone() Client {
	proxies := make([]Proxy, len(c.Proxies))
	for i, p := range c.Proxies {
		proxies[i] = p.Clone()
	}
	c.Proxies = proxies
	return c
}

// Proxy returns the proxy with the given name.
func (c Client) Proxy(name string) (Proxy, bool) {
	i := c.proxyIndex(name)
	if i < 0 {
		return Proxy{}, false
	}
	return c.Proxies[i], true
}

func (c Client) proxyIndex(name string) int {
	return slices.IndexFunc(c.Proxies, func(p Proxy) bool { return p.Name == name })
}

func cloneClients(clients []Client) []Client {
	out := make([]Client, len(clients))
	for i, c := range clients {
		out[i] = c.Clone()
	}
	return out
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ntm-hq/ntm/pkg/registry"
	"ntm-hq/ntm/pkg/supervisor"
)

// Registry is the registry surface the handlers need.
type Registry interface {
	List() []registry.Client
	Get(id string) (registry.Client, error)
	Len() (clients, proxies int)
	CreateClient(ctx context.Context, id string) error
	DeleteClient(ctx context.Context, id string) error
	AddProxy(ctx context.Context, clientID string, p registry.Proxy) error
	RemoveProxy(ctx context.Context, clientID, name string) error
}

// StatsSource reports the supervised process state.
type StatsSource interface {
	Stats() supervisor.Stats
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of every successful mutation.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Role       string           `json:"role"`
	Clients    int              `json:"clients"`
	Proxies    int              `json:"proxies"`
	Supervisor supervisor.Stats `json:"supervisor"`
}

// clientView and proxyView tag every object with its __type__, the same
// shape the registry file uses.
type clientView struct {
	Type    string      `json:"__type__"`
	ID      string      `json:"id"`
	Proxies []proxyView `json:"proxies"`
}

type proxyView struct {
	Type string `json:"__type__"`
	registry.Proxy
}

func newClientViews(clients []registry.Client) []clientView {
	views := make([]clientView, 0, len(clients))
	for _, c := range clients {
		v := clientView{Type: "Client", ID: c.ID, Proxies: make([]proxyView, 0, len(c.Proxies))}
		for _, p := range c.Proxies {
			v.Proxies = append(v.Proxies, proxyView{Type: "Proxy", Proxy: p.Clone()})
		}
		views = append(views, v)
	}
	return views
}

// errInvalidRequest reports a body that is not JSON or lacks required keys.
var errInvalidRequest = errors.New("invalid request")

// proxyFields lists the keys a proxy body must carry.
var proxyFields = []string{"name", "type", "localIP", "localPort", "remotePort", "flags"}

type createClientRequest struct {
	ID *string `json:"id"`
}

// decodeProxy parses a proxy body. Every key in proxyFields must be present;
// ports may be JSON numbers or numeric strings and a null flags list is empty.
func decodeProxy(data []byte) (registry.Proxy, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return registry.Proxy{}, errInvalidRequest
	}
	for _, key := range proxyFields {
		if _, ok := raw[key]; !ok {
			return registry.Proxy{}, errInvalidRequest
		}
	}

	var p registry.Proxy
	for key, dst := range map[string]*string{"name": &p.Name, "type": &p.Type, "localIP": &p.LocalIP} {
		if err := json.Unmarshal(raw[key], dst); err != nil {
			return registry.Proxy{}, fmt.Errorf("%w: %s must be a string", errInvalidRequest, key)
		}
	}
	for key, dst := range map[string]*int{"localPort": &p.LocalPort, "remotePort": &p.RemotePort} {
		port, err := parsePort(raw[key])
		if err != nil {
			return registry.Proxy{}, fmt.Errorf("%w: %s %v", errInvalidRequest, key, err)
		}
		*dst = port
	}
	if err := json.Unmarshal(raw["flags"], &p.Flags); err != nil {
		return registry.Proxy{}, fmt.Errorf("%w: flags must be a list of strings", errInvalidRequest)
	}
	if p.Flags == nil {
		p.Flags = []string{}
	}
	return p, nil
}

func parsePort(raw json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return atoiPort(n.String())
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, errors.New("must be an integer")
	}
	return atoiPort(strings.TrimSpace(s))
}

func atoiPort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	return port, nil
}

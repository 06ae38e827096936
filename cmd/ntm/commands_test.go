package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ntm-hq/ntm/pkg/apiclient"
	"ntm-hq/ntm/pkg/cli"
	"ntm-hq/ntm/pkg/config"
	"ntm-hq/ntm/pkg/registry"
	"ntm-hq/ntm/pkg/server"
)

const testToken = "s3cret"

const registryDoc = `{"clients":[{"__type__":"Client","id":"office","proxies":[
{"__type__":"Proxy","name":"ssh","type":"tcp","localIP":"127.0.0.1","localPort":22,"remotePort":6000,"flags":["transport.useEncryption = true"]}]}]}`

func serverConfigFile(t *testing.T, dir string) string {
	t.Helper()
	return writeFile(t, dir, "ntm.yaml", fmt.Sprintf(`type: server
server-token: %q
master-port: 8000
bind-port: 7000
registry:
  backend: json
  path: %s
`, testToken, filepath.Join(dir, "proxy_config.json")))
}

func TestRun_DryRun(t *testing.T) {
	path := serverConfigFile(t, t.TempDir())

	out, err := executeCommand(t, "run", "--dry-run", "--config", path)
	if err != nil {
		t.Fatalf("run --dry-run failed: %v", err)
	}
	if !strings.Contains(out, "✓ Configuration valid") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "server") {
		t.Errorf("output should summarize the node:\n%s", out)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	valid := serverConfigFile(t, dir)
	invalid := writeFile(t, dir, "bad.yaml", "type: client\nmaster-port: 8000\n")

	tests := []struct {
		name     string
		args     []string
		wantCode int
		want     string
	}{
		{"valid", []string{"validate", "-c", valid}, cli.ExitOK, "✓ Configuration valid"},
		{"valid json", []string{"validate", "-c", valid, "-o", "json"}, cli.ExitOK, `"valid": true`},
		{"missing fields", []string{"validate", "-c", invalid}, cli.ExitConfig, ""},
		{"missing file", []string{"validate", "-c", filepath.Join(dir, "nope.yaml")}, cli.ExitConfig, ""},
		{"bad output", []string{"validate", "-c", valid, "-o", "xml"}, cli.ExitError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)
			if code := cli.ExitCode(err); code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (err: %v)", code, tt.wantCode, err)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	path := serverConfigFile(t, dir)
	writeFile(t, dir, "proxy_config.json", registryDoc)

	t.Run("proxies only", func(t *testing.T) {
		out, err := executeCommand(t, "render", "office", "-c", path)
		if err != nil {
			t.Fatalf("render failed: %v", err)
		}
		want := "\n[[proxies]]\nname=\"ssh\"\ntype=\"tcp\"\nlocalIP=\"127.0.0.1\"\nlocalPort=22\nremotePort=6000\ntransport.useEncryption = true\n"
		if out != want {
			t.Errorf("output = %q, want %q", out, want)
		}
	})

	t.Run("full config to file", func(t *testing.T) {
		outFile := filepath.Join(dir, "frpc.toml")
		if _, err := executeCommand(t, "render", "office", "-c", path,
			"--server-address", "frp.example.com:7000", "--out", outFile); err != nil {
			t.Fatalf("render failed: %v", err)
		}
		data, err := os.ReadFile(outFile)
		if err != nil {
			t.Fatalf("failed to read rendered file: %v", err)
		}
		got := string(data)
		for _, want := range []string{`serverAddr = "frp.example.com"`, "serverPort = 7000", testToken, `name="ssh"`} {
			if !strings.Contains(got, want) {
				t.Errorf("rendered file missing %q:\n%s", want, got)
			}
		}
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := executeCommand(t, "render", "nope", "-c", path)
		if !errors.Is(err, registry.ErrClientNotFound) {
			t.Errorf("err = %v, want ErrClientNotFound", err)
		}
	})
}

func newTestAPI(t *testing.T) (*registry.Registry, *httptest.Server) {
	t.Helper()
	reg, err := registry.New(context.Background(), registry.NewMemoryStore(), nil)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	cfg := &config.Config{Type: config.RoleServer, ServerToken: testToken, BindPort: 7000}
	config.ApplyDefaults(cfg)
	ts := httptest.NewServer(server.NewServer(cfg, reg).Handler())
	t.Cleanup(ts.Close)
	return reg, ts
}

func TestAdminCommands(t *testing.T) {
	reg, ts := newTestAPI(t)
	admin := func(args ...string) (string, error) {
		return executeCommand(t, append(args, "--server", ts.URL, "--token", testToken)...)
	}

	if _, err := admin("client", "add", "office"); err != nil {
		t.Fatalf("client add: %v", err)
	}
	if _, err := admin("proxy", "add", "office", "--name", "ssh", "--local-port", "22",
		"--remote-port", "6000", "--flag", "transport.useEncryption = true"); err != nil {
		t.Fatalf("proxy add: %v", err)
	}

	c, err := reg.Get("office")
	if err != nil {
		t.Fatalf("client not registered: %v", err)
	}
	if len(c.Proxies) != 1 || c.Proxies[0].Name != "ssh" || c.Proxies[0].LocalIP != "127.0.0.1" {
		t.Fatalf("unexpected proxies: %+v", c.Proxies)
	}
	if len(c.Proxies[0].Flags) != 1 {
		t.Errorf("flags = %v, want one", c.Proxies[0].Flags)
	}

	out, err := admin("client", "list", "-o", "json")
	if err != nil {
		t.Fatalf("client list: %v", err)
	}
	var rows []map[string]string
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("client list output is not JSON: %v\n%s", err, out)
	}
	if len(rows) != 1 || rows[0]["client"] != "office" || rows[0]["remote"] != "6000" {
		t.Errorf("rows = %v", rows)
	}

	out, err = admin("client", "config", "office")
	if err != nil {
		t.Fatalf("client config: %v", err)
	}
	if !strings.HasPrefix(out, "[[proxies]]\nname=\"ssh\"") {
		t.Errorf("client config output = %q", out)
	}

	if _, err := admin("proxy", "remove", "office", "ssh"); err != nil {
		t.Fatalf("proxy remove: %v", err)
	}
	if _, err := admin("client", "delete", "office"); err != nil {
		t.Fatalf("client delete: %v", err)
	}
	if clients, _ := reg.Len(); clients != 0 {
		t.Errorf("clients = %d after delete, want 0", clients)
	}
}

func TestAdminCommands_Errors(t *testing.T) {
	_, ts := newTestAPI(t)

	tests := []struct {
		name       string
		args       []string
		token      string
		wantStatus int
	}{
		{"bad token", []string{"client", "list"}, "wrong", 403},
		{"unknown client", []string{"client", "delete", "ghost"}, testToken, 400},
		{"duplicate client", []string{"client", "add", "dup"}, testToken, 400},
	}

	if _, err := executeCommand(t, "client", "add", "dup", "--server", ts.URL, "--token", testToken); err != nil {
		t.Fatalf("client add: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, append(tt.args, "--server", ts.URL, "--token", tt.token)...)
			var statusErr *apiclient.StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("err = %v, want *apiclient.StatusError", err)
			}
			if statusErr.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", statusErr.StatusCode, tt.wantStatus)
			}
			if cli.ExitCode(err) != cli.ExitError {
				t.Errorf("exit code = %d, want %d", cli.ExitCode(err), cli.ExitError)
			}
		})
	}
}

func TestProxyAdd_InvalidFlags(t *testing.T) {
	_, err := executeCommand(t, "proxy", "add", "office", "--name", "ssh",
		"--local-port", "0", "--remote-port", "6000", "--server", "http://127.0.0.1:1", "--token", testToken)
	if !errors.Is(err, registry.ErrInvalidProxy) {
		t.Errorf("err = %v, want ErrInvalidProxy", err)
	}
}

func TestControlURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "server on all interfaces",
			cfg:  config.Config{Type: config.RoleServer, MasterPort: 8000, API: config.APIConfig{ListenHost: "0.0.0.0"}},
			want: "http://127.0.0.1:8000",
		},
		{
			name: "server on a specific host",
			cfg:  config.Config{Type: config.RoleServer, MasterPort: 8000, API: config.APIConfig{ListenHost: "10.0.0.1"}},
			want: "http://10.0.0.1:8000",
		},
		{
			name: "client",
			cfg:  config.Config{Type: config.RoleClient, MasterPort: 8000, ServerAddress: "frp.example.com:7000"},
			want: "http://frp.example.com:8000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := controlURL(&tt.cfg); got != tt.want {
				t.Errorf("controlURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

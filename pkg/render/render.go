// Package render produces the TOML configuration files consumed by frpc and
// frps.
//
// The proxy block layout is fixed: clients compare fetched output byte for
// byte, so changes here change what every client writes to disk.
package render

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ntm-hq/ntm/pkg/registry"
)

// DefaultBindPort is used for frps when no bind port is configured.
const DefaultBindPort = 7000

// Proxy renders one [[proxies]] block. Flags follow the fixed fields, one per
// line, verbatim.
func Proxy(p registry.Proxy) string {
	var b strings.Builder
	b.WriteString("\n[[proxies]]\n")
	fmt.Fprintf(&b, "name=%s\n", quote(p.Name))
	fmt.Fprintf(&b, "type=%s\n", quote(p.Type))
	fmt.Fprintf(&b, "localIP=%s\n", quote(p.LocalIP))
	fmt.Fprintf(&b, "localPort=%d\n", p.LocalPort)
	fmt.Fprintf(&b, "remotePort=%d\n", p.RemotePort)
	for _, flag := range p.Flags {
		b.WriteString(flag)
		b.WriteString("\n")
	}
	return b.String()
}

// Proxies renders every proxy in order.
func Proxies(proxies []registry.Proxy) string {
	var b strings.Builder
	for _, p := range proxies {
		b.WriteString(Proxy(p))
	}
	return b.String()
}

// Client renders the proxies section served to a client.
func Client(c registry.Client) string {
	return Proxies(c.Proxies)
}

// ClientPreamble renders the connection and auth settings of frpc.
func ClientPreamble(serverAddress, token string) (string, error) {
	host, port, err := net.SplitHostPort(serverAddress)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", serverAddress, err)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid server port %q: %w", port, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "serverAddr = %s\n", quote(host))
	fmt.Fprintf(&b, "serverPort = %s\n", port)
	b.WriteString("\n")
	writeAuth(&b, token)
	return b.String(), nil
}

// ClientConfig combines the preamble with a proxies section fetched from the
// server. Surrounding whitespace of the result is trimmed.
func ClientConfig(serverAddress, token, proxies string) (string, error) {
	preamble, err := ClientPreamble(serverAddress, token)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(preamble + "\n" + proxies), nil
}

// ServerConfig renders the frps configuration. extra is an optional TOML
// fragment appended after the generated keys.
func ServerConfig(bindPort int, token, extra string) string {
	if bindPort <= 0 {
		bindPort = DefaultBindPort
	}

	var b strings.Builder
	fmt.Fprintf(&b, "bindPort = %d\n", bindPort)
	b.WriteString("\n")
	writeAuth(&b, token)

	if extra = strings.TrimSpace(extra); extra != "" {
		b.WriteString("\n")
		b.WriteString(extra)
		b.WriteString("\n")
	}
	return b.String()
}

func writeAuth(b *strings.Builder, token string) {
	b.WriteString("auth.method = \"token\"\n")
	fmt.Fprintf(b, "auth.token = %s\n", quote(token))
	b.WriteString("auth.additionalScopes = [\"HeartBeats\"]\n")
}

// quote renders s as a TOML basic string.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// WriteFile atomically replaces path with contents.
func WriteFile(path, contents string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(contents); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

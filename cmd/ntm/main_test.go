package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// executeCommand runs the root command with args and returns its output.
// Package-level flag values are reset first.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, verbose = "ntm.yaml", false
	runFlags.logLevel, runFlags.dryRun = "", false
	validateFlags.output = "text"
	renderFlags.serverAddress, renderFlags.outFile = "", ""
	adminFlags.server, adminFlags.token, adminFlags.output = "", "", "text"
	proxyFlags.name, proxyFlags.proxyType, proxyFlags.localIP = "", "tcp", "127.0.0.1"
	proxyFlags.localPort, proxyFlags.remotePort, proxyFlags.flags = 0, 0, nil

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// writeFile writes contents to name under a fresh temp dir and returns the path.
func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

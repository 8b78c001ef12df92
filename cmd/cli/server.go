package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	serverBinary       = "cratedig-server"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

// isServerRunning checks if the server is responding to health checks
func isServerRunning(serverURL string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findServerBinary looks next to the CLI, then on PATH, then in the usual install dirs
func findServerBinary() (string, error) {
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), serverBinary)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(serverBinary); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	for _, p := range []string{
		filepath.Join("/usr/local/bin", serverBinary),
		filepath.Join(home, "go", "bin", serverBinary),
		filepath.Join(home, ".local", "bin", serverBinary),
	} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%s binary not found", serverBinary)
}

// startServerBackground starts the server as a detached process. The server
// holds a lock on its history database, so a racing second start exits on its own.
func startServerBackground() error {
	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	cmd := exec.Command(serverPath)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return cmd.Process.Release()
}

func waitForServerReady(serverURL string) error {
	deadline := time.Now().Add(serverStartTimeout)
	for time.Now().Before(deadline) {
		if isServerRunning(serverURL) {
			return nil
		}
		time.Sleep(serverPollInterval)
	}
	return fmt.Errorf("server did not start within %v", serverStartTimeout)
}

// ensureServerRunning starts a local server when none answers at serverURL
func ensureServerRunning(serverURL string, status io.Writer) error {
	if isServerRunning(serverURL) {
		return nil
	}

	fmt.Fprintln(status, "Server not running, starting...")
	if err := startServerBackground(); err != nil {
		return err
	}
	if err := waitForServerReady(serverURL); err != nil {
		return err
	}
	fmt.Fprintln(status, "Server started")
	return nil
}

// Package main is a minimal HTTP health check binary for distroless containers.
// It exits 0 when /health answers 200 (healthy or degraded) and 1 otherwise.
// Compile with CGO_ENABLED=0 for a fully static binary.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"socialdash/internal/version"
)

func main() {
	url := flag.String("url", "http://localhost:8080/health", "Health endpoint to probe")
	timeout := flag.Duration("timeout", 3*time.Second, "Request timeout")
	flag.Parse()

	req, err := http.NewRequest(http.MethodGet, *url, nil)
	if err != nil {
		os.Exit(1)
	}
	req.Header.Set("User-Agent", version.GetInfo().UserAgent("healthcheck"))

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Do(req)
	if err != nil {
		os.Exit(1)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

// Command cli pushes heartbeats for heartbeat monitors, e.g. at the end of
// a cron job:
//
//	backup.sh && cli -monitor nightly-backup
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func main() {
	api := flag.String("api", envOr("API_BASE", "http://localhost:8080"), "API base URL")
	key := flag.String("key", os.Getenv("API_KEY"), "public or admin API key")
	monitor := flag.String("monitor", "", "heartbeat monitor id (prompted when empty)")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	id := strings.TrimSpace(*monitor)
	if id == "" {
		fmt.Print("Heartbeat monitor id: ")
		raw, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		id = strings.TrimSpace(raw)
	}
	if id == "" {
		fmt.Fprintln(os.Stderr, "monitor id is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := push(ctx, http.DefaultClient, *api, *key, id); err != nil {
		fmt.Fprintln(os.Stderr, "heartbeat failed:", err)
		os.Exit(1)
	}
	fmt.Println("heartbeat sent for", id)
}

func push(ctx context.Context, c *http.Client, base, key, id string) error {
	endpoint := strings.TrimRight(base, "/") + "/api/heartbeat/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

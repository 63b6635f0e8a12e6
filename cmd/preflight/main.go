// cmd/preflight/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"

	"github.com/hamed0406/uptimecore/internal/config"
)

type report struct {
	out    io.Writer
	errOut io.Writer
	failed bool
}

func (r *report) fail(msg string) { fmt.Fprintln(r.errOut, "✖", msg); r.failed = true }
func (r *report) warn(msg string) { fmt.Fprintln(r.errOut, "⚠", msg) }
func (r *report) ok(msg string)   { fmt.Fprintln(r.out, "✔", msg) }

func main() {
	ping := flag.Bool("ping", false, "connect to DATABASE_URL")
	flag.Parse()

	r := &report{out: os.Stdout, errOut: os.Stderr}
	check(config.FromEnv(), r)
	if *ping {
		pingDB(os.Getenv("DATABASE_URL"), r)
	}
	if r.failed {
		os.Exit(1)
	}
	r.ok("preflight passed")
}

func check(cfg config.Config, r *report) {
	if len(cfg.AdminKeys) == 0 {
		r.warn("API_KEYS_ADMIN is empty; /api/aggregate is open to anyone.")
	}
	if len(cfg.PublicKeys) == 0 && len(cfg.AdminKeys) == 0 {
		r.warn("no API keys configured; read and heartbeat routes are open.")
	}
	r.ok("API_ADDR=" + cfg.Addr)

	if cfg.DatabaseURL == "" {
		r.warn("DATABASE_URL empty; state lives in memory and is lost on restart.")
	} else if _, err := pgx.ParseConfig(cfg.DatabaseURL); err != nil {
		r.fail("DATABASE_URL does not parse: " + err.Error())
	} else {
		r.ok("DATABASE_URL present")
	}

	if cfg.KVPath == "" {
		r.warn("KV_PATH empty; heartbeats and leases are per-process.")
	} else if dir := filepath.Dir(cfg.KVPath); !isDir(dir) {
		r.fail("KV_PATH directory does not exist: " + dir)
	} else {
		r.ok("KV_PATH=" + cfg.KVPath)
	}

	if seed, err := config.LoadSeed(cfg.SeedFile); err != nil {
		r.fail("SEED_FILE invalid: " + err.Error())
	} else if cfg.SeedFile != "" {
		r.ok(fmt.Sprintf("SEED_FILE has %d monitors, %d contacts", len(seed.Monitors), len(seed.Contacts)))
	}

	if _, err := cron.ParseStandard(cfg.AggregateCron); err != nil {
		r.fail("AGGREGATE_CRON invalid: " + err.Error())
	} else {
		r.ok("AGGREGATE_CRON=" + cfg.AggregateCron)
	}

	switch {
	case cfg.SMTP.Host == "":
		r.warn("SMTP_HOST empty; email contacts are accepted but not delivered.")
	case cfg.SMTP.From == "":
		r.fail("SMTP_FROM is required when SMTP_HOST is set.")
	default:
		r.ok(fmt.Sprintf("SMTP=%s:%d", cfg.SMTP.Host, cfg.SMTP.Port))
	}

	if cfg.CheckInterval == 0 {
		r.warn("CHECK_INTERVAL_MS=0; the probe cycle is disabled.")
	}
}

func pingDB(dsn string, r *report) {
	if dsn == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		r.fail("database unreachable: " + err.Error())
		return
	}
	defer conn.Close(ctx)
	if err := conn.Ping(ctx); err != nil {
		r.fail("database ping failed: " + err.Error())
		return
	}
	r.ok("database reachable")
}

func isDir(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}

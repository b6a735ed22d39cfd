// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hamed0406/liveprobe/internal/config"
	"github.com/hamed0406/liveprobe/internal/conn"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	path := ""
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		fail(err.Error())
	}
	if err := cfg.Validate(); err != nil {
		fail(strings.ReplaceAll(err.Error(), "\n", "; "))
	}
	ok("config valid")

	if len(cfg.Server.AdminAPIKeys) == 0 {
		fail("LIVEPROBE_SERVER_ADMIN_API_KEYS is empty (admin routes are open).")
	}
	if len(cfg.Server.PublicAPIKeys) == 0 {
		warn("LIVEPROBE_SERVER_PUBLIC_API_KEYS is empty; read routes accept admin keys only.")
	}
	ok("server.addr=" + cfg.Server.Addr)

	if cfg.Database.DSN == "" {
		warn("database.dsn empty: targets and alert state are kept in memory and lost on restart.")
	} else if err := conn.Supports(cfg.Database.DSN); err != nil {
		fail("database.dsn: " + err.Error())
	} else {
		ok("database.dsn present")
	}

	if cfg.Alerts.SlackWebhook == "" {
		warn("alerts.slack_webhook empty: alerts go to the log only.")
	} else {
		ok("alerts.slack_webhook present")
	}

	if len(cfg.Server.CORSOrigins) == 0 {
		warn("server.cors_origins empty: all origins are allowed.")
	} else {
		ok("server.cors_origins=" + strings.Join(cfg.Server.CORSOrigins, ","))
	}

	if cfg.Scheduler.Interval == 0 {
		warn("scheduler.interval is 0: targets are only probed on demand.")
	}

	ok("preflight passed")
}

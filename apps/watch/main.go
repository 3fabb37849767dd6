// Command watch polls the portal API for a principal and prints their view
// whenever it refreshes. Handy for smoke-testing the reconciliation loop
// against a running API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kalasi/darasa/core"
	"github.com/kalasi/darasa/core/school"
	feedsvc "github.com/kalasi/darasa/services/feed"
	logsvc "github.com/kalasi/darasa/services/logger"
)

func main() {
	email := flag.String("email", "", "principal email to watch")
	role := flag.String("role", school.RoleStudent, "principal role: student|teacher")
	flag.Parse()

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "WATCH : ", log.LstdFlags|log.Lmicroseconds),
		conf,
	)
	logger.Enable(!conf.Debug)

	watcher := school.NewWatcher(feedsvc.NewHTTPFeed(conf), conf, logger)
	watcher.SetPrincipal(*email, *role)
	defer watcher.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(conf.PollInterval)
	defer ticker.Stop()

	var lastRefresh time.Time
	for {
		select {
		case <-sigCh:
			return
		case <-ticker.C:
			snap := watcher.Snapshot()
			if !snap.RefreshedAt.After(lastRefresh) {
				continue
			}
			lastRefresh = snap.RefreshedAt
			fmt.Printf(
				"[%s] %s (%s): %d notifications, %d assignments, %d submissions\n",
				snap.RefreshedAt.Format(time.RFC3339), snap.Principal, snap.Role,
				len(snap.Notifications), len(snap.Assignments), len(snap.Submissions),
			)
		}
	}
}

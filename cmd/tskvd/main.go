// tskvd loads a storage configuration, opens the engine, and runs a
// periodic flush loop until asked to stop — useful as a standalone
// process wrapping the engine for operators who don't embed it
// directly in another Go program.
package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xtxerr/tskv/internal/config"
	"github.com/xtxerr/tskv/internal/logging"
	"github.com/xtxerr/tskv/internal/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	flushInterval := flag.Duration("flush-interval", 10*time.Minute, "periodic FlushAll interval")
	jsonLogs := flag.Bool("json-logs", false, "emit structured logs as JSON")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logging.Init(level, *jsonLogs)

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("tskvd %s starting...", Version)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("no config file found at %s, using defaults", *cfgPath)
			cfg = config.DefaultConfig()
		} else {
			log.Fatalf("load config: %v", err)
		}
	}

	engine, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	log.Printf("storage opened (metrics=%d, page_store=%s)", len(cfg.Metrics), cfg.PageStore.Kind)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := engine.FlushAll(); err != nil {
				logging.Error("periodic flush failed", "error", err)
			}
		case <-sig:
			log.Println("shutting down, flushing every metric...")
			if err := engine.FlushAll(); err != nil {
				log.Printf("warning: final flush: %v", err)
			}
			return
		}
	}
}

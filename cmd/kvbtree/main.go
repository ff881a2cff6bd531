// Command kvbtree is a small demo/operations CLI around the disk-resident
// B-tree index: it opens or creates an index file, performs a single get/put
// operation or dumps page-level diagnostics, and optionally runs the
// background compaction daemon for the duration of the process.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/Sean-Leishman/CloaksDB/internal/compactor"
	"github.com/Sean-Leishman/CloaksDB/internal/config"
	"github.com/Sean-Leishman/CloaksDB/internal/storage/pager"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	dbPath := flag.String("db", "", "path to index file (overrides config)")
	pageSize := flag.Uint64("page-size", 0, "page size for a newly created file (overrides config)")
	put := flag.String("put", "", "key to insert/update; requires -value")
	value := flag.String("value", "", "value for -put")
	get := flag.String("get", "", "key to look up")
	dump := flag.Bool("dump", false, "print per-page diagnostics and exit")
	compact := flag.Bool("compact", false, "run one compaction sweep before exiting")
	daemonSchedule := flag.String("compaction-schedule", "", "run the background compactor on this cron schedule for the process lifetime (overrides config)")
	flag.Parse()

	runID := uuid.NewString()
	logger := log.New(os.Stderr, fmt.Sprintf("[kvbtree %s] ", runID[:8]), log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *pageSize != 0 {
		cfg.PageSize = *pageSize
	}
	if *daemonSchedule != "" {
		cfg.CompactionSchedule = *daemonSchedule
	}

	file, err := os.OpenFile(cfg.DBPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		logger.Fatalf("open %s: %v", cfg.DBPath, err)
	}
	defer file.Close()

	bt, err := pager.Open[string, string](file, cfg.PageSize, pager.StringCodec{}, pager.StringCodec{}, pager.WithLogger[string, string](logger))
	if err != nil {
		logger.Fatalf("open index: %v", err)
	}
	defer bt.Close()

	if cfg.CompactionSchedule != "" {
		daemon := compactor.New[string, string](bt, logger)
		if err := daemon.Start(cfg.CompactionSchedule); err != nil {
			logger.Fatalf("start compactor: %v", err)
		}
		defer daemon.Stop()
	}

	if *put != "" {
		if err := bt.Insert(*put, *value); err != nil {
			logger.Fatalf("put %q: %v", *put, err)
		}
		logger.Printf("put %q -> %q", *put, *value)
	}

	if *get != "" {
		got, err := bt.Search(*get)
		var notFound *pager.KeyNotFoundError
		switch {
		case errors.As(err, &notFound):
			fmt.Printf("%s: not found\n", *get)
		case err != nil:
			logger.Fatalf("get %q: %v", *get, err)
		default:
			fmt.Printf("%s=%s\n", *get, got)
		}
	}

	if *compact {
		daemon := compactor.New[string, string](bt, logger)
		daemon.SweepOnce()
	}

	if *dump {
		infos, err := pager.Inspect[string, string](bt)
		if err != nil {
			logger.Fatalf("inspect: %v", err)
		}
		fmt.Print(pager.FormatReport(infos))
	}

	if *put == "" && *get == "" && !*dump && !*compact {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -put/-value, -get, -dump, or -compact")
		os.Exit(2)
	}
}

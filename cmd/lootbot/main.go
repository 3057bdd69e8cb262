package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/Donobuz/BDO-Loot-Bot-sub001/catalog"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/config"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/dedup"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/logutil"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/match"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/ocr"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/pipeline"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/screenshot"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/session"
)

func main() {
	location := flag.String("location", "", "grind location (overrides LOCATION)")
	catalogFile := flag.String("catalog", "", "catalog YAML path (overrides CATALOG_FILE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *location != "" {
		cfg.Location = *location
	}
	if *catalogFile != "" {
		cfg.CatalogFile = *catalogFile
	}
	if cfg.Location == "" {
		fmt.Fprintln(os.Stderr, "no location: set LOCATION or pass -location")
		os.Exit(1)
	}

	logutil.Setup(cfg.EnableFileLogging)

	provider := catalog.FileProvider{Path: cfg.CatalogFile}
	if _, err := provider.Load(cfg.Location); err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		os.Exit(1)
	}
	watcher, err := catalog.Watch(cfg.CatalogFile, func() {
		log.Printf("catalog file changed; the next session picks it up")
	})
	if err != nil {
		log.Printf("catalog watcher unavailable: %v", err)
	} else {
		defer watcher.Close()
	}

	engine := &ocr.TesseractEngine{Lang: cfg.TesseractLang}
	p := pipeline.New(screenshot.DesktopCapture{}, engine, provider)
	p.OnDetection(func(l match.Loot) {
		fmt.Printf("+ %s x%d  (%.2f %s)\n", l.Item, l.Quantity, l.Confidence, l.Method)
	})

	err = p.Start(pipeline.Config{
		Region:        cfg.Region,
		Interval:      time.Duration(cfg.IntervalMs) * time.Millisecond,
		Location:      cfg.Location,
		OCRTimeout:    time.Duration(cfg.OCRTimeoutSec) * time.Second,
		QueueDepth:    cfg.QueueDepth,
		Dedup:         dedupConfig(cfg),
		SessionLogDir: cfg.SessionLogDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start session: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("tracking %q in region %s, Ctrl+C to stop\n", cfg.Location, cfg.Region)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	stats, err := p.Stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stop session: %v\n", err)
		os.Exit(1)
	}
	if summary, ok := p.Summary(); ok {
		printSummary(summary, stats)
	}
}

// dedupConfig applies any .env threshold overrides on top of the defaults.
func dedupConfig(cfg *config.Config) dedup.Config {
	d := dedup.DefaultConfig(cfg.Region.Height)
	if cfg.DedupWindowMs > 0 {
		d.Window = time.Duration(cfg.DedupWindowMs) * time.Millisecond
	}
	if cfg.SameRowTTLMs > 0 {
		d.SameRowTTL = time.Duration(cfg.SameRowTTLMs) * time.Millisecond
	}
	if cfg.ShiftTTLMs > 0 {
		d.ShiftTTL = time.Duration(cfg.ShiftTTLMs) * time.Millisecond
	}
	if cfg.BurstWindowMs > 0 {
		d.BurstWindow = time.Duration(cfg.BurstWindowMs) * time.Millisecond
	}
	return d
}

func printSummary(sum session.Summary, stats pipeline.Stats) {
	fmt.Printf("\nsession %s — %s\n", sum.ID, sum.Location)
	fmt.Printf("duration: %s\n", sum.Duration.Round(time.Second))

	names := make([]string, 0, len(sum.Loot))
	for name := range sum.Loot {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-40s %d\n", name, sum.Loot[name])
	}
	fmt.Printf("items: %d   silver: %d\n", sum.Items, sum.Silver)
	fmt.Printf("ticks: %d attempted, %d ok, %d failed, %d skipped, avg %s\n",
		stats.Attempted, stats.Succeeded, stats.Failed, stats.Skipped,
		stats.AvgProcessing.Round(time.Millisecond))
}

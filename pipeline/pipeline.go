// Package pipeline drives the capture → OCR → dedup → match → ledger cycle
// for one grind session. A ticker produces capture tasks; a single
// sequential consumer runs them, so dedup state and the ledger only ever
// see strictly ordered timestamps and need no locking.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Donobuz/BDO-Loot-Bot-sub001/catalog"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/dedup"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/lootlog"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/match"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/ocr"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/screenshot"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/session"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/worker"
)

var (
	ErrAlreadyRunning = errors.New("session already running")
	ErrNotRunning     = errors.New("no session running")
)

// rollingSamples is the window for the average processing time.
const rollingSamples = 100

// Config describes one session run.
type Config struct {
	Region   screenshot.Region
	Interval time.Duration
	Location string

	// Optional; zero values take defaults.
	OCRTimeout    time.Duration // default 5s
	QueueDepth    int           // default 8
	Dedup         dedup.Config  // default dedup.DefaultConfig(region height)
	SessionLogDir string        // empty disables the session log
}

// Stats are the running session counters. Values returned by Stats() and
// Stop() are copies; the live struct is only written by the pipeline.
type Stats struct {
	Attempted     uint64
	Succeeded     uint64
	Failed        uint64
	Skipped       uint64
	Dropped       uint64
	ItemsDetected uint64
	LastCapture   time.Time
	AvgProcessing time.Duration
}

// Pipeline owns the session it runs. Collaborators are injected; the
// pipeline is created and torn down per session pairing, never shared
// through globals.
type Pipeline struct {
	capture  screenshot.Capturer
	engine   ocr.Engine
	provider catalog.Provider

	onDetection func(match.Loot)

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	producerWG  sync.WaitGroup
	queue       *worker.Queue
	stats       Stats
	samples     []time.Duration
	lastSummary session.Summary
	haveSummary bool

	// consumer-only state, untouched outside the worker goroutine
	region     screenshot.Region
	ocrTimeout time.Duration
	ledger     *session.Ledger
	filter     *dedup.Filter
	matcher    *match.Matcher
	logw       *lootlog.Writer
	lastHash   uint32
	haveFrame  bool
}

func New(capture screenshot.Capturer, engine ocr.Engine, provider catalog.Provider) *Pipeline {
	return &Pipeline{
		capture:  capture,
		engine:   engine,
		provider: provider,
	}
}

// OnDetection registers a callback invoked once per accepted, matched
// pickup, from the consumer goroutine. Set it before Start.
func (p *Pipeline) OnDetection(fn func(match.Loot)) { p.onDetection = fn }

// Start validates the region, loads the catalog, and begins the
// capture/process loop. A catalog load failure degrades to an empty
// catalog; an invalid region fails the call.
func (p *Pipeline) Start(cfg Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}

	region, err := cfg.Region.Normalized()
	if err != nil {
		return err
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("invalid capture interval %v", cfg.Interval)
	}

	p.region = region
	p.ocrTimeout = cfg.OCRTimeout
	if p.ocrTimeout <= 0 {
		p.ocrTimeout = 5 * time.Second
	}

	p.ledger = session.NewLedger()
	if err := p.ledger.SetLocation(cfg.Location, p.provider); err != nil {
		log.Printf("pipeline: %v", err)
	}
	if err := p.ledger.Start(); err != nil {
		return err
	}
	p.matcher = match.NewMatcher(p.ledger.Catalog())

	dcfg := cfg.Dedup
	if dcfg.Window <= 0 {
		dcfg = dedup.DefaultConfig(region.Height)
	}
	dcfg.RegionHeight = region.Height
	p.filter = dedup.NewFilter(dcfg)

	p.stats = Stats{}
	p.samples = p.samples[:0]
	p.haveFrame = false
	p.haveSummary = false

	p.logw = nil
	if cfg.SessionLogDir != "" {
		w, err := lootlog.Create(cfg.SessionLogDir, p.ledger.ID())
		if err != nil {
			log.Printf("pipeline: session log disabled: %v", err)
		} else {
			p.logw = w
			_ = w.Header(p.ledger.ID(), cfg.Location, region, cfg.Interval, time.Now())
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.queue = worker.NewQueue(cfg.QueueDepth)

	p.producerWG.Add(1)
	go p.produce(ctx, cfg.Interval)

	p.running = true
	log.Printf("pipeline: session %s started at %q, region %s, interval %v",
		p.ledger.ID(), cfg.Location, region, cfg.Interval)
	return nil
}

// produce enqueues one capture task per tick until the context is
// cancelled. Ticks that find the queue full are dropped and counted; they
// must never run concurrently with an in-flight cycle.
func (p *Pipeline) produce(ctx context.Context, interval time.Duration) {
	defer p.producerWG.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.queue.Submit(ctx, p.tick) {
				p.mu.Lock()
				p.stats.Dropped++
				p.mu.Unlock()
			}
		}
	}
}

// Stop halts the loop, drains the queue, ends the session, and returns the
// final counters. Calling it with no session running reports ErrNotRunning.
func (p *Pipeline) Stop() (Stats, error) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return Stats{}, ErrNotRunning
	}
	p.running = false
	cancel := p.cancel
	queue := p.queue
	p.mu.Unlock()

	cancel()
	p.producerWG.Wait()
	queue.Close()

	summary, err := p.ledger.End()
	if err != nil {
		log.Printf("pipeline: end ledger: %v", err)
		summary = p.ledger.Summarize()
	}

	p.mu.Lock()
	p.lastSummary = summary
	p.haveSummary = true
	stats := p.snapshotLocked()
	p.mu.Unlock()

	if p.logw != nil {
		if err := p.logw.Footer(time.Now(), summary.Duration, stats.Attempted, stats.AvgProcessing); err != nil {
			log.Printf("pipeline: session log footer: %v", err)
		}
		p.logw = nil
	}
	log.Printf("pipeline: session %s stopped: %d items, %d silver, %d/%d ticks ok",
		summary.ID, summary.Items, summary.Silver, stats.Succeeded, stats.Attempted)
	return stats, nil
}

// Stats returns a copy of the running counters, safe to call from any
// goroutine while the worker runs.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Summary returns the ledger summary of the last stopped session.
func (p *Pipeline) Summary() (session.Summary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSummary, p.haveSummary
}

func (p *Pipeline) snapshotLocked() Stats {
	s := p.stats
	if n := len(p.samples); n > 0 {
		var total time.Duration
		for _, d := range p.samples {
			total += d
		}
		s.AvgProcessing = total / time.Duration(n)
	}
	return s
}

// tick is one capture-and-process cycle, run on the consumer goroutine.
// No failure here may stop the loop; errors become counters.
func (p *Pipeline) tick(ctx context.Context) {
	start := time.Now()
	p.mu.Lock()
	p.stats.Attempted++
	p.stats.LastCapture = start
	p.mu.Unlock()

	img, err := p.capture.CaptureRegion(p.region)
	if err != nil {
		p.fail("capture", err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	sum := screenshot.Checksum(img)
	if p.haveFrame && sum == p.lastHash {
		p.mu.Lock()
		p.stats.Skipped++
		p.mu.Unlock()
		return
	}
	p.lastHash = sum
	p.haveFrame = true

	octx, cancel := context.WithTimeout(ctx, p.ocrTimeout)
	readings, err := ocr.RecognizeWithContext(octx, p.engine, img)
	cancel()
	if err != nil {
		p.fail("ocr", err)
		return
	}
	if ctx.Err() != nil {
		// Stop was requested while OCR ran; discard the late result.
		return
	}

	detected := p.processReadings(readings, start)

	p.mu.Lock()
	p.stats.Succeeded++
	p.stats.ItemsDetected += uint64(detected)
	p.recordSampleLocked(time.Since(start))
	p.mu.Unlock()
}

// processReadings pushes each fragment through dedup → matcher → ledger and
// returns how many detections were recorded.
func (p *Pipeline) processReadings(readings []ocr.Reading, start time.Time) int {
	detected := 0
	for _, r := range readings {
		ts := r.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if !p.filter.Accept(r.Text, r.Top(), ts) {
			continue
		}
		elapsed := time.Since(start)

		if amount, ok := match.ParseSilver(r.Text); ok {
			if err := p.ledger.RecordSilver(amount); err != nil {
				log.Printf("pipeline: record silver: %v", err)
				continue
			}
			if p.logw != nil {
				_ = p.logw.Silver(ts, amount, elapsed)
			}
			continue
		}

		loot, ok := p.matcher.Match(r.Text, r.Confidence)
		if !ok {
			continue
		}
		if err := p.ledger.RecordMatch(loot); err != nil {
			log.Printf("pipeline: record match: %v", err)
			continue
		}
		detected++
		if p.logw != nil {
			_ = p.logw.Event(ts, loot, elapsed)
		}
		if p.onDetection != nil {
			p.onDetection(loot)
		}
	}
	return detected
}

func (p *Pipeline) fail(stage string, err error) {
	log.Printf("pipeline: %s failed: %v", stage, err)
	p.mu.Lock()
	p.stats.Failed++
	p.mu.Unlock()
}

func (p *Pipeline) recordSampleLocked(d time.Duration) {
	if len(p.samples) == rollingSamples {
		copy(p.samples, p.samples[1:])
		p.samples[len(p.samples)-1] = d
		return
	}
	p.samples = append(p.samples, d)
}

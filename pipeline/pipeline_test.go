package pipeline

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/Donobuz/BDO-Loot-Bot-sub001/catalog"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/dedup"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/match"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/ocr"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/screenshot"
	"github.com/Donobuz/BDO-Loot-Bot-sub001/session"
)

type stubProvider struct {
	entries []catalog.Entry
	err     error
}

func (s stubProvider) Load(string) ([]catalog.Entry, error) { return s.entries, s.err }

// fakeCapture returns frames whose content changes only when bumped.
type fakeCapture struct {
	mu    sync.Mutex
	frame byte
	err   error
	calls int
}

func (f *fakeCapture) bump() {
	f.mu.Lock()
	f.frame++
	f.mu.Unlock()
}

func (f *fakeCapture) CaptureRegion(region screenshot.Region) (*image.RGBA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Pix[0] = f.frame
	return img, nil
}

// scriptedEngine pops one batch of readings per recognize call.
type scriptedEngine struct {
	mu      sync.Mutex
	batches [][]ocr.Reading
	calls   int
}

func (e *scriptedEngine) Recognize(img *image.RGBA) ([]ocr.Reading, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if len(e.batches) == 0 {
		return nil, nil
	}
	batch := e.batches[0]
	e.batches = e.batches[1:]
	return batch, nil
}

func (e *scriptedEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func readingAt(text string, row int, ts time.Time, conf float64) ocr.Reading {
	top := row * 60
	return ocr.Reading{
		Text:       text,
		Confidence: conf,
		Bbox:       ocr.BboxFromRect(image.Rect(10, top, 200, top+20)),
		Timestamp:  ts,
	}
}

func validRegion() screenshot.Region {
	return screenshot.Region{X: 0, Y: 0, Width: 400, Height: 300}
}

func pollyCatalog() stubProvider {
	return stubProvider{entries: []catalog.Entry{{ID: 1, Name: "Polly's Feather"}}}
}

func TestStartRejectsInvalidRegion(t *testing.T) {
	p := New(&fakeCapture{}, &scriptedEngine{}, pollyCatalog())
	err := p.Start(Config{
		Region:   screenshot.Region{Width: 50, Height: 50},
		Interval: 100 * time.Millisecond,
		Location: "Polly Forest",
	})
	if !errors.Is(err, screenshot.ErrInvalidRegion) {
		t.Fatalf("got err %v, want ErrInvalidRegion", err)
	}
}

func TestStartTwiceAndStopTwice(t *testing.T) {
	p := New(&fakeCapture{}, &scriptedEngine{}, pollyCatalog())
	cfg := Config{Region: validRegion(), Interval: 50 * time.Millisecond, Location: "Polly Forest"}
	if err := p.Start(cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(cfg); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start: got %v, want ErrAlreadyRunning", err)
	}
	if _, err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := p.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop: got %v, want ErrNotRunning", err)
	}
}

func TestUnchangedFramesSkipOCR(t *testing.T) {
	capture := &fakeCapture{}
	engine := &scriptedEngine{}
	p := New(capture, engine, pollyCatalog())
	err := p.Start(Config{Region: validRegion(), Interval: 10 * time.Millisecond, Location: "Polly Forest"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	stats, err := p.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if engine.callCount() != 1 {
		t.Errorf("OCR ran %d times for an unchanging screen, want 1", engine.callCount())
	}
	if stats.Skipped == 0 {
		t.Error("expected skipped ticks for identical frames")
	}
	if stats.Attempted == 0 || stats.LastCapture.IsZero() {
		t.Errorf("stats not maintained: %+v", stats)
	}
}

func TestCaptureFailuresDoNotStopLoop(t *testing.T) {
	capture := &fakeCapture{err: fmt.Errorf("display unavailable")}
	p := New(capture, &scriptedEngine{}, pollyCatalog())
	err := p.Start(Config{Region: validRegion(), Interval: 10 * time.Millisecond, Location: "Polly Forest"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	stats, err := p.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stats.Failed < 2 {
		t.Errorf("Failed = %d, want several failed ticks", stats.Failed)
	}
	if stats.Succeeded != 0 {
		t.Errorf("Succeeded = %d with a dead capture backend", stats.Succeeded)
	}
}

func TestStartWithMissingCatalogDegrades(t *testing.T) {
	p := New(&fakeCapture{}, &scriptedEngine{}, stubProvider{err: catalog.ErrNoCatalog})
	err := p.Start(Config{Region: validRegion(), Interval: 50 * time.Millisecond, Location: "Valencia"})
	if err != nil {
		t.Fatalf("Start should degrade to an empty catalog, got %v", err)
	}
	if _, err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestDetectionFlow(t *testing.T) {
	capture := &fakeCapture{}
	engine := &scriptedEngine{batches: [][]ocr.Reading{
		{readingAt("Polly's Feather", 4, time.Time{}, 0.9)},
	}}
	p := New(capture, engine, pollyCatalog())

	var mu sync.Mutex
	var got []match.Loot
	p.OnDetection(func(l match.Loot) {
		mu.Lock()
		got = append(got, l)
		mu.Unlock()
	})

	err := p.Start(Config{Region: validRegion(), Interval: 10 * time.Millisecond, Location: "Polly Forest"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	stats, err := p.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Item != "Polly's Feather" {
		t.Fatalf("detections = %+v, want one Polly's Feather", got)
	}
	if stats.ItemsDetected != 1 {
		t.Errorf("ItemsDetected = %d, want 1", stats.ItemsDetected)
	}
	sum, ok := p.Summary()
	if !ok {
		t.Fatal("Summary should be available after Stop")
	}
	if sum.Loot["Polly's Feather"] != 1 {
		t.Errorf("summary loot = %+v", sum.Loot)
	}
}

// buildForReadings wires the consumer-side state without running the loop,
// so scripted timestamps drive the dedup window deterministically.
func buildForReadings(t *testing.T, provider catalog.Provider) *Pipeline {
	t.Helper()
	p := New(nil, nil, provider)
	p.ledger = session.NewLedger()
	if err := p.ledger.SetLocation("Polly Forest", provider); err != nil {
		t.Fatalf("SetLocation: %v", err)
	}
	if err := p.ledger.Start(); err != nil {
		t.Fatalf("Start ledger: %v", err)
	}
	p.matcher = match.NewMatcher(p.ledger.Catalog())
	p.filter = dedup.NewFilter(dedup.DefaultConfig(300))
	return p
}

func TestEndToEndScenario(t *testing.T) {
	p := buildForReadings(t, pollyCatalog())
	base := time.Now()

	feed := []ocr.Reading{
		readingAt("Pollys Feather", 4, base, 0.9),
		readingAt("Pollys Feather", 3, base.Add(400*time.Millisecond), 0.85), // FIFO shift
		readingAt("Polly's Feather", 4, base.Add(2000*time.Millisecond), 0.9), // new pickup
	}
	detected := 0
	for _, r := range feed {
		detected += p.processReadings([]ocr.Reading{r}, time.Now())
	}
	if detected != 2 {
		t.Fatalf("detected %d pickups, want 2", detected)
	}
	sum := p.ledger.Summarize()
	if sum.Loot["Polly's Feather"] != 2 {
		t.Errorf("ledger = %+v, want {Polly's Feather: 2}", sum.Loot)
	}
}

func TestSilverRouting(t *testing.T) {
	p := buildForReadings(t, pollyCatalog())
	base := time.Now()

	n := p.processReadings([]ocr.Reading{
		readingAt("1,250,000 Silver", 4, base, 0.95),
	}, time.Now())
	if n != 0 {
		t.Errorf("silver must not count as an item detection, got %d", n)
	}
	if got := p.ledger.Summarize().Silver; got != 1250000 {
		t.Errorf("silver = %d, want 1250000", got)
	}
}

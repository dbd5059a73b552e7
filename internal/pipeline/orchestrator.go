package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docnum/internal/config"
	"github.com/dgallion1/docnum/internal/engine"
	"github.com/dgallion1/docnum/internal/parser"
	"github.com/dgallion1/docnum/internal/stats"
	"github.com/dgallion1/docnum/internal/xref"
)

// ErrQueueFull is returned by Submit when no worker can take the build.
var ErrQueueFull = errors.New("build queue is full")

// Orchestrator runs document builds on a pool of workers.
type Orchestrator struct {
	builds *BuildStore
	queue  chan *Build
	stats  *stats.Window
	log    *slog.Logger
	cfg    config.Config

	mu         sync.Mutex
	onComplete []func(*Build)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(cfg config.Config, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		builds: NewBuildStore(cfg.BuildTTL),
		queue:  make(chan *Build, cfg.MaxQueueSize),
		stats:  stats.NewWindow(time.Hour),
		log:    log,
		cfg:    cfg,
	}
}

// OnComplete registers fn to run after every successful build. Register
// hooks before Start.
func (o *Orchestrator) OnComplete(fn func(*Build)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onComplete = append(o.onComplete, fn)
}

func (o *Orchestrator) complete(b *Build) {
	o.mu.Lock()
	hooks := append([]func(*Build){}, o.onComplete...)
	o.mu.Unlock()
	for _, fn := range hooks {
		fn(b)
	}
}

// EngineOptions are the numbering options for new builds.
func (o *Orchestrator) EngineOptions() engine.Options {
	return engine.Options{
		AppendixMarker:      o.cfg.AppendixMarker,
		Strategy:            xref.Mode(o.cfg.ReferenceStrategy),
		MaxBookmarkAttempts: o.cfg.BookmarkMaxAttempts,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	parserOpts := parser.Options{PDFFallback: o.cfg.PDFFallbackPdftotext}

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.log, parserOpts, o.stats, o.complete)
			for {
				select {
				case <-workerCtx.Done():
					return
				case b, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, b)
				}
			}
		}()
	}

	// Start build store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.builds.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new build for processing.
func (o *Orchestrator) Submit(b *Build) error {
	o.builds.Put(b)
	select {
	case o.queue <- b:
		return nil
	default:
		b.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// GetBuild returns a build by ID.
func (o *Orchestrator) GetBuild(id string) *Build {
	return o.builds.Get(id)
}

// LatestBuild returns the newest finished build of a document.
func (o *Orchestrator) LatestBuild(docID string) *Build {
	return o.builds.Latest(docID)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns build latency and outcome counts for the last hour.
func (o *Orchestrator) Stats() stats.Snapshot {
	return o.stats.Snapshot()
}

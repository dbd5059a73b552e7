package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docnum/internal/engine"
	"github.com/dgallion1/docnum/internal/parser"
	"github.com/dgallion1/docnum/internal/stats"
)

// Worker processes a single build.
type Worker struct {
	log        *slog.Logger
	parserOpts parser.Options
	stats      *stats.Window
	onComplete func(*Build)
	backoff    func(int) time.Duration
}

func NewWorker(log *slog.Logger, parserOpts parser.Options, st *stats.Window, onComplete func(*Build)) *Worker {
	return &Worker{
		log:        log,
		parserOpts: parserOpts,
		stats:      st,
		onComplete: onComplete,
		backoff:    Backoff,
	}
}

// Process parses and numbers one document.
func (w *Worker) Process(ctx context.Context, b *Build) {
	log := w.log.With("build_id", b.ID, "doc_id", b.DocID)
	start := time.Now()
	status := w.run(ctx, log, b)
	if w.stats != nil {
		w.stats.Record(string(status), time.Since(start))
	}
	if status != StatusFailed && w.onComplete != nil {
		w.onComplete(b)
	}
}

func (w *Worker) run(ctx context.Context, log *slog.Logger, b *Build) BuildStatus {
	// Phase 1: Parse
	b.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(b.Filename, w.parserOpts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		return w.fail(b, "parsing", err.Error())
	}

	doc, err := p.Parse(bytes.NewReader(b.FileData()), b.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		return w.fail(b, "parsing", fmt.Sprintf("parse: %s", err))
	}
	if b.Title != "" {
		doc.Title = b.Title
	}
	log.Info("parsed document", "blocks", len(doc.Blocks))

	// Phase 2: Number, retrying when stable ids run out.
	b.SetStatus(StatusNumbering, "numbering")
	var res *engine.Result
	for attempt := range MaxRetries {
		b.incrAttempts()
		res, err = engine.Build(ctx, doc, b.Options, log)
		if err == nil || !IsRetryable(err) {
			break
		}
		log.Warn("retryable numbering error", "attempt", attempt, "error", err)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			err = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		log.Error("numbering failed", "error", err)
		phase := "numbering"
		if errors.Is(err, context.Canceled) {
			phase = "canceled"
		}
		return w.fail(b, phase, err.Error())
	}

	b.setResult(res)
	for _, warn := range res.Warnings {
		b.AddError(fmt.Sprintf("%s: %s", warn.Code, warn.Message))
	}
	if len(res.Warnings) > 0 {
		b.SetStatus(StatusPartial, "done")
		return StatusPartial
	}
	b.SetStatus(StatusCompleted, "done")
	return StatusCompleted
}

func (w *Worker) fail(b *Build, phase, msg string) BuildStatus {
	b.AddError(msg)
	b.SetStatus(StatusFailed, phase)
	return StatusFailed
}

// Package engine implements the rate-governed, quality-gated insight
// generation loop ("blitz"). One engine instance runs per process; it is
// started and stopped through the API or the process entry point.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"InsightBlitz/internal/domain"
	"InsightBlitz/internal/ports"
)

const (
	// retryDelay paces recovery after a cycle-level failure.
	retryDelay = 10 * time.Second
	// minBatchSleep keeps turbo mode from spinning when the target rate
	// outruns what a batch interval can express.
	minBatchSleep = 100 * time.Millisecond
)

// InsightGenerator is what the engine needs from the generation tier.
type InsightGenerator interface {
	Generate(ctx context.Context, domainName string) domain.Insight
}

// Config selects between the sequential and turbo execution strategies of
// the same loop and sets the quality gate.
type Config struct {
	TargetPerHour    int
	QualityThreshold float64
	Turbo            bool
	MaxConcurrent    int
}

// Engine visits the domain pool round-robin, generates and scores an
// insight per domain, and persists the ones that clear the threshold.
type Engine struct {
	generator InsightGenerator
	store     ports.InsightStore
	domains   ports.DomainSource
	logger    *slog.Logger

	qualityThreshold float64
	turbo            bool
	maxConcurrent    int

	domainsProcessed  atomic.Int64
	insightsGenerated atomic.Int64
	targetPerHour     atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// StartResult reports the outcome of a start or stop call.
type StartResult struct {
	Status            string  `json:"status"`
	TargetPerHour     int     `json:"target_per_hour,omitempty"`
	QualityThreshold  float64 `json:"quality_threshold,omitempty"`
	DomainsProcessed  int64   `json:"domains_processed,omitempty"`
	InsightsGenerated int64   `json:"insights_generated,omitempty"`
}

// New wires the engine; counters start at zero.
func New(cfg Config, generator InsightGenerator, store ports.InsightStore, domains ports.DomainSource, logger *slog.Logger) *Engine {
	if cfg.TargetPerHour <= 0 {
		cfg.TargetPerHour = 500
	}
	if cfg.QualityThreshold <= 0 {
		cfg.QualityThreshold = 0.70
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}

	e := &Engine{
		generator:        generator,
		store:            store,
		domains:          domains,
		logger:           logger,
		qualityThreshold: cfg.QualityThreshold,
		turbo:            cfg.Turbo,
		maxConcurrent:    cfg.MaxConcurrent,
	}
	e.targetPerHour.Store(int64(cfg.TargetPerHour))
	return e
}

// Start launches the background loop. Starting an already-running engine
// is reported, not queued: the second caller gets "already_running" and
// no second loop is spawned. A non-positive target keeps the current one.
func (e *Engine) Start(targetPerHour int) StartResult {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return StartResult{Status: "already_running"}
	}
	e.running = true
	if targetPerHour > 0 {
		e.targetPerHour.Store(int64(targetPerHour))
	}

	var ctx context.Context
	ctx, e.cancel = context.WithCancel(context.Background())
	e.mu.Unlock()

	target := int(e.targetPerHour.Load())
	e.info("blitz started",
		"target_per_hour", target,
		"quality_threshold", e.qualityThreshold,
		"turbo", e.turbo,
		"max_concurrent", e.maxConcurrent)

	e.wg.Add(1)
	go e.loop(ctx)

	return StartResult{
		Status:           "started",
		TargetPerHour:    target,
		QualityThreshold: e.qualityThreshold,
	}
}

// Stop cooperatively halts the loop: the flag is observed at the top of
// the next iteration and in-flight work for the current cycle completes.
func (e *Engine) Stop() StartResult {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return StartResult{Status: "stopped"}
	}
	e.running = false
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()

	e.info("blitz stopped",
		"domains_processed", e.domainsProcessed.Load(),
		"insights_generated", e.insightsGenerated.Load())

	return StartResult{
		Status:            "stopped",
		DomainsProcessed:  e.domainsProcessed.Load(),
		InsightsGenerated: e.insightsGenerated.Load(),
	}
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Status returns a point-in-time counter snapshot. It always succeeds;
// degraded dependencies show up only as a dropping success rate.
func (e *Engine) Status() domain.EngineStatus {
	processed := e.domainsProcessed.Load()
	generated := e.insightsGenerated.Load()

	status := "stopped"
	if e.Running() {
		status = "running"
	}

	var successRate float64
	if processed > 0 {
		successRate = float64(generated) / float64(processed)
	}

	s := domain.EngineStatus{
		Status:            status,
		DomainsProcessed:  processed,
		InsightsGenerated: generated,
		QualityThreshold:  e.qualityThreshold,
		TargetPerHour:     int(e.targetPerHour.Load()),
		SuccessRate:       successRate,
	}
	if e.turbo {
		s.Concurrency = e.maxConcurrent
	}
	return s
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var interval time.Duration
		var err error
		if e.turbo {
			interval, err = e.turboCycle(ctx)
		} else {
			interval, err = e.cycle(ctx)
		}
		if err != nil {
			e.warn("blitz cycle failed", "error", err)
			interval = retryDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// cycle processes one domain and returns the pacing interval.
func (e *Engine) cycle(ctx context.Context) (time.Duration, error) {
	interval := e.interval()

	pool, err := e.domains.Domains(ctx)
	if err != nil {
		return 0, err
	}
	if len(pool) == 0 {
		return interval, nil
	}

	next := pool[int(e.domainsProcessed.Load())%len(pool)]
	e.processDomain(ctx, next)
	e.domainsProcessed.Add(1)

	return interval, nil
}

// turboCycle dispatches one concurrent batch and returns the per-batch
// pacing interval. A failing domain is isolated to its own goroutine and
// simply contributes nothing.
func (e *Engine) turboCycle(ctx context.Context) (time.Duration, error) {
	interval := e.interval() / time.Duration(e.maxConcurrent)
	if interval < minBatchSleep {
		interval = minBatchSleep
	}

	pool, err := e.domains.Domains(ctx)
	if err != nil {
		return 0, err
	}
	if len(pool) == 0 {
		return interval, nil
	}

	start := int(e.domainsProcessed.Load())
	batch := make([]string, 0, e.maxConcurrent)
	for i := 0; i < e.maxConcurrent; i++ {
		batch = append(batch, pool[(start+i)%len(pool)])
	}

	var wg sync.WaitGroup
	for _, domainName := range batch {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.warn("panic processing domain", "domain", name, "panic", r)
				}
			}()
			e.processDomain(ctx, name)
		}(domainName)
	}
	wg.Wait()

	e.domainsProcessed.Add(int64(len(batch)))
	return interval, nil
}

// processDomain generates, scores, and conditionally persists one insight.
func (e *Engine) processDomain(ctx context.Context, domainName string) {
	ins := e.generator.Generate(ctx, domainName)

	if ins.QualityScore < e.qualityThreshold {
		e.debug("low quality insight rejected",
			"domain", domainName, "quality", ins.QualityScore)
		return
	}

	if err := e.store.Append(ctx, ins); err != nil {
		e.warn("persist insight failed", "domain", domainName, "error", err)
		return
	}

	e.insightsGenerated.Add(1)
	e.info("quality insight generated",
		"domain", domainName, "quality", ins.QualityScore, "model", ins.Model)
}

func (e *Engine) interval() time.Duration {
	target := e.targetPerHour.Load()
	if target <= 0 {
		target = 500
	}
	return time.Duration(float64(time.Hour) / float64(target))
}

func (e *Engine) info(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e *Engine) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func (e *Engine) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

package autosave

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spatialforge/holodesk/backend/internal/infrastructure/logging"
	"github.com/spatialforge/holodesk/backend/internal/infrastructure/monitoring"
	"github.com/spatialforge/holodesk/backend/internal/shared/id"
	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

// historySize bounds the retained save-result history.
const historySize = 10

// Exporter produces the current workspace as a notebook document.
type Exporter interface {
	Snapshot(stamp time.Time) ([]byte, error)
}

// Options configures the pipeline's save policy and timing.
type Options struct {
	SaveOnFocusLoss  bool
	SaveOnMovement   bool
	Debounce         time.Duration
	MovementDebounce time.Duration
	Interval         time.Duration // zero disables the periodic save
}

// Pipeline queues trigger events and drains them one at a time. Each
// drained event exports the workspace once and writes it to every
// destination; per-destination outcomes land in a bounded history.
type Pipeline struct {
	opts     Options
	exporter Exporter
	dests    []Destination
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	onResult func(types.SaveResult)

	content  *Debouncer[string]
	movement *Debouncer[int]

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []types.Event
	draining  bool
	results   []types.SaveResult
	processed int64
	dropped   int64
	lastSave  *time.Time

	tickerStop chan struct{}
	tickerDone chan struct{}
}

// NewPipeline creates a pipeline with no destinations. Destinations
// are attached with WithDestinations before Start.
func NewPipeline(opts Options, exporter Exporter, logger *logging.Logger) *Pipeline {
	p := &Pipeline{
		opts:     opts,
		exporter: exporter,
		logger:   logger,
		content:  NewDebouncer[string](opts.Debounce),
		movement: NewDebouncer[int](opts.MovementDebounce),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// WithDestinations attaches fan-out destinations.
func (p *Pipeline) WithDestinations(dests ...Destination) *Pipeline {
	p.dests = append(p.dests, dests...)
	return p
}

// WithMetrics attaches a metrics collector.
func (p *Pipeline) WithMetrics(m *monitoring.Metrics) *Pipeline {
	p.metrics = m
	return p
}

// WithResultHook registers a callback invoked for every save result,
// after it is recorded. Used to stream results to WebSocket clients.
func (p *Pipeline) WithResultHook(fn func(types.SaveResult)) *Pipeline {
	p.onResult = fn
	return p
}

// Start launches the periodic interval save, if configured.
func (p *Pipeline) Start() {
	if p.opts.Interval <= 0 {
		return
	}
	p.tickerStop = make(chan struct{})
	p.tickerDone = make(chan struct{})
	go func() {
		defer close(p.tickerDone)
		ticker := time.NewTicker(p.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Submit(types.Event{Kind: types.EventIntervalSave, Time: time.Now()})
			case <-p.tickerStop:
				return
			}
		}
	}()
}

// Stop cancels pending debounces, stops the interval ticker, and waits
// for the queue to drain or the context to expire.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.content.Stop()
	p.movement.Stop()
	if p.tickerStop != nil {
		close(p.tickerStop)
		<-p.tickerDone
	}

	done := make(chan struct{})
	go func() {
		p.mu.Lock()
		for len(p.queue) > 0 || p.draining {
			p.cond.Wait()
		}
		p.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit applies the save policy and enqueues the event if it passes.
// It returns true if the event was accepted.
func (p *Pipeline) Submit(ev types.Event) bool {
	if !p.accepts(ev.Kind) {
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		if p.metrics != nil {
			p.metrics.EventsDropped.Inc()
		}
		p.logger.Debug("autosave event dropped by policy",
			zap.String("kind", string(ev.Kind)),
			zap.Int("window_id", ev.WindowID))
		return false
	}

	p.mu.Lock()
	p.queue = append(p.queue, ev)
	if !p.draining {
		p.draining = true
		go p.drain()
	}
	p.mu.Unlock()
	return true
}

// accepts implements the event policy: focus-gained never saves, the
// focus-loss and movement triggers sit behind switches, everything
// else always saves.
func (p *Pipeline) accepts(kind types.EventKind) bool {
	switch kind {
	case types.EventFocusGained:
		return false
	case types.EventFocusLost:
		return p.opts.SaveOnFocusLoss
	case types.EventMovementStopped:
		return p.opts.SaveOnMovement
	default:
		return true
	}
}

// NotifyContentChanged debounces workspace content edits into one
// content-changed save per quiet period.
func (p *Pipeline) NotifyContentChanged() {
	p.content.Fire("workspace", func() {
		p.Submit(types.Event{Kind: types.EventContentChanged, Time: time.Now()})
	})
}

// ReportMovement debounces per-window movement; the event fires once
// the window has been still for the movement window.
func (p *Pipeline) ReportMovement(windowID int, pos types.Position) {
	p.movement.Fire(windowID, func() {
		p.Submit(types.Event{
			Kind:     types.EventMovementStopped,
			WindowID: windowID,
			Position: &pos,
			Time:     time.Now(),
		})
	})
}

// ReportFocus submits focus transitions. Gained is always filtered,
// lost follows the policy switch.
func (p *Pipeline) ReportFocus(windowID int, gained bool) {
	kind := types.EventFocusLost
	if gained {
		kind = types.EventFocusGained
	}
	p.Submit(types.Event{Kind: kind, WindowID: windowID, Time: time.Now()})
}

// WindowClosed submits a window-closed save; closing a window also
// cancels any pending movement debounce for it.
func (p *Pipeline) WindowClosed(windowID int) {
	p.movement.Cancel(windowID)
	p.Submit(types.Event{Kind: types.EventWindowClosed, WindowID: windowID, Time: time.Now()})
}

// SaveNow submits a manual save.
func (p *Pipeline) SaveNow() {
	p.Submit(types.Event{Kind: types.EventManualSave, Time: time.Now()})
}

// Flush blocks until the queue is empty or the context expires.
func (p *Pipeline) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.mu.Lock()
		for len(p.queue) > 0 || p.draining {
			p.cond.Wait()
		}
		p.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain processes queued events in order until the queue is empty.
// Only one drain goroutine runs at a time.
func (p *Pipeline) drain() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.draining = false
			p.cond.Broadcast()
			p.mu.Unlock()
			return
		}
		ev := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.process(ev)
	}
}

// process exports the workspace once and fans the bytes out to every
// destination, recording one result per destination.
func (p *Pipeline) process(ev types.Event) {
	stamp := time.Now()

	data, err := p.exporter.Snapshot(stamp)
	if err != nil {
		p.logger.Error("workspace export failed, skipping save",
			zap.String("event", string(ev.Kind)),
			zap.Error(err))
		p.record(types.SaveResult{
			ID:          id.NewSaveID().String(),
			Destination: "export",
			Event:       ev.Kind,
			WindowID:    ev.WindowID,
			Position:    ev.Position,
			Success:     false,
			Error:       err.Error(),
			Timestamp:   stamp,
		})
		return
	}

	for _, dest := range p.dests {
		start := time.Now()
		loc, werr := dest.Write(context.Background(), data, stamp)
		elapsed := time.Since(start)

		res := types.SaveResult{
			ID:          id.NewSaveID().String(),
			Destination: dest.Name(),
			Event:       ev.Kind,
			WindowID:    ev.WindowID,
			Position:    ev.Position,
			Success:     werr == nil,
			Location:    loc,
			Timestamp:   stamp,
		}
		if werr != nil {
			res.Error = werr.Error()
			p.logger.Warn("autosave destination write failed",
				zap.String("destination", dest.Name()),
				zap.String("event", string(ev.Kind)),
				zap.Error(werr))
		} else {
			p.logger.Debug("autosave written",
				zap.String("destination", dest.Name()),
				zap.String("event", string(ev.Kind)),
				zap.String("location", loc))
		}

		if p.metrics != nil {
			p.metrics.RecordSave(dest.Name(), werr == nil, elapsed)
		}
		p.record(res)
	}

	p.mu.Lock()
	p.processed++
	now := time.Now()
	p.lastSave = &now
	p.mu.Unlock()
}

// record appends a result to the bounded history and invokes the hook.
func (p *Pipeline) record(res types.SaveResult) {
	p.mu.Lock()
	p.results = append(p.results, res)
	if len(p.results) > historySize {
		p.results = p.results[len(p.results)-historySize:]
	}
	p.mu.Unlock()

	if p.onResult != nil {
		p.onResult(res)
	}
}

// Results returns a copy of the retained save history, oldest first.
func (p *Pipeline) Results() []types.SaveResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.SaveResult, len(p.results))
	copy(out, p.results)
	return out
}

// Stats returns a snapshot of pipeline counters.
func (p *Pipeline) Stats() types.PipelineStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.dests))
	for _, d := range p.dests {
		names = append(names, d.Name())
	}
	return types.PipelineStats{
		Queued:       len(p.queue),
		Processed:    p.processed,
		Dropped:      p.dropped,
		LastSave:     p.lastSave,
		Destinations: names,
	}
}

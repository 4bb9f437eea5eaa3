package health

import (
	"context"
	"sync"
	"time"

	"github.com/imathwy/tbps/internal/client"
	"github.com/imathwy/tbps/internal/models"
	"github.com/imathwy/tbps/internal/server"
	"github.com/rs/zerolog"
)

const (
	DefaultInterval     = 30 * time.Second
	DefaultDedupeWindow = 5 * time.Second
)

// Checker fetches one health snapshot from the selected backend.
type Checker interface {
	CheckHealth(ctx context.Context, sel server.Selector) (*models.HealthSnapshot, error)
}

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePolling Phase = "polling"
	PhaseSettled Phase = "settled"
)

// Status is the latest poll outcome. While a new poll runs, Phase is
// PhasePolling and the previous outcome is still reported.
type Status struct {
	Phase     Phase
	Server    server.Selector
	Health    *models.HealthSnapshot
	Err       error
	Message   string
	Seq       uint64
	CheckedAt time.Time
}

func (s Status) Healthy() bool {
	return s.Err == nil && s.Health != nil
}

type Options struct {
	Interval     time.Duration
	DedupeWindow time.Duration
	Now          func() time.Time
}

func (o *Options) applyDefaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.DedupeWindow < 0 {
		o.DedupeWindow = 0
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type poll struct {
	seq    uint64
	sel    server.Selector
	done   chan struct{}
	cancel context.CancelFunc
}

// Poller checks backend health on a fixed interval and on demand. At most one
// poll is in flight; only the most recently started poll may update the status.
type Poller struct {
	checker   Checker
	selection *server.Selection
	opts      Options
	logger    *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	status      Status
	seq         uint64
	inflight    *poll
	last        *poll
	lastStart   time.Time
	started     bool
	stopped     bool
	subscribers []chan Status
}

func NewPoller(checker Checker, selection *server.Selection, opts Options, logger *zerolog.Logger) *Poller {
	opts.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Poller{
		checker:   checker,
		selection: selection,
		opts:      opts,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		status:    Status{Phase: PhaseIdle},
	}
}

// Start issues a poll right away and then one per interval until ctx is
// done or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.startLocked()
	p.mu.Unlock()

	p.logger.Info().
		Dur("interval", p.opts.Interval).
		Dur("dedupe_window", p.opts.DedupeWindow).
		Msg("health poller started")

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.tick()
			case <-ctx.Done():
				go p.Stop()
				return
			case <-p.ctx.Done():
				return
			}
		}
	}()
}

// Stop ends polling. A poll still in flight is cancelled and its result dropped.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	if p.inflight != nil {
		p.inflight.cancel()
	}
	for _, ch := range p.subscribers {
		close(ch)
	}
	p.subscribers = nil
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	p.logger.Info().Msg("health poller stopped")
}

// Refresh asks for a fresh snapshot. It joins a poll already in flight, and
// collapses into the last poll if that one started within the dedupe window.
// The returned channel is closed once the joined or started poll settles.
func (p *Poller) Refresh() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		done := make(chan struct{})
		close(done)
		return done
	}

	current := p.selection.Get()

	if p.inflight != nil && p.inflight.sel == current {
		p.logger.Debug().Uint64("seq", p.inflight.seq).Msg("refresh joined in-flight poll")
		return p.inflight.done
	}

	if p.inflight == nil && p.last != nil && p.last.sel == current &&
		p.opts.Now().Sub(p.lastStart) < p.opts.DedupeWindow {
		p.logger.Debug().Uint64("seq", p.last.seq).Msg("refresh deduplicated")
		return p.last.done
	}

	return p.startLocked().done
}

func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Subscribe returns a channel that receives each applied status. Slow
// readers only see the latest one. The channel is closed by Stop.
func (p *Poller) Subscribe() <-chan Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Status, 1)
	if p.stopped {
		close(ch)
		return ch
	}
	p.subscribers = append(p.subscribers, ch)
	return ch
}

func (p *Poller) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	if p.inflight != nil && p.inflight.sel == p.selection.Get() {
		p.logger.Debug().Uint64("seq", p.inflight.seq).Msg("poll still in flight, skipping tick")
		return
	}
	p.startLocked()
}

// startLocked begins a new poll, superseding any poll for another server.
func (p *Poller) startLocked() *poll {
	if p.inflight != nil {
		p.inflight.cancel()
	}

	p.seq++
	ctx, cancel := context.WithCancel(p.ctx)
	next := &poll{
		seq:    p.seq,
		sel:    p.selection.Get(),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	p.inflight = next
	p.last = next
	p.lastStart = p.opts.Now()
	p.status.Phase = PhasePolling

	go p.run(ctx, next)
	return next
}

func (p *Poller) run(ctx context.Context, current *poll) {
	defer close(current.done)
	defer current.cancel()

	snapshot, err := p.checker.CheckHealth(ctx, current.sel)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inflight == current {
		p.inflight = nil
	}

	switch {
	case p.stopped:
		return
	case current.seq != p.seq:
		p.logger.Debug().Uint64("seq", current.seq).Uint64("latest", p.seq).Msg("discarding stale poll")
		return
	case current.sel != p.selection.Get():
		p.logger.Debug().Str("server", string(current.sel)).Msg("discarding poll for previous server")
		p.status.Phase = PhaseIdle
		return
	}

	p.status = Status{
		Phase:     PhaseSettled,
		Server:    current.sel,
		Seq:       current.seq,
		CheckedAt: p.opts.Now(),
	}
	if err != nil {
		p.status.Err = err
		p.status.Message = client.Message(err)
		p.logger.Warn().Err(err).Str("server", string(current.sel)).Msg("health check failed")
	} else {
		p.status.Health = snapshot
		p.logger.Debug().
			Str("server", string(current.sel)).
			Str("status", string(snapshot.Status)).
			Str("level", string(snapshot.Status.Level())).
			Msg("health check complete")
	}

	p.notifyLocked()
}

func (p *Poller) notifyLocked() {
	for _, ch := range p.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- p.status
	}
}

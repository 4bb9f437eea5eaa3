package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/imathwy/tbps/internal/client"
	"github.com/imathwy/tbps/internal/models"
	"github.com/imathwy/tbps/internal/server"
	"github.com/rs/zerolog"
)

// Searcher runs one similarity search against the selected backend.
type Searcher interface {
	FindSimilarTheorems(ctx context.Context, sel server.Selector, params models.SearchParameters) (*models.SearchResponse, error)
}

// EventSink receives a record of every search that reached the backend.
type EventSink interface {
	Publish(ctx context.Context, event models.SearchEvent) error
}

type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateInFlight   State = "in_flight"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var (
	ErrSearchInFlight  = errors.New("a search is already in flight")
	ErrClosed          = errors.New("orchestrator is closed")
	ErrSelectorChanged = errors.New("server selection changed while the search was in flight")
)

// Snapshot is a copy of the orchestrator state safe to hand to a renderer.
type Snapshot struct {
	State       State
	Server      server.Selector
	Response    *models.SearchResponse
	Message     string
	FieldErrors []FieldError
}

type Orchestrator struct {
	searcher  Searcher
	selection *server.Selection
	events    EventSink
	logger    *zerolog.Logger

	mu       sync.Mutex
	state    State
	server   server.Selector
	response *models.SearchResponse
	message  string
	fields   []FieldError
	closed   bool
}

func NewOrchestrator(searcher Searcher, selection *server.Selection, logger *zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		searcher:  searcher,
		selection: selection,
		logger:    logger,
		state:     StateIdle,
	}
}

// WithEvents attaches an optional sink for settled searches.
func (o *Orchestrator) WithEvents(sink EventSink) *Orchestrator {
	o.events = sink
	return o
}

// Submit validates input and, if valid, runs exactly one search. It blocks
// until the search settles. A submission while another one is in flight is
// rejected with ErrSearchInFlight and leaves the state untouched.
func (o *Orchestrator) Submit(ctx context.Context, input Input) (Snapshot, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if o.state == StateInFlight || o.state == StateValidating {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrSearchInFlight
	}
	o.state = StateValidating
	o.response = nil
	o.message = ""
	o.fields = nil
	o.mu.Unlock()

	validation := Validate(input)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if !validation.OK() {
		o.state = StateFailed
		o.fields = validation.Errors
		o.message = validation.Err().Error()
		snap := o.snapshotLocked()
		o.mu.Unlock()

		o.logger.Info().Str("reason", snap.Message).Msg("search rejected by validation")
		return snap, nil
	}

	sel := o.selection.Get()
	o.state = StateInFlight
	o.server = sel
	o.mu.Unlock()

	params := validation.Params
	o.logger.Info().
		Str("server", string(sel)).
		Int("k", params.K).
		Int("expression_length", len(params.Expression)).
		Msg("search started")

	start := time.Now()
	response, err := o.searcher.FindSimilarTheorems(ctx, sel, params)
	duration := time.Since(start)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.logger.Debug().Str("server", string(sel)).Msg("search settled after close, ignored")
		return Snapshot{}, ErrClosed
	}
	if current := o.selection.Get(); current != sel {
		o.state = StateIdle
		o.server = ""
		snap := o.snapshotLocked()
		o.mu.Unlock()

		o.logger.Warn().
			Str("issued_for", string(sel)).
			Str("current", string(current)).
			Msg("discarding search result from previous server")
		return snap, ErrSelectorChanged
	}

	event := models.SearchEvent{
		ID:         uuid.NewString(),
		Server:     string(sel),
		Expression: params.Expression,
		K:          params.K,
		NodeRatio:  params.NodeRatio,
		DurationMs: duration.Milliseconds(),
		CreatedAt:  start.UTC(),
	}

	if err != nil {
		o.state = StateFailed
		o.message = client.Message(err)
		event.Outcome = models.SearchOutcomeFailed
		event.Message = o.message
	} else {
		o.state = StateSucceeded
		o.response = response
		event.Outcome = models.SearchOutcomeSucceeded
		event.ResultCount = len(response.Results)
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	if err != nil {
		o.logger.Error().Err(err).Str("server", string(sel)).Dur("duration", duration).Msg("search failed")
	} else {
		o.logger.Info().
			Str("server", string(sel)).
			Int("results", len(response.Results)).
			Int("total_processed", response.TotalProcessed).
			Dur("duration", duration).
			Msg("search complete")
	}

	o.publish(ctx, event)
	return snap, nil
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Reset drops any stored response or error. It is refused while a search is in flight.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateInFlight || o.state == StateValidating {
		return ErrSearchInFlight
	}
	o.state = StateIdle
	o.server = ""
	o.response = nil
	o.message = ""
	o.fields = nil
	return nil
}

// Close tears the orchestrator down. A search still in flight settles into nothing.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:    o.state,
		Server:   o.server,
		Response: o.response,
		Message:  o.message,
	}
	if len(o.fields) > 0 {
		snap.FieldErrors = append([]FieldError(nil), o.fields...)
	}
	return snap
}

func (o *Orchestrator) publish(ctx context.Context, event models.SearchEvent) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, event); err != nil {
		o.logger.Warn().Err(err).Str("event_id", event.ID).Msg("failed to publish search event")
	}
}

package health

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/imathwy/tbps/internal/client"
	"github.com/imathwy/tbps/internal/models"
	"github.com/imathwy/tbps/internal/server"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// MockChecker counts calls and can hold each call until released.
type MockChecker struct {
	calls   atomic.Int32
	block   chan struct{}
	mu      sync.Mutex
	results map[server.Selector]*models.HealthSnapshot
	err     error
}

func newMockChecker() *MockChecker {
	return &MockChecker{
		results: map[server.Selector]*models.HealthSnapshot{
			server.Mock:       {Status: "healthy", Version: "1.0.0-mock", DatabaseConnected: true, LeanAvailable: true},
			server.Production: {Status: "degraded", Version: "2.0.0", DatabaseConnected: true, LeanAvailable: false},
		},
	}
}

func (m *MockChecker) CheckHealth(ctx context.Context, sel server.Selector) (*models.HealthSnapshot, error) {
	m.calls.Add(1)

	m.mu.Lock()
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, &client.ConnectionError{Method: "GET", URL: string(sel), Err: ctx.Err()}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.results[sel], nil
}

func (m *MockChecker) setBlock(ch chan struct{}) {
	m.mu.Lock()
	m.block = ch
	m.mu.Unlock()
}

func (m *MockChecker) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poll to settle")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPoller_StartPollsImmediately(t *testing.T) {
	checker := newMockChecker()
	poller := NewPoller(checker, server.NewSelection(server.Mock), Options{Interval: time.Hour}, newTestLogger())
	defer poller.Stop()

	poller.Start(context.Background())
	waitFor(t, func() bool { return poller.Status().Phase == PhaseSettled })

	status := poller.Status()
	if !status.Healthy() {
		t.Fatalf("Expected healthy status, got err=%v", status.Err)
	}
	if status.Health.Version != "1.0.0-mock" {
		t.Errorf("Expected mock snapshot, got version %s", status.Health.Version)
	}
	if status.Health.Status.Level() != models.HealthLevelHealthy {
		t.Errorf("Expected healthy level, got %s", status.Health.Status.Level())
	}
	if checker.calls.Load() != 1 {
		t.Errorf("Expected 1 call, got %d", checker.calls.Load())
	}
}

func TestPoller_RapidRefreshesProduceOneCall(t *testing.T) {
	checker := newMockChecker()
	release := make(chan struct{})
	checker.setBlock(release)

	clock := &fakeClock{now: time.Unix(1000, 0)}
	poller := NewPoller(checker, server.NewSelection(server.Mock), Options{
		Interval:     time.Hour,
		DedupeWindow: 5 * time.Second,
		Now:          clock.Now,
	}, newTestLogger())
	defer poller.Stop()

	first := poller.Refresh()
	second := poller.Refresh()
	if first != second {
		t.Error("Expected second refresh to join the in-flight poll")
	}

	close(release)
	waitDone(t, first)

	clock.Advance(2 * time.Second)
	third := poller.Refresh()
	waitDone(t, third)

	if got := checker.calls.Load(); got != 1 {
		t.Fatalf("Expected exactly 1 call inside the dedupe window, got %d", got)
	}

	clock.Advance(4 * time.Second)
	waitDone(t, poller.Refresh())

	if got := checker.calls.Load(); got != 2 {
		t.Errorf("Expected a new call after the dedupe window, got %d calls", got)
	}
}

func TestPoller_TickSkippedWhilePollInFlight(t *testing.T) {
	checker := newMockChecker()
	release := make(chan struct{})
	checker.setBlock(release)

	poller := NewPoller(checker, server.NewSelection(server.Mock), Options{Interval: 10 * time.Millisecond}, newTestLogger())
	defer poller.Stop()

	poller.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	if got := checker.calls.Load(); got != 1 {
		t.Errorf("Expected ticks to be skipped while a poll is in flight, got %d calls", got)
	}

	close(release)
	waitFor(t, func() bool { return checker.calls.Load() >= 3 })
}

func TestPoller_FailureReplacesSnapshotAndNextTickStillPolls(t *testing.T) {
	checker := newMockChecker()
	poller := NewPoller(checker, server.NewSelection(server.Mock), Options{Interval: time.Hour, DedupeWindow: 0}, newTestLogger())
	defer poller.Stop()

	waitDone(t, poller.Refresh())
	if !poller.Status().Healthy() {
		t.Fatal("Expected first poll to succeed")
	}

	checker.setErr(&client.ConnectionError{Method: "GET", URL: "http://localhost:8001/health", Err: errors.New("connection refused")})
	waitDone(t, poller.Refresh())

	status := poller.Status()
	if status.Phase != PhaseSettled {
		t.Errorf("Expected settled phase, got %s", status.Phase)
	}
	if status.Health != nil {
		t.Error("Expected previous snapshot to be discarded on failure")
	}
	var connErr *client.ConnectionError
	if !errors.As(status.Err, &connErr) {
		t.Errorf("Expected ConnectionError, got %v", status.Err)
	}
	if status.Message == "" {
		t.Error("Expected a display message for the failure")
	}

	before := checker.calls.Load()
	poller.tick()
	waitFor(t, func() bool { return checker.calls.Load() == before+1 })
}

func TestPoller_SelectorSwitchDiscardsOldPoll(t *testing.T) {
	checker := newMockChecker()
	release := make(chan struct{})
	checker.setBlock(release)

	selection := server.NewSelection(server.Mock)
	poller := NewPoller(checker, selection, Options{Interval: time.Hour}, newTestLogger())
	defer poller.Stop()

	old := poller.Refresh()

	selection.Set(server.Production)
	checker.setBlock(nil)
	fresh := poller.Refresh()
	if fresh == old {
		t.Fatal("Expected a new poll after switching servers")
	}

	waitDone(t, fresh)
	waitDone(t, old)
	close(release)

	status := poller.Status()
	if status.Server != server.Production {
		t.Errorf("Expected status for production, got %s", status.Server)
	}
	if !status.Healthy() || status.Health.Version != "2.0.0" {
		t.Errorf("Expected production snapshot to win, got %+v", status)
	}
	if status.Health.Status.Level() != models.HealthLevelDegraded {
		t.Errorf("Expected degraded level, got %s", status.Health.Status.Level())
	}
	if status.Seq != 2 {
		t.Errorf("Expected status from poll 2, got seq %d", status.Seq)
	}
}

func TestPoller_StopIgnoresLateCompletion(t *testing.T) {
	checker := newMockChecker()
	release := make(chan struct{})
	checker.setBlock(release)

	poller := NewPoller(checker, server.NewSelection(server.Mock), Options{Interval: time.Hour}, newTestLogger())
	updates := poller.Subscribe()

	done := poller.Refresh()
	poller.Stop()
	waitDone(t, done)
	close(release)

	if status := poller.Status(); status.Phase == PhaseSettled {
		t.Errorf("Expected no status to be applied after stop, got %+v", status)
	}

	if _, ok := <-updates; ok {
		t.Error("Expected subscriber channel to be closed on stop")
	}

	calls := checker.calls.Load()
	waitDone(t, poller.Refresh())
	if checker.calls.Load() != calls {
		t.Error("Expected refresh after stop to make no call")
	}

	poller.Stop()
}

func TestPoller_StopsWhenContextDone(t *testing.T) {
	checker := newMockChecker()
	poller := NewPoller(checker, server.NewSelection(server.Mock), Options{Interval: 10 * time.Millisecond}, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	poller.Start(ctx)
	waitFor(t, func() bool { return checker.calls.Load() >= 1 })

	cancel()
	waitDone(t, poller.Refresh())
	time.Sleep(50 * time.Millisecond)
	calls := checker.calls.Load()
	time.Sleep(50 * time.Millisecond)

	if checker.calls.Load() != calls {
		t.Error("Expected polling to stop after context cancellation")
	}
}

func TestPoller_SubscribeReceivesLatestStatus(t *testing.T) {
	checker := newMockChecker()
	poller := NewPoller(checker, server.NewSelection(server.Mock), Options{Interval: time.Hour, DedupeWindow: 0}, newTestLogger())
	defer poller.Stop()

	updates := poller.Subscribe()
	waitDone(t, poller.Refresh())

	select {
	case status := <-updates:
		if !status.Healthy() {
			t.Errorf("Expected healthy update, got %+v", status)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a status update")
	}
}

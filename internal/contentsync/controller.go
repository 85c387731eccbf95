// Package contentsync owns the published content snapshot and keeps it in step
// with the remote spreadsheet.
package contentsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/p-n-ai/studyhub/internal/content"
	"github.com/p-n-ai/studyhub/internal/sheets"
)

// DefaultInterval is the auto-refresh period used when none is configured.
const DefaultInterval = 60 * time.Second

var (
	// ErrEmptyDataset means a sync produced no subjects.
	ErrEmptyDataset = errors.New("no subjects found in spreadsheet")
	// ErrSyncInProgress is returned when a load is requested while another is
	// still running. The request is dropped.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("controller already started")
)

// Source supplies raw tables. Both *sheets.Client and *sheets.WorkbookSource
// satisfy it.
type Source interface {
	IsConfigured() bool
	FetchAll(ctx context.Context) sheets.Result
}

// Status is the sync state machine's current state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusOffline Status = "offline"
)

// StatusInfo is what consumers see of the controller: a state, the last error
// message and the last successful sync time.
type StatusInfo struct {
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`
	LastSync   *time.Time `json:"lastSync,omitempty"`
	Refreshing bool       `json:"refreshing"`
	DemoMode   bool       `json:"demoMode"`
	SyncID     string     `json:"syncId,omitempty"`
	Failures   []string   `json:"failures,omitempty"`
}

func (s StatusInfo) clone() StatusInfo {
	if s.Failures != nil {
		s.Failures = append([]string(nil), s.Failures...)
	}
	return s
}

// Controller publishes content snapshots and runs the refresh schedule.
type Controller struct {
	logger       *slog.Logger
	now          func() time.Time
	fetchTimeout time.Duration

	stopMu sync.Mutex

	mu          sync.Mutex
	src         Source
	autoRefresh bool
	interval    time.Duration
	status      StatusInfo
	sched       *cron.Cron
	runCtx      context.Context
	cancel      context.CancelFunc
	subs        map[int]chan StatusInfo
	nextSub     int

	// gen counts source swaps. A load publishes only if gen is unchanged
	// since it started.
	gen        uint64
	loadCancel context.CancelFunc
	loadDone   chan struct{}

	snapshot atomic.Pointer[content.Snapshot]
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithAutoRefresh enables or disables the recurring refresh.
func WithAutoRefresh(enabled bool) Option {
	return func(c *Controller) {
		c.autoRefresh = enabled
	}
}

// WithInterval sets the auto-refresh period. Periods under a second are
// raised to one second.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.interval = max(d, time.Second)
	}
}

// WithFetchTimeout bounds each load. Zero means no bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.fetchTimeout = d
	}
}

// WithClock sets the clock used for sync timestamps (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates a controller. An unconfigured source puts the controller in
// offline mode with the bundled catalog published; no fetch is ever made.
func New(src Source, opts ...Option) *Controller {
	c := &Controller{
		logger:      slog.Default(),
		now:         time.Now,
		autoRefresh: true,
		interval:    DefaultInterval,
		subs:        make(map[int]chan StatusInfo),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.src = src
	if isConfigured(src) {
		c.status = StatusInfo{Status: StatusIdle}
	} else {
		c.goOffline()
	}
	return c
}

func isConfigured(src Source) bool {
	return src != nil && src.IsConfigured()
}

// goOffline publishes the bundled catalog. Callers hold c.mu or own c
// exclusively.
func (c *Controller) goOffline() {
	c.snapshot.Store(content.Default())
	c.status = StatusInfo{Status: StatusOffline, DemoMode: true}
	c.logger.Info("content source not configured, serving bundled catalog")
}

// Snapshot returns the published snapshot. It is nil only before the first
// load of a configured controller.
func (c *Controller) Snapshot() *content.Snapshot {
	return c.snapshot.Load()
}

// Status returns the current sync status.
func (c *Controller) Status() StatusInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.clone()
}

// Schedule reports the auto-refresh setting and period.
func (c *Controller) Schedule() (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoRefresh, c.interval
}

// Subscribe returns a channel receiving the current status and every later
// transition. Slow subscribers miss updates rather than block the controller.
// The returned func unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan StatusInfo, func()) {
	ch := make(chan StatusInfo, 8)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.status.clone()
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
}

// broadcast sends the status to every subscriber. Callers hold c.mu.
func (c *Controller) broadcast() {
	for _, ch := range c.subs {
		select {
		case ch <- c.status.clone():
		default:
		}
	}
}

// Load fetches, normalizes and publishes content. In offline mode it does
// nothing. manual marks the load as user-initiated for status reporting. A load
// whose source is swapped by Reconfigure while it runs is cancelled and its
// result dropped.
func (c *Controller) Load(ctx context.Context, manual bool) error {
	c.mu.Lock()
	if c.status.Status == StatusOffline {
		c.mu.Unlock()
		return nil
	}
	if c.loadDone != nil {
		c.mu.Unlock()
		c.logger.Debug("sync skipped, another sync is running", "manual", manual)
		return ErrSyncInProgress
	}
	src, gen := c.src, c.gen
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.loadCancel, c.loadDone = cancel, done

	syncID := uuid.NewString()
	start := time.Now()
	c.status.Status = StatusSyncing
	c.status.Error = ""
	c.status.Refreshing = manual
	c.status.SyncID = syncID
	c.status.Failures = nil
	c.broadcast()
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		if c.loadDone == done {
			c.loadCancel, c.loadDone = nil, nil
		}
		c.mu.Unlock()
		close(done)
	}()

	if c.fetchTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancelTimeout()
	}

	result := src.FetchAll(ctx)
	failures := make([]string, len(result.Failures))
	for i, err := range result.Failures {
		failures[i] = err.Error()
	}

	snap, err := buildSnapshot(result)
	if err != nil {
		published := c.publish(gen, func(s *StatusInfo) {
			if c.snapshot.CompareAndSwap(nil, content.Default()) {
				c.logger.Warn("first sync failed, serving bundled catalog", "sync_id", syncID)
			}
			s.Status = StatusError
			s.Error = err.Error()
			s.Refreshing = false
			s.Failures = failures
		})
		if !published {
			c.logger.Debug("sync result dropped, source changed", "sync_id", syncID)
			return nil
		}
		c.logger.Error("sync failed",
			"sync_id", syncID,
			"manual", manual,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("syncing content: %w", err)
	}

	synced := c.now()
	published := c.publish(gen, func(s *StatusInfo) {
		c.snapshot.Store(snap)
		s.Status = StatusSuccess
		s.LastSync = &synced
		s.Refreshing = false
		s.Failures = failures
	})
	if !published {
		c.logger.Debug("sync result dropped, source changed", "sync_id", syncID)
		return nil
	}
	c.logger.Info("sync complete",
		"sync_id", syncID,
		"manual", manual,
		"subjects", len(snap.Subjects),
		"failures", len(failures),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// publish applies update and broadcasts it unless the source changed since
// generation gen.
func (c *Controller) publish(gen uint64, update func(*StatusInfo)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	update(&c.status)
	c.broadcast()
	return true
}

// Refresh runs a user-initiated load.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.Load(ctx, true)
}

// buildSnapshot normalizes a fetch result into a complete snapshot. The
// snapshot is assembled privately and only returned once valid.
func buildSnapshot(result sheets.Result) (*content.Snapshot, error) {
	snap := content.TransformAll(result.Tables)
	if len(snap.Subjects) == 0 {
		for _, f := range result.Failures {
			var fetchErr *sheets.RemoteFetchError
			if errors.As(f, &fetchErr) && fetchErr.Table == sheets.TableSubjects {
				return nil, fmt.Errorf("%w: %w", ErrEmptyDataset, f)
			}
		}
		return nil, ErrEmptyDataset
	}
	if len(snap.Achievements) == 0 {
		snap.Achievements = content.DefaultAchievements()
	}
	return snap, nil
}

// Start runs the initial load and, when enabled, the auto-refresh schedule.
// The schedule stops when ctx ends or Stop is called. A failed initial load is
// reported through Status, not returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.runCtx, c.cancel = runCtx, cancel
	c.mu.Unlock()

	if err := c.Load(runCtx, false); err != nil && !errors.Is(err, ErrSyncInProgress) {
		c.logger.Warn("initial sync failed", "error", err)
	}
	c.startSchedule()

	go func() {
		<-runCtx.Done()
		c.mu.Lock()
		current := c.runCtx == runCtx
		c.mu.Unlock()
		if current {
			c.stopSchedule()
		}
	}()
	return nil
}

// Stop cancels the schedule and waits for a running refresh to return. The
// controller may be started again afterwards.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.runCtx, c.cancel = nil, nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.stopSchedule()
}

func (c *Controller) startSchedule() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sched != nil || c.runCtx == nil || c.runCtx.Err() != nil {
		return
	}
	if c.status.Status == StatusOffline || !c.autoRefresh {
		return
	}

	ctx := c.runCtx
	sched := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	sched.Schedule(cron.Every(c.interval), cron.FuncJob(func() {
		if err := c.Load(ctx, false); err != nil && !errors.Is(err, ErrSyncInProgress) {
			c.logger.Debug("scheduled sync failed", "error", err)
		}
	}))
	sched.Start()
	c.sched = sched
	c.logger.Info("auto-refresh started", "interval", c.interval.String())
}

func (c *Controller) stopSchedule() {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()

	c.mu.Lock()
	sched := c.sched
	c.sched = nil
	c.mu.Unlock()

	if sched != nil {
		<-sched.Stop().Done()
		c.logger.Info("auto-refresh stopped")
	}
}

// Reconfigure swaps the content source and applies schedule options. A load
// still running against the old source is cancelled and awaited first. A
// configured source leaves offline mode and, once started, loads immediately;
// an unconfigured one enters offline mode.
func (c *Controller) Reconfigure(src Source, opts ...Option) error {
	c.stopSchedule()

	c.mu.Lock()
	for _, opt := range opts {
		opt(c)
	}
	c.src = src
	c.gen++
	cancel, done := c.loadCancel, c.loadDone
	configured := isConfigured(src)
	if configured {
		c.status = StatusInfo{Status: StatusIdle, LastSync: c.status.LastSync}
	} else {
		c.goOffline()
	}
	c.broadcast()
	ctx := c.runCtx
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if !configured || ctx == nil || ctx.Err() != nil {
		return nil
	}
	err := c.Load(ctx, true)
	if errors.Is(err, ErrSyncInProgress) {
		// Any load running now started after the swap.
		err = nil
	}
	c.startSchedule()
	return err
}

package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/ports"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
	"github.com/samirrijal/qgrid/internal/pkg/metrics"
	"github.com/samirrijal/qgrid/internal/pkg/telemetry"
)

var tracer = otel.Tracer(telemetry.InstrumentationName)

// SessionOptions configures a SessionService.
type SessionOptions struct {
	// ClearDefault is the region installed by Clear. Nil clears to no region.
	ClearDefault *domain.BoundingRegion
	// RunTimeout bounds a single executor call.
	RunTimeout time.Duration
}

// storeTimeout bounds one snapshot write.
const storeTimeout = 5 * time.Second

// SessionService owns every demo session: its selection state, current
// region, optimization status and result.
//
// Events for one session are serialized by that session's mutex. Runs execute
// in the background and are tagged with the region ID and a generation
// counter; any region change or new run bumps the generation, and a result
// whose tag no longer matches is dropped.
//
// Every state change also bumps the session's version, which is stamped into
// the snapshot it produces. Snapshots leave the lock before they are saved or
// published, so both paths order them by version: a snapshot older than one
// already sent is never published, and store writes go through one writer
// per session that always saves the newest pending snapshot last.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*session

	estimator geospatial.Estimator
	executor  ports.RunExecutor
	store     ports.SessionStore
	publisher ports.EventPublisher
	opts      SessionOptions

	runs   sync.WaitGroup
	writes sync.WaitGroup
}

type session struct {
	mu         sync.Mutex
	id         string
	selection  *SelectionController
	region     *domain.RegionDescriptor
	status     domain.OptimizationStatus
	result     *domain.ResultDescriptor
	generation uint64
	version    uint64
	runID      string
	runStarted time.Time
	createdAt  time.Time
	updatedAt  time.Time
	lastSeen   time.Time

	// Outbound ordering. emitMu guards published; saveMu guards the rest.
	emitMu    sync.Mutex
	published uint64
	saveMu    sync.Mutex
	pending   *domain.SessionSnapshot
	saved     uint64
	flushing  chan struct{} // closed when the writer exits; nil when idle
	deleted   bool
}

type runTag struct {
	runID      string
	regionID   string
	generation uint64
}

// NewSessionService creates a SessionService. store and publisher may be nil.
func NewSessionService(
	estimator geospatial.Estimator,
	executor ports.RunExecutor,
	store ports.SessionStore,
	publisher ports.EventPublisher,
	opts SessionOptions,
) *SessionService {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 2 * time.Minute
	}
	return &SessionService{
		sessions:  make(map[string]*session),
		estimator: estimator,
		executor:  executor,
		store:     store,
		publisher: publisher,
		opts:      opts,
	}
}

func (svc *SessionService) newSession(id string, now time.Time) *session {
	return &session{
		id:        id,
		selection: NewSelectionController(svc.estimator),
		status:    domain.StatusPending,
		version:   1,
		createdAt: now,
		updatedAt: now,
		lastSeen:  now,
	}
}

// Create starts a new session in Idle/Pending with no region.
func (svc *SessionService) Create(ctx context.Context) (*domain.SessionSnapshot, error) {
	s := svc.newSession(uuid.NewString(), time.Now().UTC())

	svc.mu.Lock()
	svc.sessions[s.id] = s
	metrics.ActiveSessions.Set(float64(len(svc.sessions)))
	svc.mu.Unlock()

	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	svc.persist(ctx, s, snap)
	return snap, nil
}

// Get returns the current snapshot of a session.
func (svc *SessionService) Get(ctx context.Context, id string) (*domain.SessionSnapshot, error) {
	s, err := svc.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// Delete removes a session. In-flight results for it are dropped. An ID that
// is neither in memory nor in the store is ErrSessionNotFound.
func (svc *SessionService) Delete(ctx context.Context, id string) error {
	svc.mu.Lock()
	s, ok := svc.sessions[id]
	delete(svc.sessions, id)
	metrics.ActiveSessions.Set(float64(len(svc.sessions)))
	svc.mu.Unlock()

	if ok {
		s.mu.Lock()
		s.generation++
		s.mu.Unlock()
		svc.stopWrites(ctx, s)
	}

	if svc.store == nil {
		if !ok {
			return domain.ErrSessionNotFound
		}
		return nil
	}
	if !ok {
		if _, err := svc.store.Load(ctx, id); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return err
			}
			return fmt.Errorf("load session %s: %w", id, err)
		}
	}
	if err := svc.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// SetSelectionMode arms or disarms the next drag gesture.
func (svc *SessionService) SetSelectionMode(ctx context.Context, id string, enabled bool) (*domain.SessionSnapshot, error) {
	s, err := svc.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.selection.SetMode(enabled)
	s.touch()
	snap := s.snapshot()
	s.mu.Unlock()

	svc.persist(ctx, s, snap)
	return snap, nil
}

// BeginGesture records a pointer-down. Without selection mode it changes nothing.
func (svc *SessionService) BeginGesture(ctx context.Context, id string, p domain.GeoPoint) (*domain.SessionSnapshot, error) {
	s, err := svc.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	started := s.selection.Begin(p)
	if started {
		s.touch()
	}
	snap := s.snapshot()
	s.mu.Unlock()

	if started {
		svc.persist(ctx, s, snap)
	}
	return snap, nil
}

// EndGesture records a pointer-up. When a gesture was in progress the new
// region replaces the old one, the status returns to Pending and any result
// or in-flight run is superseded.
func (svc *SessionService) EndGesture(ctx context.Context, id string, p domain.GeoPoint) (*domain.SessionSnapshot, error) {
	s, err := svc.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	desc, ok := s.selection.End(p)
	if !ok {
		snap := s.snapshot()
		s.mu.Unlock()
		return snap, nil
	}
	desc.ID = uuid.NewString()
	desc.SelectedAt = time.Now().UTC()
	s.replaceRegion(&desc)
	snap := s.snapshot()
	s.mu.Unlock()

	metrics.SelectionsCompleted.Inc()
	if desc.OutsideRegionalScale {
		slog.WarnContext(ctx, "selection exceeds regional scale; flat-earth area is approximate",
			"session_id", id, "region_id", desc.ID,
			"area_km2", desc.AreaKm2, "spherical_area_km2", desc.SphericalAreaKm2)
	}

	svc.persist(ctx, s, snap)
	svc.publish(ctx, s, snap, true)
	return snap, nil
}

// Clear resets the selection to Idle and installs the configured default
// region, or none. Any result or in-flight run is superseded. Clearing a
// session that is already idle at the default, with nothing to supersede,
// changes nothing and emits nothing.
func (svc *SessionService) Clear(ctx context.Context, id string) (*domain.SessionSnapshot, error) {
	s, err := svc.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if !s.selection.State().Drawing && s.status == domain.StatusPending && s.atDefault(svc.opts.ClearDefault) {
		snap := s.snapshot()
		s.mu.Unlock()
		return snap, nil
	}
	previous := regionID(s.region)
	s.selection.Clear()
	s.replaceRegion(svc.defaultRegion(s.region))
	snap := s.snapshot()
	s.mu.Unlock()

	svc.persist(ctx, s, snap)
	svc.publish(ctx, s, snap, regionID(snap.Region) != previous)
	return snap, nil
}

// Run starts an optimization for the session's current region. It returns
// domain.ErrNoRegion when there is no region and domain.ErrRunInFlight while
// a run is already in progress; neither changes any state.
func (svc *SessionService) Run(ctx context.Context, id string) (*domain.SessionSnapshot, error) {
	s, err := svc.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.region == nil {
		s.mu.Unlock()
		metrics.OptimizationRuns.WithLabelValues("rejected_no_region").Inc()
		return nil, domain.ErrNoRegion
	}
	if s.status == domain.StatusRunning {
		s.mu.Unlock()
		metrics.OptimizationRuns.WithLabelValues("rejected_in_flight").Inc()
		return nil, domain.ErrRunInFlight
	}

	s.generation++
	s.status = domain.StatusRunning
	s.result = nil
	s.runID = uuid.NewString()
	s.runStarted = time.Now().UTC()
	s.touch()
	tag := runTag{runID: s.runID, regionID: s.region.ID, generation: s.generation}
	region := *s.region
	started := s.runStarted
	snap := s.snapshot()
	s.mu.Unlock()

	metrics.OptimizationRuns.WithLabelValues("started").Inc()
	svc.persist(ctx, s, snap)
	svc.publish(ctx, s, snap, false)

	svc.runs.Add(1)
	go svc.execute(s, tag, region, started)

	return snap, nil
}

func (svc *SessionService) execute(s *session, tag runTag, region domain.RegionDescriptor, started time.Time) {
	defer svc.runs.Done()

	ctx, cancel := context.WithTimeout(context.Background(), svc.opts.RunTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, telemetry.SpanOptimizationRun)
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.AttrSessionID, s.id),
		attribute.String(telemetry.AttrRunID, tag.runID),
		attribute.String(telemetry.AttrRegionID, tag.regionID),
		attribute.Float64(telemetry.AttrAreaKm2, region.AreaKm2),
	)

	res, err := svc.executor.Optimize(ctx, tag.runID, region)
	metrics.OptimizationDuration.Observe(time.Since(started).Seconds())
	// The run deadline may have passed; outbound writes still go out.
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	if !s.current(tag) {
		s.mu.Unlock()
		metrics.OptimizationRuns.WithLabelValues("discarded").Inc()
		span.SetAttributes(attribute.Bool(telemetry.AttrDiscarded, true))
		slog.Debug("discarding superseded optimization result", "session_id", s.id, "run_id", tag.runID)
		return
	}

	if err != nil {
		s.status = domain.StatusPending
		s.runID = ""
		s.touch()
		snap := s.snapshot()
		s.mu.Unlock()

		metrics.OptimizationRuns.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("optimization run failed", "session_id", s.id, "run_id", tag.runID, "error", err)
		svc.persist(ctx, s, snap)
		svc.publish(ctx, s, snap, false)
		return
	}

	res.RegionID = region.ID
	if res.CompletedAt.IsZero() {
		res.CompletedAt = time.Now().UTC()
	}
	s.result = &res
	s.status = domain.StatusComplete
	s.touch()
	snap := s.snapshot()
	rec := &domain.RunRecord{
		RunID:       tag.runID,
		SessionID:   s.id,
		Region:      region,
		Result:      res,
		StartedAt:   started,
		CompletedAt: res.CompletedAt,
	}
	s.mu.Unlock()

	metrics.OptimizationRuns.WithLabelValues("completed").Inc()
	slog.Info("optimization run complete",
		"session_id", s.id, "run_id", tag.runID,
		"microgrids", res.MicrogridCount, "utilization_pct", res.UtilizationPct, "output_mw", res.OutputMw)

	svc.persist(ctx, s, snap)
	svc.publish(ctx, s, snap, false)
	if svc.publisher != nil {
		if err := svc.publisher.PublishRunCompleted(ctx, rec); err != nil {
			slog.Warn("publish run completed failed", "run_id", tag.runID, "error", err)
		}
	}
}

// Wait blocks until every in-flight run has finished and its snapshots are
// written to the store.
func (svc *SessionService) Wait() {
	svc.runs.Wait()
	svc.writes.Wait()
}

// Sweep drops sessions not seen since cutoff and returns how many were removed.
func (svc *SessionService) Sweep(cutoff time.Time) int {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	removed := 0
	for id, s := range svc.sessions {
		s.mu.Lock()
		stale := s.lastSeen.Before(cutoff) && s.status != domain.StatusRunning
		s.mu.Unlock()
		if stale {
			delete(svc.sessions, id)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(svc.sessions)))
	return removed
}

// Count returns the number of sessions held in memory.
func (svc *SessionService) Count() int {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return len(svc.sessions)
}

// lookup returns the in-memory session, rehydrating it from the store when
// this process has not seen it.
func (svc *SessionService) lookup(ctx context.Context, id string) (*session, error) {
	svc.mu.RLock()
	s, ok := svc.sessions[id]
	svc.mu.RUnlock()
	if ok {
		s.mu.Lock()
		s.lastSeen = time.Now().UTC()
		s.mu.Unlock()
		return s, nil
	}

	if svc.store == nil {
		return nil, domain.ErrSessionNotFound
	}
	snap, err := svc.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	restored := svc.restore(snap)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if existing, ok := svc.sessions[id]; ok {
		return existing, nil
	}
	svc.sessions[id] = restored
	metrics.ActiveSessions.Set(float64(len(svc.sessions)))
	return restored, nil
}

// restore rebuilds a session from a snapshot. A run that was in flight in
// another process cannot be resumed, so Running comes back as Pending.
func (svc *SessionService) restore(snap *domain.SessionSnapshot) *session {
	s := svc.newSession(snap.ID, snap.CreatedAt)
	s.selection.Restore(snap.SelectionMode, snap.Selection)
	s.region = snap.Region
	s.status = snap.Status
	s.result = snap.Result
	s.updatedAt = snap.UpdatedAt
	s.lastSeen = time.Now().UTC()
	s.version = snap.Version
	s.saved = snap.Version
	s.published = snap.Version
	if s.status == domain.StatusRunning || s.status == "" {
		s.status = domain.StatusPending
		s.result = nil
		s.version++
	}
	if s.status == domain.StatusComplete && s.result == nil {
		s.status = domain.StatusPending
		s.version++
	}
	return s
}

// defaultRegion returns the region Clear installs. The current descriptor is
// kept when it already spans the default bounds, so its ID is stable.
func (svc *SessionService) defaultRegion(current *domain.RegionDescriptor) *domain.RegionDescriptor {
	def := svc.opts.ClearDefault
	if def == nil {
		return nil
	}
	if current != nil && current.Region == *def {
		return current
	}
	desc := svc.estimator.DescribeRegion(*def)
	desc.ID = uuid.NewString()
	desc.SelectedAt = time.Now().UTC()
	return &desc
}

// persist queues snap for the session's store writer. Only the newest queued
// snapshot is kept, and one not newer than the last write is dropped.
func (svc *SessionService) persist(ctx context.Context, s *session, snap *domain.SessionSnapshot) {
	if svc.store == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if s.deleted || snap.Version <= s.saved || (s.pending != nil && s.pending.Version >= snap.Version) {
		return
	}
	s.pending = snap
	if s.flushing != nil {
		return
	}
	s.flushing = make(chan struct{})
	svc.writes.Add(1)
	go svc.flushWrites(context.WithoutCancel(ctx), s, s.flushing)
}

// flushWrites saves queued snapshots one at a time until none is left.
func (svc *SessionService) flushWrites(ctx context.Context, s *session, done chan struct{}) {
	defer svc.writes.Done()
	defer close(done)

	for {
		s.saveMu.Lock()
		snap := s.pending
		s.pending = nil
		if snap == nil || s.deleted {
			s.flushing = nil
			s.saveMu.Unlock()
			return
		}
		s.saveMu.Unlock()

		saveCtx, cancel := context.WithTimeout(ctx, storeTimeout)
		if err := svc.store.Save(saveCtx, snap); err != nil {
			slog.WarnContext(ctx, "session store save failed", "session_id", snap.ID, "version", snap.Version, "error", err)
		}
		cancel()

		s.saveMu.Lock()
		s.saved = snap.Version
		s.saveMu.Unlock()
	}
}

// stopWrites drops queued snapshots and waits for a write in progress, so a
// deleted session is not written back afterwards.
func (svc *SessionService) stopWrites(ctx context.Context, s *session) {
	s.saveMu.Lock()
	s.deleted = true
	s.pending = nil
	done := s.flushing
	s.saveMu.Unlock()

	if done == nil {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// publish sends the status event, preceded by the region event when
// withRegion is set. Snapshots older than one already published are dropped.
func (svc *SessionService) publish(ctx context.Context, s *session, snap *domain.SessionSnapshot, withRegion bool) {
	if svc.publisher == nil {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if snap.Version <= s.published {
		slog.DebugContext(ctx, "dropping stale session event", "session_id", snap.ID, "version", snap.Version)
		return
	}
	s.published = snap.Version

	if withRegion {
		if err := svc.publisher.PublishRegion(ctx, snap.ID, snap.Region); err != nil {
			slog.WarnContext(ctx, "publish region failed", "session_id", snap.ID, "error", err)
		}
	}
	if err := svc.publisher.PublishStatus(ctx, snap); err != nil {
		slog.WarnContext(ctx, "publish status failed", "session_id", snap.ID, "error", err)
	}
}

func regionID(r *domain.RegionDescriptor) string {
	if r == nil {
		return ""
	}
	return r.ID
}

// replaceRegion installs a new region (or none) and supersedes any result.
// Caller holds s.mu.
func (s *session) replaceRegion(region *domain.RegionDescriptor) {
	s.generation++
	s.region = region
	s.status = domain.StatusPending
	s.result = nil
	s.runID = ""
	s.touch()
}

// current reports whether a run tagged t still owns the session. Caller holds s.mu.
func (s *session) current(t runTag) bool {
	return s.status == domain.StatusRunning &&
		s.generation == t.generation &&
		s.region != nil && s.region.ID == t.regionID
}

// atDefault reports whether the session holds exactly the region Clear would
// install and no result. Caller holds s.mu.
func (s *session) atDefault(def *domain.BoundingRegion) bool {
	if s.result != nil {
		return false
	}
	if def == nil {
		return s.region == nil
	}
	return s.region != nil && s.region.Region == *def
}

// touch records a state change. Caller holds s.mu.
func (s *session) touch() {
	s.version++
	now := time.Now().UTC()
	s.updatedAt = now
	s.lastSeen = now
}

// snapshot copies the session's state. Caller holds s.mu.
func (s *session) snapshot() *domain.SessionSnapshot {
	snap := &domain.SessionSnapshot{
		ID:            s.id,
		SelectionMode: s.selection.Armed(),
		Selection:     s.selection.State(),
		Status:        s.status,
		StatusLabel:   s.status.Label(),
		Version:       s.version,
		CreatedAt:     s.createdAt,
		UpdatedAt:     s.updatedAt,
	}
	if s.region != nil {
		r := *s.region
		snap.Region = &r
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}

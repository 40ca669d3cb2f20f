// Package service runs the aggregation pipeline on demand: a full scan of
// the result store, a merge of the historical and current archives, or a
// single event. At most one run is active per process.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/app/progress"
	"github.com/okian/ringside/internal/domain/aggregate"
	"github.com/okian/ringside/internal/domain/archive"
	"github.com/okian/ringside/internal/domain/batch"
	"github.com/okian/ringside/internal/domain/dedupe"
	"github.com/okian/ringside/internal/domain/identity"
	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/internal/domain/scan"
	"github.com/okian/ringside/pkg/logger"
	"github.com/okian/ringside/pkg/metrics"
)

// Default archive period names.
const (
	DefaultHistoryPeriod = "history"
	DefaultCurrentPeriod = "current"
)

// ArchiveStore loads and saves period archives.
type ArchiveStore interface {
	Load(ctx context.Context, period string) (archive.Lookup, error)
	Save(ctx context.Context, a archive.Archive) error
}

// RunSummary is what a run reports to its caller. On failure the counts
// cover what was durably written before the error.
type RunSummary struct {
	RunID         string `json:"run_id"`
	Mode          string `json:"mode"`
	CreatedCount  int    `json:"created"`
	UpdatedCount  int    `json:"updated"`
	LedgeredCount int    `json:"ledgered"`
	Message       string `json:"message"`
}

// Stats is a point-in-time view of the stores and the run tracker.
type Stats struct {
	Profiles  int    `json:"profiles"`
	Processed int    `json:"processed_events"`
	ActiveRun string `json:"active_run,omitempty"`
}

// Service owns the pipeline's collaborators.
type Service struct {
	results  scan.ResultStore
	store    repository.Store
	archives ArchiveStore

	pageSize         int
	fetchConcurrency int
	maxBatchOps      int
	progressBuffer   int
	progressGrace    time.Duration
	historyPeriod    string
	currentPeriod    string

	log      logger.Logger
	now      func() time.Time
	rand     io.Reader
	newRunID func() string
	tracker  *tracker

	// Background runs inherit ctx; Stop cancels it and waits.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Service.
func New(results scan.ResultStore, store repository.Store, archives ArchiveStore, opts ...Option) *Service {
	s := &Service{
		results:          results,
		store:            store,
		archives:         archives,
		pageSize:         scan.DefaultPageSize,
		fetchConcurrency: scan.DefaultConcurrency,
		maxBatchOps:      batch.DefaultMaxOps,
		progressBuffer:   progress.DefaultBuffer,
		progressGrace:    progress.DefaultGrace,
		historyPeriod:    DefaultHistoryPeriod,
		currentPeriod:    DefaultCurrentPeriod,
		now:              time.Now,
		rand:             rand.Reader,
		newRunID:         uuid.NewString,
		tracker:          newTracker(0, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// run carries one run's identity and progress plumbing.
type run struct {
	id       string
	log      logger.Logger
	progress progress.Sink
}

// RunFullAggregation scans the whole result store, folds every event not yet
// ledgered and writes the outcome additively into canonical profiles.
func (s *Service) RunFullAggregation(ctx context.Context, sink progress.Sink) (RunSummary, error) {
	return s.execute(ctx, ModeFull, "", sink)
}

// RunMergeCurrentWithHistory merges the historical and current archives and
// replaces the fight statistics of every athlete they hold.
func (s *Service) RunMergeCurrentWithHistory(ctx context.Context, sink progress.Sink) (RunSummary, error) {
	return s.execute(ctx, ModeMerge, "", sink)
}

// RunSingleEventMerge folds one event into canonical profiles unless it is
// already ledgered.
func (s *Service) RunSingleEventMerge(ctx context.Context, eventID string, sink progress.Sink) (RunSummary, error) {
	return s.execute(ctx, ModeEvent, eventID, sink)
}

// Start launches a run in the background and returns its id. Progress is
// kept by the tracker; see Run.
func (s *Service) Start(mode, eventID string) (string, error) {
	if err := validate(mode, eventID); err != nil {
		return "", err
	}
	id := s.newRunID()
	if err := s.tracker.begin(id, mode, eventID, s.now()); err != nil {
		return "", err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.runTracked(s.ctx, id, mode, eventID, nil)
	}()
	return id, nil
}

// Run returns the tracked state of a run.
func (s *Service) Run(id string) (RunInfo, error) {
	r, ok := s.tracker.get(id)
	if !ok {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrUnknownRun, id)
	}
	return r, nil
}

// Runs lists the tracked runs, most recent first.
func (s *Service) Runs() []RunInfo { return s.tracker.list() }

// Stats reports store sizes and the active run.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Profiles: st.Profiles, Processed: st.Processed, ActiveRun: s.tracker.activeRun()}, nil
}

// Stop cancels background runs and waits for them. A run stops between
// chunks, never inside one.
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

func validate(mode, eventID string) error {
	switch mode {
	case ModeFull, ModeMerge:
		return nil
	case ModeEvent:
		if eventID == "" {
			return errors.New("event id is required")
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

func (s *Service) execute(ctx context.Context, mode, eventID string, sink progress.Sink) (RunSummary, error) {
	if err := validate(mode, eventID); err != nil {
		return RunSummary{Mode: mode, Message: err.Error()}, err
	}
	id := s.newRunID()
	if err := s.tracker.begin(id, mode, eventID, s.now()); err != nil {
		return RunSummary{Mode: mode, Message: err.Error()}, err
	}
	return s.runTracked(ctx, id, mode, eventID, sink)
}

func (s *Service) runTracked(ctx context.Context, id, mode, eventID string, sink progress.Sink) (RunSummary, error) {
	start := time.Now()
	metrics.UpdateRunActive(true)
	defer metrics.UpdateRunActive(false)

	d := progress.NewDispatcher(sink, s.progressBuffer)
	r := &run{
		id:  id,
		log: s.log.With(logger.String("run_id", id), logger.String("mode", mode)),
		progress: progress.Tee(
			func(msg string) { s.tracker.append(id, msg) },
			d.Send,
		),
	}
	r.log.Info(ctx, "run started", logger.String("event_id", eventID))

	var sum RunSummary
	var err error
	switch mode {
	case ModeFull:
		sum, err = s.full(ctx, r)
	case ModeMerge:
		sum, err = s.merge(ctx, r)
	case ModeEvent:
		sum, err = s.single(ctx, r, eventID)
	}
	sum.RunID = id
	sum.Mode = mode

	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
		sum.Message = fmt.Sprintf("run failed after %d created, %d updated, %d ledgered: %v",
			sum.CreatedCount, sum.UpdatedCount, sum.LedgeredCount, err)
		metrics.RecordErrorByComponent("service", mode)
		r.log.Error(ctx, "run failed", logger.Error(err))
	}
	r.progress(sum.Message)

	// The run is over before the caller's sink catches up.
	elapsed := time.Since(start)
	metrics.RecordRun(mode, status, elapsed.Seconds())
	s.tracker.finish(id, sum, err, s.now())
	r.log.Info(ctx, "run finished",
		logger.String("status", status),
		logger.Int("created", sum.CreatedCount),
		logger.Int("updated", sum.UpdatedCount),
		logger.Int("ledgered", sum.LedgeredCount),
		logger.Duration("took", elapsed),
	)

	if !d.Close(s.progressGrace) {
		r.log.Warn(ctx, "progress sink did not drain in time", logger.Duration("grace", s.progressGrace))
	}
	if n := d.Dropped(); n > 0 {
		r.log.Warn(ctx, "progress messages dropped", logger.Int64("dropped", n))
	}
	return sum, err
}

func (s *Service) ledgered(ctx context.Context) (dedupe.Deduper, error) {
	entries, err := s.store.ListProcessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list processed events: %w", model.ErrTransientIO, err)
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.EventID
	}
	return dedupe.NewInMemoryDeduper(dedupe.WithCapacity(len(ids)), dedupe.WithSeed(ids...)), nil
}

func (s *Service) full(ctx context.Context, r *run) (RunSummary, error) {
	known, err := s.ledgered(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	r.progress(fmt.Sprintf("%d events already processed", known.Size()))

	scanner := scan.New(s.results,
		scan.WithPageSize(s.pageSize),
		scan.WithConcurrency(s.fetchConcurrency),
		scan.WithSkip(known.Contains),
		scan.WithLogger(r.log.Named("scan")),
		scan.WithClock(s.now),
	)
	acc := aggregate.New(aggregate.WithLogger(r.log.Named("aggregate")), aggregate.WithClock(s.now))

	var drafts []model.ProcessedEvent
	var folded aggregate.FoldStats
	pages := 0
	scanned, err := scanner.Scan(ctx, "", func(ctx context.Context, p scan.Page) error {
		pages++
		for _, ev := range p.Events {
			st := acc.Fold(ctx, ev.Event, ev.Results)
			folded.Folded += st.Folded
			folded.Gaps += st.Gaps
			drafts = append(drafts, ev.Draft)
		}
		r.progress(fmt.Sprintf("scanned page %d: %d new events, %d athletes so far", pages, len(p.Events), acc.Len()))
		return nil
	})
	if err != nil {
		return RunSummary{}, fmt.Errorf("scan result store: %w", err)
	}
	r.log.Info(ctx, "scan finished",
		logger.Int("pages", scanned.Pages),
		logger.Int("scanned", scanned.Scanned),
		logger.Int("no_results", scanned.NoResults),
		logger.Int("failed", scanned.Failed),
		logger.Int("ledgered", scanned.Ledgered),
		logger.Int("results_folded", folded.Folded),
		logger.Int("validation_gaps", folded.Gaps),
	)
	return s.persistAndFold(ctx, r, acc.Records(), drafts)
}

func (s *Service) single(ctx context.Context, r *run, eventID string) (RunSummary, error) {
	known, err := s.ledgered(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	if known.Contains(ctx, eventID) {
		return RunSummary{Message: fmt.Sprintf("event %s already processed", eventID)}, nil
	}

	scanner := scan.New(s.results, scan.WithLogger(r.log.Named("scan")), scan.WithClock(s.now))
	ev, err := scanner.ScanEvent(ctx, eventID)
	if err != nil {
		return RunSummary{}, err
	}
	r.progress(fmt.Sprintf("fetched %s (%s) with %d results", ev.Event.ID, ev.Event.Name, len(ev.Results)))

	acc := aggregate.New(aggregate.WithLogger(r.log.Named("aggregate")), aggregate.WithClock(s.now))
	acc.Fold(ctx, ev.Event, ev.Results)
	return s.persistAndFold(ctx, r, acc.Records(), []model.ProcessedEvent{ev.Draft})
}

func (s *Service) merge(ctx context.Context, r *run) (RunSummary, error) {
	now := s.now()
	hist, err := s.archives.Load(ctx, s.historyPeriod)
	if err != nil {
		return RunSummary{}, fmt.Errorf("load historical archive: %w", err)
	}
	if hist.State == archive.Absent {
		return RunSummary{}, fmt.Errorf("%w: period %q", ErrHistoryMissing, s.historyPeriod)
	}
	curr, err := s.archives.Load(ctx, s.currentPeriod)
	if err != nil {
		return RunSummary{}, fmt.Errorf("load current archive: %w", err)
	}
	if curr.State == archive.Absent {
		r.log.Info(ctx, "current archive not stored yet, merging history alone",
			logger.String("period", s.currentPeriod))
	}

	composite, err := archive.Merge(hist.Archive, curr.OrEmpty(s.currentPeriod, now), now)
	if err != nil {
		return RunSummary{}, err
	}
	r.progress(fmt.Sprintf("merged %d historical and %d current records into %d athletes",
		len(hist.Archive.Records), len(curr.Archive.Records), len(composite.Records)))

	plan, err := s.plan(ctx, r, composite.Sorted(), composite.Processed, false)
	if err != nil {
		return RunSummary{}, err
	}
	return s.write(ctx, r, plan)
}

// persistAndFold writes a run's records additively, then folds them into
// the current archive so a later merge sees them. The current archive is
// checked first: once profiles and ledger are committed the events are
// never scanned again, so a fold that cannot happen must stop the write.
func (s *Service) persistAndFold(ctx context.Context, r *run, records []model.FighterRecord, drafts []model.ProcessedEvent) (RunSummary, error) {
	if len(drafts) == 0 {
		return RunSummary{Message: "no new events to process"}, nil
	}
	current, err := s.currentArchive(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	plan, err := s.plan(ctx, r, records, drafts, true)
	if err != nil {
		return RunSummary{}, err
	}
	sum, err := s.write(ctx, r, plan)
	if err != nil {
		return sum, err
	}
	if err := s.foldCurrent(ctx, r, current, records, drafts); err != nil {
		return sum, err
	}
	return sum, nil
}

// currentArchive loads the archive full and single-event runs fold into and
// rejects one that cannot take a fold.
func (s *Service) currentArchive(ctx context.Context) (archive.Archive, error) {
	l, err := s.archives.Load(ctx, s.currentPeriod)
	if err != nil {
		return archive.Archive{}, fmt.Errorf("load current archive: %w", err)
	}
	a := l.OrEmpty(s.currentPeriod, s.now())
	switch {
	case a.Meta == nil:
		return archive.Archive{}, fmt.Errorf("%w: current archive %q", archive.ErrMissingMeta, s.currentPeriod)
	case a.Meta.Frozen:
		return archive.Archive{}, fmt.Errorf("%w: current archive %q; configure a new current period", archive.ErrFrozen, s.currentPeriod)
	}
	return a, nil
}

type pending struct {
	id     string
	create bool
	rec    model.FighterRecord
}

// plan resolves every record. additive folds a record into the matched
// profile's stats; otherwise the record replaces them. Records resolving to
// one key are merged into a single operation.
func (s *Service) plan(ctx context.Context, r *run, records []model.FighterRecord, processed []model.ProcessedEvent, additive bool) (batch.Plan, error) {
	now := s.now()
	resolver := identity.NewResolver(s.store,
		identity.WithRand(s.rand),
		identity.WithLogger(r.log.Named("identity")),
	)

	byKey := make(map[string]*pending, len(records))
	order := make([]string, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return batch.Plan{}, err
		}
		res, err := resolver.Resolve(ctx, rec)
		if err != nil {
			return batch.Plan{}, fmt.Errorf("resolve athlete %s: %w", rec.ExternalID, err)
		}
		if p, ok := byKey[res.Key]; ok {
			p.rec = archive.MergeRecords(p.rec, rec, now)
			continue
		}
		p := &pending{id: res.Key, create: res.Status == identity.New, rec: rec}
		if res.Status == identity.Matched && additive {
			p.rec = archive.MergeRecords(res.Profile.Record(), rec, now)
		}
		byKey[res.Key] = p
		order = append(order, res.Key)
	}

	plan := batch.Plan{Processed: processed}
	for _, key := range order {
		p := byKey[key]
		if p.create {
			plan.Creates = append(plan.Creates, model.NewProfile(p.id, p.rec, now))
			continue
		}
		plan.Updates = append(plan.Updates, model.ProfileUpdate{ID: p.id, Record: p.rec})
	}
	r.progress(fmt.Sprintf("resolved %d athletes: %d new, %d existing", len(records), len(plan.Creates), len(plan.Updates)))
	return plan, nil
}

func (s *Service) write(ctx context.Context, r *run, plan batch.Plan) (RunSummary, error) {
	w := batch.NewWriter(s.store, s.store,
		batch.WithMaxOps(s.maxBatchOps),
		batch.WithLogger(r.log.Named("batch")),
	)
	res, err := w.Write(ctx, plan, func(p batch.Progress) { r.progress(p.String()) })
	sum := RunSummary{CreatedCount: res.Created, UpdatedCount: res.Updated, LedgeredCount: res.Ledgered}
	if err != nil {
		return sum, fmt.Errorf("write plan: %w", err)
	}
	sum.Message = fmt.Sprintf("created %d, updated %d, ledgered %d events in %d chunks",
		res.Created, res.Updated, res.Ledgered, res.Chunks)
	return sum, nil
}

func (s *Service) foldCurrent(ctx context.Context, r *run, current archive.Archive, records []model.FighterRecord, drafts []model.ProcessedEvent) error {
	now := s.now()
	a, err := archive.Fold(current, records, drafts, now)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveUpdate, err)
	}
	if err := s.archives.Save(ctx, a); err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveUpdate, err)
	}
	r.progress(fmt.Sprintf("current archive %q holds %d athletes and %d events", s.currentPeriod, len(a.Records), len(a.Processed)))
	return nil
}

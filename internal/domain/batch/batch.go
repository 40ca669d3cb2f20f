// Package batch persists profile writes and ledger entries in bounded chunks.
//
// Operations are ordered creates, then updates, then ledger entries, and split
// into chunks of at most MaxOps. Chunks commit strictly one after another and
// each is atomic, so a failure leaves earlier chunks durable and the failed
// chunk entirely unwritten. Ledger entries go last: an event is only ledgered
// once every profile write of the plan before it has committed.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/ringside/internal/domain/dedupe"
	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
	"github.com/okian/ringside/pkg/metrics"
)

// DefaultMaxOps is the operation limit of one atomic commit.
const DefaultMaxOps = 500

// Plan is everything a run wants to persist.
type Plan struct {
	Creates   []model.CanonicalProfile
	Updates   []model.ProfileUpdate
	Processed []model.ProcessedEvent
}

// Len is the number of operations in the plan.
func (p Plan) Len() int { return len(p.Creates) + len(p.Updates) + len(p.Processed) }

// Chunk is the unit of one atomic commit.
type Chunk struct {
	Index     int
	Creates   []model.CanonicalProfile
	Updates   []model.ProfileUpdate
	Processed []model.ProcessedEvent
}

// Len is the number of operations in the chunk.
func (c Chunk) Len() int { return len(c.Creates) + len(c.Updates) + len(c.Processed) }

// Committer commits one chunk atomically: all of it or nothing.
type Committer interface {
	CommitChunk(ctx context.Context, c Chunk) error
}

// LedgerReader lists events already folded into profiles.
type LedgerReader interface {
	ListProcessed(ctx context.Context) ([]model.ProcessedEvent, error)
}

// Progress is reported after each committed chunk. Counts are cumulative.
type Progress struct {
	Chunk        int
	Chunks       int
	CommittedOps int
	TotalOps     int
}

func (p Progress) String() string {
	return fmt.Sprintf("committed chunk %d/%d (%d/%d operations)", p.Chunk, p.Chunks, p.CommittedOps, p.TotalOps)
}

// Result counts what was durably written.
type Result struct {
	Chunks       int
	CommittedOps int
	Created      int
	Updated      int
	Ledgered     int
	// AlreadyLedgered counts ledger entries dropped because the ledger or the
	// plan already held the event id.
	AlreadyLedgered int
}

// Writer drives chunked commits.
type Writer struct {
	committer Committer
	ledger    LedgerReader
	maxOps    int
	log       logger.Logger
}

// NewWriter creates a Writer. ledger may be nil when the plan is known to be
// free of ledgered events.
func NewWriter(committer Committer, ledger LedgerReader, opts ...Option) *Writer {
	w := &Writer{committer: committer, ledger: ledger, maxOps: DefaultMaxOps}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.NewNop()
	}
	return w
}

// Write filters the plan's ledger entries, splits it and commits chunk by
// chunk. Cancellation is honoured between chunks only; a chunk that started
// runs to completion. On failure the returned Result holds the counts
// committed so far.
func (w *Writer) Write(ctx context.Context, plan Plan, onProgress func(Progress)) (Result, error) {
	var res Result
	filtered, dropped, err := w.filterLedgered(ctx, plan.Processed)
	if err != nil {
		return res, fmt.Errorf("%w: list processed events: %w", model.ErrTransientIO, err)
	}
	plan.Processed = filtered
	res.AlreadyLedgered = dropped

	chunks := Split(plan, w.maxOps)
	total := plan.Len()
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%w after %d/%d chunks: %w", ErrCancelled, i, len(chunks), err)
		}

		start := time.Now()
		err := w.committer.CommitChunk(context.WithoutCancel(ctx), c)
		metrics.RecordBatchChunk(c.Len(), time.Since(start).Seconds(), err)
		if err != nil {
			metrics.RecordErrorByComponent("batch", "commit")
			w.log.Error(ctx, "chunk commit failed",
				logger.Int("chunk", i+1),
				logger.Int("chunks", len(chunks)),
				logger.Int("committed_ops", res.CommittedOps),
				logger.Error(err),
			)
			return res, &CommitError{Chunk: i + 1, Chunks: len(chunks), Committed: res, Err: err}
		}

		res.Chunks++
		res.CommittedOps += c.Len()
		res.Created += len(c.Creates)
		res.Updated += len(c.Updates)
		res.Ledgered += len(c.Processed)
		if onProgress != nil {
			onProgress(Progress{Chunk: i + 1, Chunks: len(chunks), CommittedOps: res.CommittedOps, TotalOps: total})
		}
	}
	return res, nil
}

func (w *Writer) filterLedgered(ctx context.Context, entries []model.ProcessedEvent) ([]model.ProcessedEvent, int, error) {
	if len(entries) == 0 {
		return nil, 0, nil
	}
	var known []string
	if w.ledger != nil {
		ledgered, err := w.ledger.ListProcessed(ctx)
		if err != nil {
			return nil, 0, err
		}
		known = make([]string, len(ledgered))
		for i, p := range ledgered {
			known[i] = p.EventID
		}
	}
	seen := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(len(known)+len(entries)), dedupe.WithSeed(known...))
	out := make([]model.ProcessedEvent, 0, len(entries))
	for _, p := range entries {
		if seen.SeenAndRecord(ctx, p.EventID) {
			continue
		}
		out = append(out, p)
	}
	return out, len(entries) - len(out), nil
}

// Split orders the plan creates, updates, ledger entries and cuts it into
// chunks of at most maxOps operations.
func Split(plan Plan, maxOps int) []Chunk {
	if maxOps <= 0 {
		maxOps = DefaultMaxOps
	}
	total := plan.Len()
	if total == 0 {
		return nil
	}
	chunks := make([]Chunk, 0, (total+maxOps-1)/maxOps)
	cur := Chunk{}
	flush := func() {
		cur.Index = len(chunks)
		chunks = append(chunks, cur)
		cur = Chunk{}
	}
	for _, p := range plan.Creates {
		cur.Creates = append(cur.Creates, p)
		if cur.Len() == maxOps {
			flush()
		}
	}
	for _, u := range plan.Updates {
		cur.Updates = append(cur.Updates, u)
		if cur.Len() == maxOps {
			flush()
		}
	}
	for _, e := range plan.Processed {
		cur.Processed = append(cur.Processed, e)
		if cur.Len() == maxOps {
			flush()
		}
	}
	if cur.Len() > 0 {
		flush()
	}
	return chunks
}

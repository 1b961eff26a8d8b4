package migrate

import (
	"context"
	"log/slog"
	"math/bits"

	"golang.org/x/sync/errgroup"

	"covermig/internal/domain"
)

// WriteFunc commits one batch to the target and reports how many
// records it wrote. A non-nil error means the whole batch is
// uncommitted; partial commits are the target's problem to avoid.
type WriteFunc func(ctx context.Context, batch []domain.Artwork) (int, error)

// Writer pushes batches to the target, retrying failed batches by
// binary split so one poisoned record cannot sink its batch mates.
type Writer struct {
	write WriteFunc
	ref   int
	log   *slog.Logger
}

func NewWriter(write WriteFunc, refFormat int, log *slog.Logger) *Writer {
	return &Writer{write: write, ref: refFormat, log: log}
}

// Upsert commits a batch and returns how many records were written and
// how many were dropped as unwritable. Records sharing an ID inside the
// batch are merged before writing so the target never sees the same key
// twice in one batch.
func (w *Writer) Upsert(ctx context.Context, batch []domain.Artwork) (written, dropped int) {
	return w.split(ctx, dedupe(batch, w.ref), splitDepth(len(batch)))
}

func (w *Writer) split(ctx context.Context, batch []domain.Artwork, depth int) (int, int) {
	if len(batch) == 0 {
		return 0, 0
	}

	n, err := w.write(ctx, batch)
	if err == nil {
		return n, 0
	}
	if len(batch) == 1 {
		// A batch of one that still fails is a poisoned record. Log it
		// and move on; the rest of the run is unaffected.
		w.log.Warn("dropping unwritable record",
			"artwork", batch[0].ID,
			"error", err,
		)
		return 0, 1
	}
	if depth <= 0 {
		w.log.Error("split depth exhausted, dropping batch",
			"size", len(batch),
			"error", err,
		)
		return 0, len(batch)
	}

	mid := (len(batch) + 1) / 2
	var leftW, leftD, rightW, rightD int

	g := new(errgroup.Group)
	g.Go(func() error {
		leftW, leftD = w.split(ctx, batch[:mid], depth-1)
		return nil
	})
	g.Go(func() error {
		rightW, rightD = w.split(ctx, batch[mid:], depth-1)
		return nil
	})
	_ = g.Wait()

	return leftW + rightW, leftD + rightD
}

// splitDepth bounds the retry recursion at ceil(log2(n)) levels, which
// is exactly enough to reach single-record batches.
func splitDepth(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// dedupe merges records that share an ID, keeping first-seen order.
func dedupe(batch []domain.Artwork, refFormat int) []domain.Artwork {
	index := make(map[int64]int, len(batch))
	out := make([]domain.Artwork, 0, len(batch))

	for _, rec := range batch {
		if i, ok := index[rec.ID]; ok {
			out[i] = domain.MergeArtwork(out[i], rec, refFormat)
			continue
		}
		index[rec.ID] = len(out)
		out = append(out, rec)
	}
	return out
}

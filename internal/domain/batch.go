package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	"github.com/kazie/pylint-pycharm/internal/log"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

// DefaultParallel is the number of documents materialized concurrently.
const DefaultParallel = 4

// BatchMaterializer materializes every eligible document of a batch.
type BatchMaterializer interface {
	// MaterializeAll returns the successfully materialized files in input
	// order. Per-document failures are logged and dropped. The only error is
	// cancellation of ctx, in which case nothing is returned and every file
	// already materialized has been released.
	MaterializeAll(ctx context.Context, project m.Project, docs []m.Document) ([]*ScannableFile, error)
}

type batchMaterializer struct {
	materializer Materializer
	filter       adapter.ProjectFilter
	parallel     int
	onSkip       func(doc m.Document, err error)
}

// BatchOption configures a BatchMaterializer.
type BatchOption func(*batchMaterializer)

// WithParallel bounds the number of concurrent materializations.
func WithParallel(parallel int) BatchOption {
	return func(b *batchMaterializer) {
		if parallel > 0 {
			b.parallel = parallel
		}
	}
}

// WithSkipHandler is called for every eligible document that failed to
// materialize. It may be called concurrently.
func WithSkipHandler(fn func(doc m.Document, err error)) BatchOption {
	return func(b *batchMaterializer) {
		b.onSkip = fn
	}
}

// NewBatchMaterializer constructs a BatchMaterializer.
func NewBatchMaterializer(materializer Materializer, filter adapter.ProjectFilter, opts ...BatchOption) BatchMaterializer {
	b := &batchMaterializer{
		materializer: materializer,
		filter:       filter,
		parallel:     DefaultParallel,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *batchMaterializer) MaterializeAll(ctx context.Context, project m.Project, docs []m.Document) ([]*ScannableFile, error) {
	ctx = log.ContextAttrs(ctx, slog.String("batch", uuid.NewString()))

	eligible := b.eligible(ctx, project, docs)
	slog.DebugContext(ctx, "Materializing batch", "candidates", len(docs), "eligible", len(eligible), "parallel", b.parallel)

	results := make([]*ScannableFile, len(eligible))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.parallel)

	for i, doc := range eligible {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			file, err := b.materializer.Materialize(groupCtx, project, doc)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}

				slog.WarnContext(ctx, "Failure when creating temporary file", "document", doc.ID(), "error", err)
				b.skip(doc, err)

				return nil
			}

			results[i] = file

			return nil
		})
	}

	waitErr := group.Wait()

	files := make([]*ScannableFile, 0, len(results))

	for _, file := range results {
		if file != nil {
			files = append(files, file)
		}
	}

	if err := errors.Join(ctx.Err(), waitErr); err != nil {
		slog.WarnContext(ctx, "Batch abandoned, releasing materialized files", "count", len(files), "error", err)
		ReleaseAll(context.WithoutCancel(ctx), files)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, waitErr
	}

	return files, nil
}

func (b *batchMaterializer) eligible(ctx context.Context, project m.Project, docs []m.Document) []m.Document {
	eligible := make([]m.Document, 0, len(docs))

	for _, doc := range docs {
		if b.filter != nil && !b.filter.IsScannable(ctx, project, doc) {
			continue
		}

		eligible = append(eligible, doc)
	}

	return eligible
}

func (b *batchMaterializer) skip(doc m.Document, err error) {
	if b.onSkip != nil {
		b.onSkip(doc, err)
	}
}

// SkipCollector gathers skipped documents from concurrent batch workers.
type SkipCollector struct {
	mu      sync.Mutex
	skipped []m.Skipped
}

// Add records a skipped document.
func (c *SkipCollector) Add(doc m.Document, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.skipped = append(c.skipped, m.Skipped{Document: doc.ID(), Err: err})
}

// Skipped returns the recorded documents.
func (c *SkipCollector) Skipped() []m.Skipped {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]m.Skipped, len(c.skipped))
	copy(out, c.skipped)

	return out
}

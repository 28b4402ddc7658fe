package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

// blockingMaterializer delegates to a real Materializer but parks documents
// named "block.py" until the context is cancelled.
type blockingMaterializer struct {
	Materializer
	started chan struct{}
}

func (b *blockingMaterializer) Materialize(ctx context.Context, project m.Project, doc m.Document) (*ScannableFile, error) {
	if doc.Name == "block.py" {
		close(b.started)
		<-ctx.Done()

		return nil, ctx.Err()
	}

	return b.Materializer.Materialize(ctx, project, doc)
}

func TestBatchMaterializer_DropsFailuresAndKeepsOrder(t *testing.T) {
	f := newMemFixture()
	collector := &SkipCollector{}
	batch := NewBatchMaterializer(f.mt, adapter.NewPatternProjectFilter([]string{".py"}, nil),
		WithParallel(2), WithSkipHandler(collector.Add))

	docs := []m.Document{
		memoryDoc("/proj", "a.py", "a"),
		memoryDoc("/proj", "../bad.py", "x"),
		memoryDoc("/proj", "notes.txt", "ignored"),
		memoryDoc("/proj/pkg", "c.py", "c"),
	}

	files, err := batch.MaterializeAll(context.Background(), testProject, docs)
	require.NoError(t, err)
	defer ReleaseAll(context.Background(), files)

	require.Len(t, files, 2)
	assert.Equal(t, "a.py", files[0].Document().Name)
	assert.Equal(t, "c.py", files[1].Document().Name)

	skipped := collector.Skipped()
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0].Err, m.ErrAcquisition)
}

func TestBatchMaterializer_EmptyBatch(t *testing.T) {
	f := newMemFixture()
	batch := NewBatchMaterializer(f.mt, nil)

	files, err := batch.MaterializeAll(context.Background(), testProject, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestBatchMaterializer_CancelReleasesEverything(t *testing.T) {
	f := newMemFixture()
	blocking := &blockingMaterializer{Materializer: f.mt, started: make(chan struct{})}
	batch := NewBatchMaterializer(blocking, nil, WithParallel(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs := []m.Document{
		memoryDoc("/proj", "a.py", "a"),
		memoryDoc("/proj", "b.py", "b"),
		memoryDoc("/proj", "block.py", "x"),
		memoryDoc("/proj", "d.py", "d"),
	}

	done := make(chan struct{})

	var (
		files []*ScannableFile
		err   error
	)

	go func() {
		defer close(done)
		files, err = batch.MaterializeAll(ctx, testProject, docs)
	}()

	<-blocking.started
	cancel()
	<-done

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, files)
	assert.Equal(t, 0, f.registry.Len(), "materialized files released on cancel")
	assert.False(t, f.exists("/tmp/csi-000"))
	assert.False(t, f.exists("/tmp/csi-001"))
}

func TestBatchMaterializer_AllFail(t *testing.T) {
	f := newMemFixture()
	f.locker.refuse = true

	var skipped []error
	batch := NewBatchMaterializer(f.mt, nil, WithParallel(1), WithSkipHandler(func(_ m.Document, err error) {
		skipped = append(skipped, err)
	}))

	files, err := batch.MaterializeAll(context.Background(), testProject, []m.Document{
		memoryDoc("/proj", "a.py", "a"),
		memoryDoc("/proj", "b.py", "b"),
	})
	require.NoError(t, err)
	assert.Empty(t, files)
	require.Len(t, skipped, 2)

	for _, e := range skipped {
		assert.True(t, errors.Is(e, m.ErrSlotsExhausted))
	}
}

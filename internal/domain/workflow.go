package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	"github.com/kazie/pylint-pycharm/internal/controller"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

// Workflow is the entry point used by the CLI commands.
type Workflow interface {
	Materialize(ctx context.Context, args MaterializeArgs) error
	Scan(ctx context.Context, args ScanArgs) error
	Status(ctx context.Context, args StatusArgs) error
	Sweep(ctx context.Context, args SweepArgs) error
}

// WorkspaceArgs selects the workspace and the documents to work on.
type WorkspaceArgs struct {
	// Snapshot is the host editor snapshot. Empty means disk only.
	Snapshot m.Path
	// Project holds defaults for settings the snapshot does not provide.
	Project    m.Project
	Include    []string
	Exclude    []string
	Extensions []string
	Parallel   int
}

// MaterializeArgs holds arguments for Materialize.
type MaterializeArgs struct {
	WorkspaceArgs
	// Keep leaves temporary files in place instead of releasing them.
	Keep bool
}

// ScanArgs holds arguments for Scan.
type ScanArgs struct {
	WorkspaceArgs
	ToolArgs []string
}

// StatusArgs holds arguments for Status.
type StatusArgs struct {
	WorkspaceArgs
}

// SweepArgs holds arguments for Sweep.
type SweepArgs struct {
	TempBase m.Path
	MinAge   time.Duration
}

type workflow struct {
	snapshots    adapter.SnapshotStore
	tool         adapter.ToolRunnerAdapter
	ui           controller.UI
	materializer Materializer
	sweeper      Sweeper
	divergence   *DivergenceDetector
}

// NewWorkflow creates a new Workflow with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	snapshots adapter.SnapshotStore,
	tool adapter.ToolRunnerAdapter,
	ui controller.UI,
	materializer Materializer,
	sweeper Sweeper,
) Workflow {
	return &workflow{
		snapshots:    snapshots,
		tool:         tool,
		ui:           ui,
		materializer: materializer,
		sweeper:      sweeper,
		divergence:   NewDivergenceDetector(fsAdapter),
	}
}

func (w *workflow) Materialize(ctx context.Context, args MaterializeArgs) error {
	files, skipped, _, err := w.materializeWorkspace(ctx, args.WorkspaceArgs)
	if err != nil {
		return err
	}

	if args.Keep {
		KeepAll(ctx, files)
	} else {
		defer ReleaseAll(context.WithoutCancel(ctx), files)
	}

	w.ui.DisplayMaterialized(ctx, Summarize(files), skipped)

	return nil
}

func (w *workflow) Scan(ctx context.Context, args ScanArgs) error {
	files, skipped, project, err := w.materializeWorkspace(ctx, args.WorkspaceArgs)
	if err != nil {
		return err
	}

	defer ReleaseAll(context.WithoutCancel(ctx), files)

	w.ui.DisplayMaterialized(ctx, Summarize(files), skipped)

	if len(files) == 0 {
		slog.InfoContext(ctx, "Nothing to scan")
		return nil
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		paths = append(paths, string(file.RealPath()))
	}

	slog.InfoContext(ctx, "Running analysis tool", "files", len(paths), "workDir", project.Root)

	output, runErr := w.tool.Run(ctx, string(project.Root), args.ToolArgs, paths)
	w.ui.DisplayToolOutput(ctx, output, runErr)

	if runErr == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	// A non-zero exit status means the tool reported findings.
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return nil
	}

	slog.ErrorContext(ctx, "Failed to run analysis tool", "error", runErr)

	return fmt.Errorf("run analysis tool: %w", runErr)
}

func (w *workflow) Status(ctx context.Context, args StatusArgs) error {
	workspace, err := w.snapshots.Load(ctx, args.Snapshot, args.Project)
	if err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}

	project := workspace.Project()
	filter := newFilter(args.WorkspaceArgs)

	var entries []m.Divergence

	err = workspace.Read(ctx, func(docs []m.Document) error {
		selected := make([]m.Document, 0, len(docs))

		for _, doc := range docs {
			if filter.IsScannable(ctx, project, doc) {
				selected = append(selected, doc)
			}
		}

		var detectErr error
		entries, detectErr = w.divergence.Detect(ctx, project, selected)

		return detectErr
	})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	w.ui.DisplayStatus(ctx, entries)

	return nil
}

func (w *workflow) Sweep(ctx context.Context, args SweepArgs) error {
	removed, err := w.sweeper.Sweep(ctx, args.TempBase, args.MinAge)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	w.ui.DisplaySwept(ctx, removed)

	return nil
}

// materializeWorkspace enumerates and materializes documents within a single
// read phase of the workspace.
func (w *workflow) materializeWorkspace(ctx context.Context, args WorkspaceArgs) ([]*ScannableFile, []m.Skipped, m.Project, error) {
	workspace, err := w.snapshots.Load(ctx, args.Snapshot, args.Project)
	if err != nil {
		return nil, nil, m.Project{}, fmt.Errorf("load workspace: %w", err)
	}

	project := workspace.Project()
	collector := &SkipCollector{}
	batch := NewBatchMaterializer(w.materializer, newFilter(args),
		WithParallel(args.Parallel),
		WithSkipHandler(collector.Add),
	)

	var files []*ScannableFile

	err = workspace.Read(ctx, func(docs []m.Document) error {
		var batchErr error
		files, batchErr = batch.MaterializeAll(ctx, project, docs)

		return batchErr
	})
	if err != nil {
		return nil, nil, project, fmt.Errorf("materialize: %w", err)
	}

	return files, collector.Skipped(), project, nil
}

func newFilter(args WorkspaceArgs) *adapter.PatternProjectFilter {
	return adapter.NewPatternProjectFilter(args.Extensions, args.Exclude).WithInclude(args.Include...)
}

package domain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/transform"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

const diffContextLines = 3

// DivergenceDetector reports open documents whose materialized content would
// differ from what is on disk.
type DivergenceDetector struct {
	fs adapter.SourceFSAdapter
}

// NewDivergenceDetector constructs a DivergenceDetector.
func NewDivergenceDetector(fs adapter.SourceFSAdapter) *DivergenceDetector {
	return &DivergenceDetector{fs: fs}
}

// Detect returns one entry per diverging document, in input order. Clean
// documents backed by an existing file are omitted.
func (d *DivergenceDetector) Detect(ctx context.Context, project m.Project, docs []m.Document) ([]m.Divergence, error) {
	var out []m.Divergence

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, diverges, err := d.detectOne(ctx, project, doc)
		if err != nil {
			return nil, err
		}

		if diverges {
			out = append(out, entry)
		}
	}

	return out, nil
}

func (d *DivergenceDetector) detectOne(ctx context.Context, project m.Project, doc m.Document) (m.Divergence, bool, error) {
	entry := m.Divergence{Document: doc.ID()}

	disk, ok := doc.Origin.(m.DiskOrigin)
	if !ok {
		entry.State = m.MemoryOnly
		return entry, true, nil
	}

	if !disk.Unsaved {
		_, err := d.fs.FileInfo(ctx, disk.Path)
		if errors.Is(err, os.ErrNotExist) {
			entry.State = m.MissingOnDisk
			return entry, true, nil
		}

		return m.Divergence{}, false, nil
	}

	content, err := d.fs.ReadFile(ctx, disk.Path)
	if errors.Is(err, os.ErrNotExist) {
		entry.State = m.MissingOnDisk
		return entry, true, nil
	}

	if err != nil {
		return m.Divergence{}, false, fmt.Errorf("failed to read %s: %w", disk.Path, err)
	}

	// Compare in UTF-8: disk bytes are in the document's charset.
	enc := resolveEncoding(firstNonEmpty(doc.Charset, project.Charset))
	if decoded, _, decodeErr := transform.Bytes(enc.NewDecoder(), content); decodeErr == nil {
		content = decoded
	}

	var editor strings.Builder
	if _, err := writeTranslated(&editor, doc.Text, project.LineSeparator); err != nil {
		return m.Divergence{}, false, err
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(content)),
		B:        difflib.SplitLines(editor.String()),
		FromFile: string(disk.Path) + " (disk)",
		ToFile:   string(disk.Path) + " (editor)",
		Context:  diffContextLines,
	})
	if err != nil {
		return m.Divergence{}, false, fmt.Errorf("failed to diff %s: %w", disk.Path, err)
	}

	entry.State = m.Unsaved
	entry.Diff = diff

	return entry, true, nil
}

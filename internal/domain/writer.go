package domain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

const filePerm = 0o600

// ContentWriter transfers a document's editor text to a file, translating
// the editor's "\n" newlines to the project's line separator and encoding the
// result in the document's charset.
type ContentWriter struct {
	fs adapter.SourceFSAdapter
}

// NewContentWriter constructs a ContentWriter.
func NewContentWriter(fs adapter.SourceFSAdapter) *ContentWriter {
	return &ContentWriter{fs: fs}
}

// Write creates or truncates dest and writes doc's text to it. Text that is
// not valid UTF-8 is rejected before dest is created. The file is closed on
// every path; a partially written file is left in place on error.
func (w *ContentWriter) Write(ctx context.Context, project m.Project, doc m.Document, dest m.Path) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !utf8.ValidString(doc.Text) {
		return fmt.Errorf("text for %s is not valid UTF-8", dest)
	}

	enc := resolveEncoding(firstNonEmpty(doc.Charset, project.Charset))

	file, err := w.fs.CreateFile(ctx, dest, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", dest, closeErr)
		}
	}()

	encoded := transform.NewWriter(file, enc.NewEncoder())

	if _, err := writeTranslated(encoded, doc.Text, project.LineSeparator); err != nil {
		_ = encoded.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	if err := encoded.Close(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", dest, err)
	}

	return nil
}

// writeTranslated writes text replacing every "\n" with sep. All other
// characters, including stray "\r", are written unchanged.
func writeTranslated(w io.Writer, text string, sep m.LineSeparator) (int, error) {
	if sep == "" || sep == m.LF {
		return io.WriteString(w, text)
	}

	return strings.NewReplacer("\n", string(sep)).WriteString(w, text)
}

// resolveEncoding looks up an IANA charset, falling back to UTF-8 when the
// name is empty, unknown or unsupported.
func resolveEncoding(charset string) encoding.Encoding {
	if charset == "" {
		return unicode.UTF8
	}

	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		slog.Warn("Unsupported charset, falling back to UTF-8", "charset", charset, "error", err)
		return unicode.UTF8
	}

	return enc
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

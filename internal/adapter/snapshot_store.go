package adapter

import (
	"context"
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	m "github.com/kazie/pylint-pycharm/internal/model"
)

// SnapshotStore loads host editor snapshots: the project settings and the
// documents currently open in the editor, exported as YAML.
type SnapshotStore interface {
	Load(ctx context.Context, path m.Path, defaults m.Project) (*SnapshotWorkspace, error)
}

type snapshotFile struct {
	Project   snapshotProject    `yaml:"project"`
	Documents []snapshotDocument `yaml:"documents"`
}

type snapshotProject struct {
	Root          string `yaml:"root"`
	LineSeparator string `yaml:"line_separator"`
	Charset       string `yaml:"charset"`
}

type snapshotDocument struct {
	Name    string `yaml:"name"`
	Dir     string `yaml:"dir"`
	File    string `yaml:"file"`
	Unsaved bool   `yaml:"unsaved"`
	Charset string `yaml:"charset"`
	Text    string `yaml:"text"`
}

// YAMLSnapshotStore reads snapshots through a SourceFSAdapter.
type YAMLSnapshotStore struct {
	fs SourceFSAdapter
}

// NewYAMLSnapshotStore constructs a YAMLSnapshotStore.
func NewYAMLSnapshotStore(fs SourceFSAdapter) *YAMLSnapshotStore {
	return &YAMLSnapshotStore{fs: fs}
}

// Load parses the snapshot at path. Settings missing from the snapshot are
// taken from defaults. An empty path yields a workspace with no open
// documents rooted at defaults.Root.
func (s *YAMLSnapshotStore) Load(ctx context.Context, path m.Path, defaults m.Project) (*SnapshotWorkspace, error) {
	if path == "" {
		return NewSnapshotWorkspace(s.fs, defaults, nil), nil
	}

	data, err := s.fs.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}

	project, err := resolveProject(file.Project, defaults)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}

	docs := make([]m.Document, 0, len(file.Documents))

	for i, raw := range file.Documents {
		doc, err := resolveDocument(project, raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: document %d: %w", path, i, err)
		}

		docs = append(docs, doc)
	}

	return NewSnapshotWorkspace(s.fs, project, docs), nil
}

func resolveProject(raw snapshotProject, defaults m.Project) (m.Project, error) {
	project := defaults

	if raw.Root != "" {
		root, err := filepath.Abs(raw.Root)
		if err != nil {
			return m.Project{}, fmt.Errorf("invalid project root %q: %w", raw.Root, err)
		}

		project.Root = m.Path(root)
	}

	if raw.LineSeparator != "" {
		sep, err := m.ParseLineSeparator(raw.LineSeparator)
		if err != nil {
			return m.Project{}, err
		}

		project.LineSeparator = sep
	}

	if raw.Charset != "" {
		project.Charset = raw.Charset
	}

	if project.LineSeparator == "" {
		project.LineSeparator = m.LF
	}

	return project, nil
}

func resolveDocument(project m.Project, raw snapshotDocument) (m.Document, error) {
	doc := m.Document{
		Name:    raw.Name,
		Text:    raw.Text,
		Charset: raw.Charset,
		Origin:  m.MemoryOrigin{},
	}

	if raw.File != "" {
		file := anchor(project.Root, raw.File)
		doc.Origin = m.DiskOrigin{Path: file, Unsaved: raw.Unsaved}

		if doc.Name == "" {
			doc.Name = filepath.Base(string(file))
		}

		if raw.Dir == "" {
			doc.Dir = m.Path(filepath.Dir(string(file)))
		}
	}

	if raw.Dir != "" {
		doc.Dir = anchor(project.Root, raw.Dir)
	}

	if doc.Name == "" {
		return m.Document{}, fmt.Errorf("document has neither name nor file")
	}

	if doc.Charset == "" {
		doc.Charset = project.Charset
	}

	return doc, nil
}

// anchor resolves a snapshot path against the project root.
func anchor(root m.Path, path string) m.Path {
	if filepath.IsAbs(path) || root == "" {
		return m.Path(filepath.Clean(path))
	}

	return m.Path(filepath.Join(string(root), path))
}
